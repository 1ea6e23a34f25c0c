package models

import "time"

// AccessLog is one served request as written to the analytics sink.
type AccessLog struct {
	EventTime  time.Time
	RequestID  string
	Method     string
	Path       string
	Route      string
	Status     int
	Duration   time.Duration
	ClientIP   string
	UserAgent  string
	BytesWrote int
}
