package models

import "time"

type Track struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Duration      int       `json:"duration"`
	Artist        string    `json:"artist"`
	Collaborators []string  `json:"collaborators"`
	Genres        []string  `json:"genres"`
	Plays         int       `json:"plays"`
	ReleaseDate   time.Time `json:"releaseDate"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TrackView is a track with its user references resolved. An artist that
// no longer exists is null; missing collaborators are dropped.
type TrackView struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Duration      int        `json:"duration"`
	Artist        *UserRef   `json:"artist"`
	Collaborators []*UserRef `json:"collaborators"`
	Genres        []string   `json:"genres"`
	Plays         int        `json:"plays"`
	ReleaseDate   time.Time  `json:"releaseDate"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
