// Package events publishes domain events. Publication is best effort:
// callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/client"
)

const (
	MovieCreated  = "movie.created"
	MovieDeleted  = "movie.deleted"
	MovieRented   = "movie.rented"
	MovieReturned = "movie.returned"
	MovieRated    = "movie.rated"
	TrackCreated  = "track.created"
	UserCreated   = "user.created"
	FileUploaded  = "file.uploaded"
)

type Event struct {
	Type    string    `json:"type"`
	Key     string    `json:"key"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// New stamps an event with the current time.
func New(eventType, key string, payload any) Event {
	return Event{Type: eventType, Key: key, Payload: payload, At: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Emit publishes ev and logs a failure at WARN.
func Emit(ctx context.Context, p Publisher, logger *zap.Logger, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("type", ev.Type),
			zap.String("key", ev.Key),
			zap.Error(err))
	}
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// LogPublisher writes events to the logger at DEBUG.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.logger.Debug("Domain event",
		zap.String("type", ev.Type),
		zap.String("key", ev.Key),
		zap.Any("payload", ev.Payload))
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// KafkaPublisher writes events as JSON to the configured topic, keyed by
// the aggregate id so one aggregate stays on one partition.
type KafkaPublisher struct {
	producer *client.KafkaProducer
}

func NewKafkaPublisher(producer *client.KafkaProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", ev.Type, err)
	}
	return p.producer.ProduceMessage(ctx, []byte(ev.Key), value, map[string]string{
		"event-type": ev.Type,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types returns the recorded event types in publication order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
