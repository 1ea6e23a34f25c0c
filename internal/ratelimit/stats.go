package ratelimit

import (
	"context"
	"sync"
	"time"
)

// StatsEvent is one limiter decision. Route is a route pattern such as
// /api/todos/{id} or UnmatchedRoute, never a raw request path.
type StatsEvent struct {
	Key     string
	Allowed bool
	Method  string
	Route   string
	At      time.Time
}

// Counters holds allowed and denied totals.
type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

// Snapshot is a point-in-time view of the recorded decisions.
type Snapshot struct {
	Total   Counters            `json:"total"`
	ByRoute map[string]Counters `json:"byRoute"`
}

// StatsStore persists decisions. Recording is best effort.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
	Snapshot(ctx context.Context) (Snapshot, error)
}

// MemoryStats counts decisions in process.
type MemoryStats struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
}

func NewMemoryStats() *MemoryStats {
	return &MemoryStats{byRoute: make(map[string]Counters)}
}

func (s *MemoryStats) Record(_ context.Context, ev StatsEvent) error {
	route := RouteKey(ev.Method, ev.Route)

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.byRoute[route]
	if ev.Allowed {
		s.total.Allowed++
		c.Allowed++
	} else {
		s.total.Denied++
		c.Denied++
	}
	s.byRoute[route] = c
	return nil
}

func (s *MemoryStats) Snapshot(_ context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v
	}
	return Snapshot{Total: s.total, ByRoute: out}, nil
}

// RouteKey is the per-route stats key.
func RouteKey(method, route string) string {
	return method + " " + route
}
