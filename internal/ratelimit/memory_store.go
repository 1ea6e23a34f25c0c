package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps windows in a process-local map. State is lost on
// restart.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*Window
	window  time.Duration
}

func NewMemoryStore(window time.Duration) *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*Window),
		window:  window,
	}
}

func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time, window time.Duration) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.Sub(w.Start) > window {
		w = &Window{Start: now, Count: 1}
		s.windows[key] = w
		return *w, nil
	}
	w.Count++
	return *w, nil
}

// Sweep drops windows that started more than two window durations before
// now and returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	cutoff := 2 * s.window

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.windows {
		if now.Sub(w.Start) > cutoff {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identities.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// StartJanitor sweeps every five window durations until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, onSweep func(removed int)) {
	every := 5 * s.window
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				removed := s.Sweep(now)
				if onSweep != nil {
					onSweep(removed)
				}
			}
		}
	}()
}
