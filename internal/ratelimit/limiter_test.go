package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, max int) (*Limiter, *MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(time.Minute)
	l, err := NewLimiter(store, max, time.Minute, WithNow(clock.Now))
	require.NoError(t, err)
	return l, store, clock
}

func TestLimiter_HundredthAdmittedHundredFirstRejected(t *testing.T) {
	l, _, _ := newTestLimiter(t, 100)
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		dec, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, dec.Allowed, "request %d", i)
		assert.Equal(t, 100-i, dec.Remaining)
	}

	dec, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, 0, dec.Remaining)
	assert.Equal(t, 60, dec.RetryAfter)
}

func TestLimiter_NewWindowAfterExpiry(t *testing.T) {
	l, _, clock := newTestLimiter(t, 100)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		dec, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, dec.Allowed)
	}

	clock.Advance(time.Minute + time.Millisecond)
	dec, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 1, dec.Count)
	assert.Equal(t, clock.Now().Add(time.Minute), dec.ResetAt)
}

func TestLimiter_ExactlyAtWindowEdgeStaysInWindow(t *testing.T) {
	l, _, clock := newTestLimiter(t, 1)
	ctx := context.Background()

	dec, _ := l.Allow(ctx, "k")
	require.True(t, dec.Allowed)

	clock.Advance(time.Minute)
	dec, _ = l.Allow(ctx, "k")
	assert.False(t, dec.Allowed)
	assert.Equal(t, 0, dec.RetryAfter)
}

func TestLimiter_IdentitiesAreIndependent(t *testing.T) {
	l, _, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	a, _ := l.Allow(ctx, "a")
	b, _ := l.Allow(ctx, "b")
	a2, _ := l.Allow(ctx, "a")

	assert.True(t, a.Allowed)
	assert.True(t, b.Allowed)
	assert.False(t, a2.Allowed)
}

func TestLimiter_ConcurrentCountsAreExact(t *testing.T) {
	l, _, _ := newTestLimiter(t, 100)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, err := l.Allow(ctx, "shared")
			if err == nil && dec.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowed)
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	_, _ = store.Hit(ctx, "old", start, time.Minute)
	_, _ = store.Hit(ctx, "recent", start.Add(90*time.Second), time.Minute)

	removed := store.Sweep(start.Add(2*time.Minute + time.Second))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	w, _ := store.Hit(ctx, "recent", start.Add(2*time.Minute+time.Second), time.Minute)
	assert.Equal(t, 2, w.Count)
}

func TestNewLimiter_RejectsBadConfig(t *testing.T) {
	_, err := NewLimiter(nil, 1, time.Minute)
	assert.Error(t, err)
	_, err = NewLimiter(NewMemoryStore(time.Minute), 0, time.Minute)
	assert.Error(t, err)
	_, err = NewLimiter(NewMemoryStore(time.Minute), 1, 0)
	assert.Error(t, err)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func limitedRouter(opts Options) chi.Router {
	r := chi.NewRouter()
	r.Use(Middleware(opts))
	r.Get("/api/todos", okHandler().ServeHTTP)
	r.Get("/api/todos/{id}", okHandler().ServeHTTP)
	return r
}

func TestMiddleware_HeadersAndRejection(t *testing.T) {
	l, _, _ := newTestLimiter(t, 2)
	stats := NewMemoryStats()
	h := limitedRouter(Options{Limiter: l, Stats: stats})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
		req.RemoteAddr = "1.2.3.4:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "2025-01-01T10:01:00.000Z", first.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, http.StatusOK, do().Code)

	rejected := do()
	require.Equal(t, http.StatusTooManyRequests, rejected.Code)
	assert.Equal(t, "60", rejected.Header().Get("Retry-After"))

	var body ExceededBody
	require.NoError(t, json.NewDecoder(rejected.Body).Decode(&body))
	assert.Equal(t, "Demasiadas solicitudes", body.Error)
	assert.Equal(t, "Límite de 2 solicitudes por minuto excedido", body.Message)
	assert.Equal(t, "2025-01-01T10:01:00.000Z", body.ResetAt)
	assert.Equal(t, 60, body.RetryAfter)

	snap, err := stats.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Counters{Allowed: 2, Denied: 1}, snap.Total)
	assert.Equal(t, Counters{Allowed: 2, Denied: 1}, snap.ByRoute["GET /api/todos"])
}

type recordingStats struct {
	mu     sync.Mutex
	events []StatsEvent
}

func (s *recordingStats) Record(_ context.Context, ev StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingStats) Snapshot(context.Context) (Snapshot, error) {
	return Snapshot{}, nil
}

func TestMiddleware_StatsKeyedByRoutePattern(t *testing.T) {
	l, err := NewLimiter(NewMemoryStore(time.Minute), 1000, time.Minute)
	require.NoError(t, err)
	stats := NewMemoryStats()
	h := limitedRouter(Options{Limiter: l, Stats: stats})

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/todos/%d", i), nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	for i := 0; i < 500; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/no-such-route-%d", i), nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	snap, err := stats.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.ByRoute, 2)
	assert.Equal(t, Counters{Allowed: 50}, snap.ByRoute["GET /api/todos/{id}"])
	assert.Equal(t, Counters{Allowed: 500}, snap.ByRoute["GET "+UnmatchedRoute])
}

func TestMiddleware_DeniedRequestsKeepRoutePattern(t *testing.T) {
	l, _, _ := newTestLimiter(t, 1)
	stats := NewMemoryStats()
	h := limitedRouter(Options{Limiter: l, Stats: stats})

	for _, path := range []string{"/api/todos/1", "/api/todos/2"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	snap, err := stats.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]Counters{"GET /api/todos/{id}": {Allowed: 1, Denied: 1}}, snap.ByRoute)
}

func TestMiddleware_StatsUseLimiterClock(t *testing.T) {
	l, _, clock := newTestLimiter(t, 1)
	stats := &recordingStats{}
	h := limitedRouter(Options{Limiter: l, Stats: stats})

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/todos", nil))
	clock.Advance(90 * time.Second)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/todos", nil))

	require.Len(t, stats.events, 2)
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, start, stats.events[0].At)
	assert.Equal(t, start.Add(90*time.Second), stats.events[1].At)
	assert.Equal(t, "/api/todos", stats.events[1].Route)
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Time, time.Duration) (Window, error) {
	return Window{}, errors.New("redis down")
}

func TestMiddleware_FailsOpen(t *testing.T) {
	l, err := NewLimiter(failingStore{}, 1, time.Minute)
	require.NoError(t, err)
	h := Middleware(Options{Limiter: l})(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestDefaultKeyFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", DefaultKeyFunc("")(req))

	req.Header.Set("X-Api-Key", "client-42")
	assert.Equal(t, "client-42", DefaultKeyFunc("X-Api-Key")(req))

	req.RemoteAddr = ""
	assert.Equal(t, UnknownIdentity, DefaultKeyFunc("")(req))
}

func TestBurstThrottle(t *testing.T) {
	b := NewBurstThrottle(1, 2, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	ok, _ := b.Allow("k", now)
	assert.True(t, ok)
	ok, _ = b.Allow("k", now)
	assert.True(t, ok)
	ok, wait := b.Allow("k", now)
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	ok, _ = b.Allow("k", now.Add(time.Second))
	assert.True(t, ok)

	b.Cleanup(now.Add(2 * time.Minute))
	b.mu.Lock()
	assert.Empty(t, b.entries)
	b.mu.Unlock()
}

func TestBurstThrottle_Middleware(t *testing.T) {
	b := NewBurstThrottle(0.001, 1, time.Minute)
	h := b.Middleware(func(*http.Request) string { return "client" }, nil)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/storage", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/storage", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
