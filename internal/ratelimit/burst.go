package ratelimit

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// BurstThrottle is a per-key token bucket for expensive routes such as
// uploads. It complements the fixed window, which only caps the total.
type BurstThrottle struct {
	mu      sync.Mutex
	entries map[string]*burstEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
}

type burstEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewBurstThrottle(rps float64, burst int, idleTTL time.Duration) *BurstThrottle {
	return &BurstThrottle{
		entries: make(map[string]*burstEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
	}
}

// Allow reports whether key may proceed now, and if not how long to wait.
func (b *BurstThrottle) Allow(key string, now time.Time) (bool, time.Duration) {
	b.mu.Lock()
	ent, ok := b.entries[key]
	if !ok {
		ent = &burstEntry{lim: rate.NewLimiter(b.rps, b.burst)}
		b.entries[key] = ent
	}
	ent.lastSeen = now
	b.mu.Unlock()

	r := ent.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Cleanup drops keys idle for longer than the idle TTL.
func (b *BurstThrottle) Cleanup(now time.Time) {
	cutoff := now.Add(-b.idleTTL)

	b.mu.Lock()
	defer b.mu.Unlock()

	for k, ent := range b.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(b.entries, k)
		}
	}
}

// StartJanitor runs Cleanup every interval until ctx is done.
func (b *BurstThrottle) StartJanitor(ctx context.Context, every time.Duration) {
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
				b.Cleanup(now)
			}
		}
	}()
}

// Middleware rejects requests that exceed the per-key burst with 429 and a
// Retry-After header in whole seconds.
func (b *BurstThrottle) Middleware(keyFn KeyFunc, logger *zap.Logger) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = DefaultKeyFunc("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			ok, wait := b.Allow(key, time.Now())
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retry := int(math.Ceil(wait.Seconds()))
			if retry < 1 {
				retry = 1
			}
			logger.Info("Upload burst exceeded", zap.String("key", key), zap.Int("retry_after", retry))

			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(ExceededBody{
				Error:      "Demasiadas solicitudes",
				Message:    "Demasiadas subidas seguidas, espera antes de volver a intentarlo",
				ResetAt:    time.Now().Add(wait).UTC().Format("2006-01-02T15:04:05.000Z07:00"),
				RetryAfter: retry,
			})
		})
	}
}
