package ratelimit

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const UnknownIdentity = "unknown"

// UnmatchedRoute labels stats for requests that match no registered route.
const UnmatchedRoute = "unmatched"

type KeyFunc func(r *http.Request) string

type Options struct {
	Limiter *Limiter
	Stats   StatsStore
	KeyFn   KeyFunc
	// KeyHeader, when set and present, identifies the client instead of
	// its address.
	KeyHeader string
	Logger    *zap.Logger
}

// ExceededBody is the JSON body of a 429 response.
type ExceededBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	ResetAt    string `json:"resetAt"`
	RetryAfter int    `json:"retryAfter"`
}

// DefaultKeyFunc resolves the identity from keyHeader, then the remote
// address host, then UnknownIdentity. Run chi's RealIP first to honour
// proxy headers.
func DefaultKeyFunc(keyHeader string) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		addr := strings.TrimSpace(r.RemoteAddr)
		if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
			return host
		}
		if addr != "" {
			return addr
		}
		return UnknownIdentity
	}
}

// Middleware admits or rejects every request. Store failures let the
// request through.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	limit := opts.Limiter.MaxRequests()
	message := fmt.Sprintf("Límite de %d solicitudes por %s excedido", limit, windowLabel(opts.Limiter.Window()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			dec, err := opts.Limiter.Allow(r.Context(), key)
			if err != nil {
				opts.Logger.Warn("Rate limiter unavailable, admitting request",
					zap.String("key", key),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if opts.Stats != nil {
				ev := StatsEvent{Key: key, Allowed: dec.Allowed, Method: r.Method, Route: routePattern(r), At: dec.At}
				if err := opts.Stats.Record(r.Context(), ev); err != nil {
					opts.Logger.Debug("Failed to record rate limit stats", zap.Error(err))
				}
			}

			resetAt := dec.ResetAt.UTC().Format("2006-01-02T15:04:05.000Z07:00")

			if !dec.Allowed {
				opts.Logger.Info("Rate limit exceeded",
					zap.String("key", key),
					zap.Int("count", dec.Count),
					zap.Int("retry_after", dec.RetryAfter))

				w.Header().Set("Retry-After", strconv.Itoa(dec.RetryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(ExceededBody{
					Error:      "Demasiadas solicitudes",
					Message:    message,
					ResetAt:    resetAt,
					RetryAfter: dec.RetryAfter,
				})
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			w.Header().Set("X-RateLimit-Reset", resetAt)

			next.ServeHTTP(w, r)
		})
	}
}

// routePattern looks up the chi pattern r is routed to, so denied requests
// are labelled the same way as admitted ones.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return UnmatchedRoute
	}
	path := r.URL.RawPath
	if path == "" {
		path = r.URL.Path
	}
	if pattern := rctx.Routes.Find(chi.NewRouteContext(), r.Method, path); pattern != "" {
		return pattern
	}
	return UnmatchedRoute
}

func windowLabel(d time.Duration) string {
	if d == time.Minute {
		return "minuto"
	}
	return d.String()
}
