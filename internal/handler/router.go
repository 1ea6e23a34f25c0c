package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/audit"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/models"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/ratelimit"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

// RouteRegistrar is a resource handler mounted under /api.
type RouteRegistrar interface {
	RegisterRoutes(router chi.Router)
}

// HealthFunc reports the state of each backing service by name.
type HealthFunc func(ctx context.Context) map[string]error

// RouterConfig is everything NewRouter wires together.
type RouterConfig struct {
	Logger         *zap.Logger
	AllowedOrigins []string
	HandlerTimeout time.Duration
	// RequireHTTPS rejects plain HTTP requests with 426.
	RequireHTTPS bool
	// RateLimit guards every /api route when set.
	RateLimit  func(http.Handler) http.Handler
	Stats      ratelimit.StatsStore
	Audit      audit.Sink
	UploadsDir string
	Health     HealthFunc
	Handlers   []RouteRegistrar
}

// requireHTTPS rejects any request that wasn’t made over TLS
func requireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			writeJSON(w, http.StatusUpgradeRequired, ErrorResponse{Error: "Se requiere HTTPS"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NopSink{}
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 60 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	router := chi.NewRouter()

	if cfg.RequireHTTPS {
		router.Use(requireHTTPS)
	}

	// Middleware stack
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(cfg.Logger, cfg.Audit))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.HandlerTimeout))
	router.Use(securityHeaders)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", healthHandler(cfg.Health))

	if cfg.UploadsDir != "" {
		router.Handle("/uploads/*", http.StripPrefix("/uploads/", noDirListing(http.FileServer(http.Dir(cfg.UploadsDir)))))
	}

	router.Route("/api", func(r chi.Router) {
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit)
		}
		r.Get("/", apiIndex)
		if cfg.Stats != nil {
			r.Get("/ratelimit/stats", rateLimitStats(cfg.Stats))
		}
		for _, h := range cfg.Handlers {
			h.RegisterRoutes(r)
		}
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Ruta no encontrada", Path: r.URL.Path, Method: r.Method})
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Método no permitido", Path: r.URL.Path, Method: r.Method})
	})

	return router
}

// LoggerMiddleware logs every request and hands it to the access-log sink.
func LoggerMiddleware(logger *zap.Logger, sink audit.Sink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				duration := time.Since(start)
				route := ""
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					route = rctx.RoutePattern()
				}
				logger.Info("HTTP request",
					util.String("request_id", middleware.GetReqID(r.Context())),
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", duration),
					util.String("user_agent", r.UserAgent()),
				)
				sink.Record(models.AccessLog{
					EventTime:  start.UTC(),
					RequestID:  middleware.GetReqID(r.Context()),
					Method:     r.Method,
					Path:       r.URL.Path,
					Route:      route,
					Status:     ww.Status(),
					Duration:   duration,
					ClientIP:   r.RemoteAddr,
					UserAgent:  r.UserAgent(),
					BytesWrote: ww.BytesWritten(),
				})
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func healthHandler(check HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		}
		status := http.StatusOK
		if check != nil {
			services := make(map[string]string)
			for name, err := range check(r.Context()) {
				if err != nil {
					services[name] = err.Error()
					body["status"] = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				services[name] = "ok"
			}
			body["services"] = services
		}
		writeJSON(w, status, body)
	}
}

func apiIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "API de ejercicios v1.0",
		"endpoints": map[string]string{
			"todos":     "/api/todos",
			"movies":    "/api/movies",
			"users":     "/api/users",
			"tracks":    "/api/tracks",
			"storage":   "/api/storage",
			"cursos":    "/api/cursos/{categoria}",
			"usuarios":  "/api/usuarios",
			"ratelimit": "/api/ratelimit/stats",
			"health":    "/health",
		},
	})
}

func rateLimitStats(stats ratelimit.StatsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := stats.Snapshot(r.Context())
		if err != nil {
			util.Error("Failed to read rate limit stats", util.ErrorField(err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Error interno del servidor"})
			return
		}
		writeJSON(w, http.StatusOK, successResponse(snap, ""))
	}
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Ruta no encontrada", Path: r.URL.Path, Method: r.Method})
			return
		}
		next.ServeHTTP(w, r)
	})
}
