// Package api exposes the JSON HTTP surface over the record service:
// per-kind CRUD, list shaping (search, category, month, sort) and batch
// operations.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finbase/internal/cache"
	"finbase/internal/core"
	"finbase/internal/middleware/ratelimit"
	"finbase/internal/middleware/security"
	"finbase/internal/services"
)

// Server wires the record service into an HTTP handler.
type Server struct {
	svc       *services.RecordService
	listCache *cache.LRU[[]core.Record]
	limiter   *ratelimit.Limiter
}

type Options struct {
	CacheSize         int
	CacheTTL          time.Duration
	RequestsPerMinute int
}

func DefaultOptions() Options {
	return Options{
		CacheSize:         64,
		CacheTTL:          30 * time.Second,
		RequestsPerMinute: 120,
	}
}

func NewServer(svc *services.RecordService, opts Options) *Server {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultOptions().CacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultOptions().CacheTTL
	}
	return &Server{
		svc:       svc,
		listCache: cache.NewLRU[[]core.Record](opts.CacheSize, opts.CacheTTL),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.limiter.Middleware)
	r.Use(requestLogger)
	r.Use(metricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/backups", s.handleBackupRequest)

		r.Route("/{kind}", func(r chi.Router) {
			r.Use(s.kindCtx)
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.Post("/batch-delete", s.handleBatchDelete)
			r.Post("/batch-archive", s.handleBatchArchive)
			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", s.handleUpdate)
				r.Delete("/", s.handleDelete)
			})
		})
	})

	return r
}

// Close releases the server's background resources.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Readiness means storage answers; a single cheap query is enough.
	if _, err := s.svc.List(r.Context(), core.KindIncome, true); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// requestLogger emits one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		slog.InfoContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
