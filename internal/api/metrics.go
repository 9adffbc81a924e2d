package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "finbase_http_requests_total",
	Help: "HTTP requests by method, route pattern and status code.",
}, []string{"method", "route", "status"})

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "finbase_http_request_duration_seconds",
	Help:    "HTTP request latency by route pattern.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route"})

var listCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "finbase_list_cache_hits_total",
	Help: "List endpoint responses served from the in-process cache.",
})

var listCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "finbase_list_cache_misses_total",
	Help: "List endpoint responses that hit storage.",
})

var batchOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "finbase_batch_operations_total",
	Help: "Batch operations by kind and action.",
}, []string{"kind", "action"})

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records request counts and latency per route pattern.
// It must run inside the chi routing context so the pattern is resolved.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routePattern(r)
		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
