// Package metrics registers raido's Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Organizer metrics.
var (
	// ActionsTotal counts applier outcomes by kind.
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raido_actions_total",
			Help: "Applier outcomes by kind",
		},
		[]string{"kind"},
	)

	// SuggestionsTotal counts suggestions by source (model, cache, fallback).
	SuggestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raido_suggestions_total",
			Help: "Suggestions produced by source",
		},
		[]string{"source"},
	)

	FilesScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raido_files_scanned_total",
		Help: "Files observed across all scans",
	})

	PassDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "raido_pass_duration_seconds",
		Help:    "Duration of one organizer pass",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raido_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "raido_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and duration labelled by chi route
// pattern, which keeps label cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
