package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "notable"

// Metrics holds the Prometheus collectors of the HTTP surface. It also
// implements noteservice.Notifier to count persisted mutations.
type Metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rateLimited prometheus.Counter
	mutations   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by method, route and status code."},
			[]string{"method", "route", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency by method and route.", Buckets: prometheus.DefBuckets},
			[]string{"method", "route"},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Requests rejected by the rate limiter."},
		),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "note_mutations_total", Help: "Persisted note mutations by kind."},
			[]string{"kind"},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.rateLimited, m.mutations)
	return m
}

// NoteChanged counts a persisted mutation.
func (m *Metrics) NoteChanged(kind, _ string) {
	m.mutations.WithLabelValues(kind).Inc()
}

// Middleware records request count and latency labelled by route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
