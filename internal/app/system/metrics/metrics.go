// Package metrics holds the Prometheus collectors for the frontend.
//
// Every method on *Metrics is nil-safe so packages can take an optional
// *Metrics and tests can pass nil.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Session metrics
	LoginsTotal        *prometheus.CounterVec
	ClaimRefreshTotal  *prometheus.CounterVec
	RevalidationsTotal *prometheus.CounterVec

	// Access guard decisions
	GuardDecisionsTotal *prometheus.CounterVec

	// Backend proxy metrics
	ProxyRequestsTotal   *prometheus.CounterVec
	ProxyRequestDuration prometheus.Histogram
}

// New creates and registers all metrics on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bandmanager_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bandmanager_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bandmanager_logins_total",
				Help: "Credential exchanges by outcome",
			},
			[]string{"outcome"},
		),
		ClaimRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bandmanager_claim_refresh_total",
				Help: "Identity token refreshes by outcome",
			},
			[]string{"outcome"},
		),
		RevalidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bandmanager_membership_revalidations_total",
				Help: "Membership revalidations against the backend by outcome",
			},
			[]string{"outcome"},
		),
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bandmanager_guard_decisions_total",
				Help: "Access guard evaluations by guard and outcome",
			},
			[]string{"guard", "outcome"},
		),
		ProxyRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bandmanager_proxy_requests_total",
				Help: "Requests forwarded to the backend API by status class",
			},
			[]string{"status"},
		),
		ProxyRequestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bandmanager_proxy_request_duration_seconds",
				Help:    "Backend round-trip time for proxied requests",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.ClaimRefreshTotal,
		m.RevalidationsTotal,
		m.GuardDecisionsTotal,
		m.ProxyRequestsTotal,
		m.ProxyRequestDuration,
	)

	return m
}

// Login counts one credential exchange.
func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

// ClaimRefresh counts one RefreshClaims call.
func (m *Metrics) ClaimRefresh(outcome string) {
	if m == nil {
		return
	}
	m.ClaimRefreshTotal.WithLabelValues(outcome).Inc()
}

// Revalidation counts one membership check.
func (m *Metrics) Revalidation(outcome string) {
	if m == nil {
		return
	}
	m.RevalidationsTotal.WithLabelValues(outcome).Inc()
}

// Guard counts one guard decision.
func (m *Metrics) Guard(guard, outcome string) {
	if m == nil {
		return
	}
	m.GuardDecisionsTotal.WithLabelValues(guard, outcome).Inc()
}

// Proxy records one forwarded request. status 0 means the backend was
// unreachable.
func (m *Metrics) Proxy(status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProxyRequestsTotal.WithLabelValues(statusClass(status)).Inc()
	m.ProxyRequestDuration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware instruments requests. Routes are labelled by their chi
// pattern so URL parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func statusClass(code int) string {
	switch {
	case code == 0:
		return "error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	}
	return "5xx"
}
