package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/bandmanager/internal/app/system/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.GuardDecisionsTotal == nil {
		t.Error("GuardDecisionsTotal is nil")
	}
	if m.LoginsTotal == nil {
		t.Error("LoginsTotal is nil")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *metrics.Metrics
	m.Login("success")
	m.ClaimRefresh("error")
	m.Revalidation("stale")
	m.Guard("require_group", "allow")
	m.Proxy(200, time.Millisecond)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if got := m.Middleware(next); got == nil {
		t.Error("Middleware on nil Metrics returned nil handler")
	}
}

func TestGuardCounter(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.Guard("require_role", "deny")
	m.Guard("require_role", "deny")
	m.Guard("require_role", "allow")

	if got := testutil.ToFloat64(m.GuardDecisionsTotal.WithLabelValues("require_role", "deny")); got != 2 {
		t.Errorf("deny count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.GuardDecisionsTotal.WithLabelValues("require_role", "allow")); got != 1 {
		t.Errorf("allow count = %v, want 1", got)
	}
}

func TestProxyStatusClasses(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.Proxy(204, time.Millisecond)
	m.Proxy(404, time.Millisecond)
	m.Proxy(0, time.Millisecond)

	for _, class := range []string{"2xx", "4xx", "error"} {
		if got := testutil.ToFloat64(m.ProxyRequestsTotal.WithLabelValues(class)); got != 1 {
			t.Errorf("%s count = %v, want 1", class, got)
		}
	}
	if got := testutil.CollectAndCount(m.ProxyRequestDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/groups/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/groups/1", "/groups/2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/groups/{id}", "418"))
	if got != 2 {
		t.Errorf("request count = %v, want 2", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.Login("success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `bandmanager_logins_total{outcome="success"} 1`) {
		t.Errorf("metrics output missing login counter:\n%s", body)
	}
}
