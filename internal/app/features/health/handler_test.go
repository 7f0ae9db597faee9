package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/bandmanager/internal/app/features/health"
	"github.com/dalemusser/bandmanager/internal/testutil"
	"go.uber.org/zap"
)

type healthBody struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
	Message  string `json:"message"`
	Error    string `json:"error"`
}

func serve(t *testing.T, h *health.Handler) (*httptest.ResponseRecorder, healthBody) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var body healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec, body
}

func TestServe_BackendUpNoDatabase(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	rec, body := serve(t, health.NewHandler(fb.Client, nil, zap.NewNop()))

	testutil.AssertStatus(t, rec, http.StatusOK)
	if body.Status != "ok" || body.Backend != "connected" || body.Database != "disabled" {
		t.Errorf("body = %+v", body)
	}
}

func TestServe_BackendDown(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.SetFailing(true)
	rec, body := serve(t, health.NewHandler(fb.Client, nil, zap.NewNop()))

	testutil.AssertStatus(t, rec, http.StatusServiceUnavailable)
	if body.Status != "error" || body.Backend != "disconnected" || body.Message != "Backend unavailable" {
		t.Errorf("body = %+v", body)
	}
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fb := testutil.NewFakeBackend(t)
	rec, body := serve(t, health.NewHandler(fb.Client, db.Client(), zap.NewNop()))

	testutil.AssertStatus(t, rec, http.StatusOK)
	if body.Database != "connected" {
		t.Errorf("database: got %q, want connected", body.Database)
	}
}
