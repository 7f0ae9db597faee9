package errors

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func capture(t *testing.T) *viewdata.Capture {
	t.Helper()
	c := &viewdata.Capture{}
	prev := render
	render = c.Renderer()
	t.Cleanup(func() { render = prev })
	return c
}

func TestRenderForbidden(t *testing.T) {
	c := capture(t)
	rec := httptest.NewRecorder()
	req := auth.WithTestIdentity(httptest.NewRequest("GET", "/manage", nil), auth.Identity{SubjectID: "42", Name: "Ann"})

	RenderForbidden(rec, req, "You need manager permissions to access this page.", "")

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if c.Name != "error_forbidden" {
		t.Errorf("template = %q", c.Name)
	}
	data := c.Data.(pageData)
	if data.Message != "You need manager permissions to access this page." {
		t.Errorf("Message = %q", data.Message)
	}
	if !data.IsLoggedIn {
		t.Error("layout should show the signed-in user")
	}
}

func TestRenderUnauthorized_DefaultBack(t *testing.T) {
	c := capture(t)
	rec := httptest.NewRecorder()

	RenderUnauthorized(rec, httptest.NewRequest("GET", "/unauthorized", nil), "")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rec.Code)
	}
	if got := c.Data.(pageData).BackURL; got != "/login" {
		t.Errorf("BackURL = %q", got)
	}
}

func TestErrorLogger_ServerErrorHidesDetails(t *testing.T) {
	c := capture(t)
	core, logs := observer.New(zap.ErrorLevel)
	el := NewErrorLogger(zap.New(core))

	rec := httptest.NewRecorder()
	req := auth.WithTestIdentity(httptest.NewRequest("GET", "/events", nil), auth.Identity{SubjectID: "42"})
	el.LogServerError(rec, req, "load events failed", stderrors.New("pq: connection refused"), "Unable to load events.", "/events")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	data := c.Data.(pageData)
	if data.Message != "Unable to load events." {
		t.Errorf("Message = %q", data.Message)
	}
	entries := logs.FilterMessage("load events failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["user_id"] != "42" {
		t.Errorf("log fields: %v", entries[0].ContextMap())
	}
}

func TestRenderNoGroup(t *testing.T) {
	c := capture(t)
	rec := httptest.NewRecorder()

	NoGroupHandler.ServeHTTP(rec, httptest.NewRequest("GET", "/dashboard", nil))

	if rec.Code != http.StatusOK || c.Name != "no_group" {
		t.Errorf("got %d %q", rec.Code, c.Name)
	}
}

func TestRenderNotFound(t *testing.T) {
	c := capture(t)
	rec := httptest.NewRecorder()

	RenderNotFound(rec, httptest.NewRequest("GET", "/events/9", nil), "That event is not in this group.", "/events")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	data := c.Data.(pageData)
	if data.Heading != "Not found" || data.BackURL != "/events" {
		t.Errorf("data = %+v", data)
	}
}
