package login_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	uierrors "github.com/dalemusser/bandmanager/internal/app/features/errors"
	"github.com/dalemusser/bandmanager/internal/app/features/login"
	"github.com/dalemusser/bandmanager/internal/app/store/audit"
	"github.com/dalemusser/bandmanager/internal/app/system/auditlog"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/ratelimit"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/testutil"
	"go.uber.org/zap"
)

type memSink struct{ events []audit.Event }

func (m *memSink) Log(_ context.Context, ev audit.Event) error {
	m.events = append(m.events, ev)
	return nil
}

func (m *memSink) types() []string {
	var out []string
	for _, ev := range m.events {
		out = append(out, ev.EventType)
	}
	return out
}

type env struct {
	handler *login.Handler
	backend *testutil.FakeBackend
	sink    *memSink
	capture *viewdata.Capture
}

func newTestHandler(t *testing.T, limiter *ratelimit.LoginLimiter) *env {
	t.Helper()
	fb := testutil.NewFakeBackend(t)
	fb.AddUser("Ann", "Lee", "ann@example.com", "s3cret")

	sink := &memSink{}
	logger := zap.NewNop()
	al := auditlog.New(sink, logger, auditlog.Config{Auth: "db", Group: "db"})
	sm := testutil.NewSessionManager(t, fb.Client)

	h := login.NewHandler(sm, uierrors.NewErrorLogger(logger), al, limiter, logger)
	capture := &viewdata.Capture{}
	h.Render = capture.Renderer()
	return &env{handler: h, backend: fb, sink: sink, capture: capture}
}

func loginForm(email, password, ret string) *http.Request {
	form := url.Values{"email": {email}, "password": {password}}
	if ret != "" {
		form.Set("return", ret)
	}
	return testutil.WithNoSelection(testutil.NewFormRequest("/login", form))
}

func TestHandleLoginPost_Success(t *testing.T) {
	e := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	e.handler.HandleLoginPost(rec, loginForm("ann@example.com", "s3cret", ""))

	testutil.AssertRedirect(t, rec, "/dashboard")

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "bandmanager-test" {
			found = true
		}
	}
	if !found {
		t.Error("expected session cookie to be set")
	}
	if got := e.sink.types(); len(got) != 1 || got[0] != audit.EventLoginSuccess {
		t.Errorf("audit events = %v", got)
	}
}

func TestHandleLoginPost_WithReturnURL(t *testing.T) {
	e := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	e.handler.HandleLoginPost(rec, loginForm("ann@example.com", "s3cret", "/announcements"))

	testutil.AssertRedirect(t, rec, "/announcements")
}

func TestHandleLoginPost_RejectsOffsiteReturn(t *testing.T) {
	e := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	e.handler.HandleLoginPost(rec, loginForm("ann@example.com", "s3cret", "https://evil.example.com/"))

	testutil.AssertRedirect(t, rec, "/dashboard")
}

func TestHandleLoginPost_WrongPasswordIsGeneric(t *testing.T) {
	e := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	e.handler.HandleLoginPost(rec, loginForm("ann@example.com", "wrong", ""))

	testutil.AssertStatus(t, rec, http.StatusOK)
	if e.capture.Name != "login" {
		t.Fatalf("rendered %q, want login", e.capture.Name)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "bandmanager-test" {
			t.Error("failed sign-in must not set a session cookie")
		}
	}
	if got := e.sink.types(); len(got) != 1 || got[0] != audit.EventLoginFailed {
		t.Errorf("audit events = %v", got)
	}
}

func TestHandleLoginPost_BackendDownIsGeneric(t *testing.T) {
	e := newTestHandler(t, nil)
	e.backend.SetFailing(true)

	rec := httptest.NewRecorder()
	e.handler.HandleLoginPost(rec, loginForm("ann@example.com", "s3cret", ""))

	testutil.AssertStatus(t, rec, http.StatusOK)
	if e.capture.Name != "login" {
		t.Fatalf("rendered %q, want login", e.capture.Name)
	}
}

func TestHandleLoginPost_MissingFields(t *testing.T) {
	e := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	e.handler.HandleLoginPost(rec, loginForm("", "", ""))

	testutil.AssertStatus(t, rec, http.StatusOK)
	if calls := e.backend.Calls(); len(calls) != 0 {
		t.Errorf("backend called for an empty form: %v", calls)
	}
}

func TestHandleLoginPost_MalformedEmailSkipsBackend(t *testing.T) {
	e := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	e.handler.HandleLoginPost(rec, loginForm("Ann <ann@example.com>", "s3cret", ""))

	testutil.AssertStatus(t, rec, http.StatusOK)
	if e.capture.Name != "login" {
		t.Fatalf("rendered %q, want login", e.capture.Name)
	}
	if got := e.sink.types(); len(got) != 1 || got[0] != audit.EventLoginFailed {
		t.Errorf("audit events = %v", got)
	}
	if calls := e.backend.Calls(); len(calls) != 0 {
		t.Errorf("backend called for a malformed email: %v", calls)
	}
}

func TestHandleLoginPost_RateLimited(t *testing.T) {
	limiter := ratelimit.NewLoginLimiterWithConfig(100, time.Minute, 2, time.Minute)
	t.Cleanup(limiter.Close)
	e := newTestHandler(t, limiter)

	for i := 0; i < 2; i++ {
		e.handler.HandleLoginPost(httptest.NewRecorder(), loginForm("ann@example.com", "wrong", ""))
	}

	rec := httptest.NewRecorder()
	e.handler.HandleLoginPost(rec, loginForm("ann@example.com", "s3cret", ""))

	testutil.AssertStatus(t, rec, http.StatusTooManyRequests)
	got := e.sink.types()
	if got[len(got)-1] != audit.EventLoginFailedRateLimit {
		t.Errorf("last audit event = %q", got[len(got)-1])
	}
}

func TestHandleLoginPost_ClearsPreviousSelection(t *testing.T) {
	e := newTestHandler(t, nil)

	req := testutil.NewFormRequest("/login", url.Values{"email": {"ann@example.com"}, "password": {"s3cret"}})
	req = groupctx.WithTestSelection(req, groupctx.Group(7, roles.Manager))

	e.handler.HandleLoginPost(httptest.NewRecorder(), req)

	gc, _ := groupctx.From(req)
	if _, ok := gc.GroupID(); ok {
		t.Error("selection from a previous session survived sign-in")
	}
}

func TestServeLogin_RendersForm(t *testing.T) {
	e := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	e.handler.ServeLogin(rec, httptest.NewRequest("GET", "/login?registered=1&return=/events", nil))

	testutil.AssertStatus(t, rec, http.StatusOK)
	if e.capture.Name != "login" {
		t.Fatalf("rendered %q, want login", e.capture.Name)
	}
	if calls := e.backend.Calls(); len(calls) != 0 {
		t.Errorf("GET /login called the backend: %v", calls)
	}
}
