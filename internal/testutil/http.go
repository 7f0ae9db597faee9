package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/go-chi/chi/v5"
)

// TestUser represents a signed-in user for handler tests.
type TestUser struct {
	ID   int64
	Name string
}

// SubjectID is the token subject for u.
func (u TestUser) SubjectID() string { return strconv.FormatInt(u.ID, 10) }

// WithIdentity signs u in without a group, bypassing the session cookie.
func WithIdentity(r *http.Request, u TestUser) *http.Request {
	return auth.WithTestIdentity(r, auth.Identity{SubjectID: u.SubjectID(), Name: u.Name})
}

// WithSelection signs u in with groupID selected as role, both in the
// identity token and in the group context.
func WithSelection(r *http.Request, u TestUser, groupID int64, role roles.Role) *http.Request {
	gid := groupID
	r = auth.WithTestIdentity(r, auth.Identity{SubjectID: u.SubjectID(), Name: u.Name, Role: role, GroupID: &gid})
	return groupctx.WithTestSelection(r, groupctx.Group(groupID, role))
}

// WithNoSelection attaches an empty group context.
func WithNoSelection(r *http.Request) *http.Request {
	return groupctx.WithTestSelection(r, groupctx.Selection{})
}

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewFormRequest creates a form POST.
func NewFormRequest(target string, form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// AssertStatus fails the test if rec's status differs from want.
func AssertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: got %d, want %d (body: %q)", rec.Code, want, rec.Body.String())
	}
}

// AssertRedirect fails unless rec is a 303 to location.
func AssertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	AssertStatus(t, rec, http.StatusSeeOther)
	if got := rec.Header().Get("Location"); got != location {
		t.Fatalf("Location: got %q, want %q", got, location)
	}
}

// AssertBodyContains fails unless the body contains every substring.
func AssertBodyContains(t *testing.T, rec *httptest.ResponseRecorder, subs ...string) {
	t.Helper()
	body := rec.Body.String()
	for _, s := range subs {
		if !strings.Contains(body, s) {
			t.Errorf("body does not contain %q", s)
		}
	}
}
