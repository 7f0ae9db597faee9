package proxy_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/proxy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProxy(t *testing.T, h http.HandlerFunc) *proxy.Proxy {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return proxy.New(target, nil, zap.NewNop())
}

func TestProxy_InjectsTrustedUserID(t *testing.T) {
	var gotUser, gotTS, gotCookie, gotPath string
	p := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("user-id")
		gotTS = r.Header.Get("x-auth-timestamp")
		gotCookie = r.Header.Get("Cookie")
		gotPath = r.URL.Path
		w.Write([]byte(`{"groups":[]}`))
	})

	req := httptest.NewRequest("GET", "/api/group/user/42", nil)
	req.Header.Set("user-id", "1")
	req.AddCookie(&http.Cookie{Name: "bandmanager-session", Value: "secret"})
	req = auth.WithTestIdentity(req, auth.Identity{SubjectID: "42"})

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", gotUser)
	assert.NotEmpty(t, gotTS)
	assert.Empty(t, gotCookie, "session cookie must not reach the backend")
	assert.Equal(t, "/api/group/user/42", gotPath)
}

func TestProxy_AnonymousHasNoUserID(t *testing.T) {
	var gotUser string
	p := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("user-id")
	})

	req := httptest.NewRequest("POST", "/api/verify/login", strings.NewReader(`{}`))
	req.Header.Set("user-id", "7")
	p.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, gotUser)
}

func TestProxy_BackendErrorIsGeneric(t *testing.T) {
	p := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "pq: relation users does not exist", http.StatusInternalServerError)
	})

	req := auth.WithTestIdentity(httptest.NewRequest("GET", "/api/group/5/42", nil), auth.Identity{SubjectID: "42"})
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Backend request failed", body["error"])
	assert.NotContains(t, rec.Body.String(), "pq:")
}

func TestProxy_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target, _ := url.Parse(srv.URL)
	srv.Close()
	p := proxy.New(target, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest("GET", "/api/event/group/1/2", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
