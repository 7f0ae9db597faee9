package guards_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/guards"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("page content"))
	})
}

func newGuards(strict bool) *guards.Guards {
	return guards.New(guards.Config{
		Strict: strict,
		Denied: func(w http.ResponseWriter, r *http.Request, msg string) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("layout|" + msg))
		},
		NoGroup: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pick a group"))
		}),
	})
}

func htmlRequest(path string, sel *groupctx.Selection) *http.Request {
	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("Accept", "text/html")
	if sel != nil {
		return groupctx.WithTestSelection(req, *sel)
	}
	return groupctx.WithTestSelection(req, groupctx.Selection{})
}

func sel(id int64, role roles.Role) *groupctx.Selection {
	s := groupctx.Group(id, role)
	return &s
}

func TestRequireGroup_NoGroupRedirects(t *testing.T) {
	g := newGuards(false)
	rec := httptest.NewRecorder()
	g.RequireGroup(okHandler()).ServeHTTP(rec, htmlRequest("/events", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("Location = %q, want /dashboard", loc)
	}
}

func TestRequireGroup_WithGroupPasses(t *testing.T) {
	g := newGuards(false)
	rec := httptest.NewRecorder()
	g.RequireGroup(okHandler()).ServeHTTP(rec, htmlRequest("/events", sel(5, roles.Member)))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequireGroup_OnPickGroupPathRendersNeutralScreen(t *testing.T) {
	g := newGuards(false)
	rec := httptest.NewRecorder()
	g.RequireGroup(okHandler()).ServeHTTP(rec, htmlRequest("/dashboard", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (no redirect loop)", rec.Code)
	}
	if rec.Body.String() != "pick a group" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRequireGroup_HTMXAndAPI(t *testing.T) {
	g := newGuards(false)

	req := groupctx.WithTestSelection(httptest.NewRequest("GET", "/events", nil), groupctx.Selection{})
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	g.RequireGroup(okHandler()).ServeHTTP(rec, req)
	if rec.Header().Get("HX-Redirect") != "/dashboard" {
		t.Errorf("HX-Redirect = %q", rec.Header().Get("HX-Redirect"))
	}

	req = groupctx.WithTestSelection(httptest.NewRequest("GET", "/events", nil), groupctx.Selection{})
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	g.RequireGroup(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusPreconditionRequired {
		t.Errorf("API status = %d, want 428", rec.Code)
	}
}

func TestRequireManagerInsideRequireGroup_NoGroupRedirects(t *testing.T) {
	g := newGuards(true)
	h := g.RequireGroup(g.RequireManager(okHandler()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, htmlRequest("/manage", nil))

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
		t.Errorf("got %d %q, want redirect to /dashboard", rec.Code, rec.Header().Get("Location"))
	}
	if strings.Contains(rec.Body.String(), "permissions") {
		t.Error("role fallback rendered instead of redirect")
	}
}

func TestNestedGuards_AtMostOneRedirect(t *testing.T) {
	g := newGuards(true)
	h := g.RequireGroup(g.RequireGroup(g.RequireModerator(g.RequireGroup(okHandler()))))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, htmlRequest("/announcements/new", nil))

	if got := len(rec.Header().Values("Location")); got != 1 {
		t.Errorf("Location headers = %d, want 1", got)
	}

	// With a group the nested layers admit the request once.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, htmlRequest("/announcements/new", sel(2, roles.Moderator)))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequireRole_Ranking(t *testing.T) {
	g := newGuards(true)

	tests := []struct {
		min  roles.Role
		have roles.Role
		want int
	}{
		{roles.Manager, roles.Manager, http.StatusOK},
		{roles.Manager, roles.Moderator, http.StatusForbidden},
		{roles.Manager, roles.Member, http.StatusForbidden},
		{roles.Moderator, roles.Manager, http.StatusOK},
		{roles.Moderator, roles.Moderator, http.StatusOK},
		{roles.Moderator, roles.Member, http.StatusForbidden},
		{roles.Member, roles.Member, http.StatusOK},
		{roles.Member, roles.None, http.StatusForbidden},
	}

	for _, tt := range tests {
		h := g.RequireGroup(g.RequireRole(tt.min)(okHandler()))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, htmlRequest("/x", sel(1, tt.have)))
		if rec.Code != tt.want {
			t.Errorf("RequireRole(%q) with %q: status %d, want %d", tt.min, tt.have, rec.Code, tt.want)
		}
	}
}

func TestRequireManager_DeniedFallbackInPlace(t *testing.T) {
	g := newGuards(false)
	h := g.RequireGroup(g.RequireManager(okHandler()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, htmlRequest("/manage", sel(1, roles.Member)))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if rec.Header().Get("Location") != "" {
		t.Error("denied fallback must not redirect")
	}
	want := "layout|You need manager permissions to access this page."
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestRequireRole_APIDenied(t *testing.T) {
	g := newGuards(false)
	req := groupctx.WithTestSelection(httptest.NewRequest("POST", "/manage/members/3/role", nil), groupctx.Group(1, roles.Member))
	req.Header.Set("Accept", "application/json")

	rec := httptest.NewRecorder()
	g.RequireGroup(g.RequireManager(okHandler())).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRequireRole_WithoutRequireGroup_StrictPanics(t *testing.T) {
	g := newGuards(true)
	h := g.RequireManager(okHandler())

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic")
		}
		err, ok := rec.(error)
		if !ok || !errors.Is(err, guards.ErrGuardMisuse) {
			t.Errorf("panic value = %v, want ErrGuardMisuse", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), htmlRequest("/manage", nil))
}

func TestRequireRole_WithoutRequireGroup_LenientLogsAndDenies(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	g := guards.New(guards.Config{Logger: zap.New(core)})
	h := g.RequireManager(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, htmlRequest("/manage", nil))

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if logs.FilterMessage("guard misuse").Len() != 1 {
		t.Errorf("expected one misuse log entry, got %d", logs.Len())
	}
}

func TestRequireRole_WithGroupButNoRequireGroup_Allowed(t *testing.T) {
	g := newGuards(true)
	rec := httptest.NewRecorder()
	g.RequireModerator(okHandler()).ServeHTTP(rec, htmlRequest("/x", sel(3, roles.Manager)))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequireRole_UnknownRolePanicsAtConstruction(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown role")
		}
	}()
	newGuards(false).RequireRole(roles.Role("owner"))
}

func TestRequireRole_GroupClearedAfterRequireGroup(t *testing.T) {
	g := newGuards(true)
	clear := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gc, _ := groupctx.From(r)
			_ = gc.ClearGroup()
			next.ServeHTTP(w, r)
		})
	}
	h := g.RequireGroup(clear(g.RequireManager(okHandler())))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, htmlRequest("/manage", sel(4, roles.Manager)))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 fallback", rec.Code)
	}
}

func TestRequireNoGroup(t *testing.T) {
	g := newGuards(false)

	rec := httptest.NewRecorder()
	g.RequireNoGroup(okHandler()).ServeHTTP(rec, htmlRequest("/dashboard", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("no group: status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	g.RequireNoGroup(okHandler()).ServeHTTP(rec, htmlRequest("/dashboard", sel(9, roles.Member)))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/events" {
		t.Errorf("with group: got %d %q, want redirect to /events", rec.Code, rec.Header().Get("Location"))
	}
}
