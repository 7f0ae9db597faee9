// Package guards provides the group and role access guards used as chi
// middleware around group-scoped pages.
//
// # Composition
//
// RequireGroup wraps every group-scoped route. RequireRole(min) (and the
// RequireManager / RequireModerator shorthands) nest inside it:
//
//	r.With(g.RequireGroup, g.RequireManager).Get("/manage", h.Serve)
//
// RequireGroup decides where an unscoped user goes (the pick-a-group
// screen). RequireRole only decides whether the selected role is high
// enough; it renders the permission-denied fallback in place so the
// layout stays visible. Using RequireRole without an enclosing
// RequireGroup on a request with no group is a wiring bug (GuardMisuse).
//
// Guards hide pages. The backend still enforces every permission.
package guards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/metrics"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"go.uber.org/zap"
)

// ErrGuardMisuse is raised when a role guard runs on a request with no
// group and no enclosing RequireGroup.
var ErrGuardMisuse = errors.New("role guard used without an enclosing group guard")

// Config wires the guards to the app's paths and renderers.
type Config struct {
	// PickGroupPath is the pick-a-group screen (default /dashboard).
	PickGroupPath string
	// GroupHomePath is where RequireNoGroup sends users who already have a
	// group (default /events).
	GroupHomePath string

	// Denied renders the permission-denied fallback. It must write a 403.
	Denied func(w http.ResponseWriter, r *http.Request, msg string)
	// NoGroup renders the neutral pick-a-group screen when a request for
	// PickGroupPath itself has no group.
	NoGroup http.Handler

	// Strict panics on GuardMisuse instead of logging and denying.
	Strict bool

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Guards evaluates group and role requirements.
type Guards struct {
	cfg Config
}

// New fills in defaults for unset fields.
func New(cfg Config) *Guards {
	if cfg.PickGroupPath == "" {
		cfg.PickGroupPath = "/dashboard"
	}
	if cfg.GroupHomePath == "" {
		cfg.GroupHomePath = "/events"
	}
	if cfg.Denied == nil {
		cfg.Denied = func(w http.ResponseWriter, r *http.Request, msg string) {
			http.Error(w, msg, http.StatusForbidden)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Guards{cfg: cfg}
}

type groupCheckedKey struct{}

func markGroupChecked(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), groupCheckedKey{}, true))
}

// GroupChecked reports whether a RequireGroup layer already admitted r.
func GroupChecked(r *http.Request) bool {
	v, _ := r.Context().Value(groupCheckedKey{}).(bool)
	return v
}

func selectedGroup(r *http.Request) (*groupctx.Context, int64, bool) {
	gc, ok := groupctx.From(r)
	if !ok {
		return nil, 0, false
	}
	id, ok := gc.GroupID()
	return gc, id, ok
}

/*─────────────────────────────────────────────────────────────────────────────*
| RequireGroup                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireGroup admits requests with a selected group and sends everyone
// else to the pick-a-group screen. Nested RequireGroup layers are
// evaluated once.
func (g *Guards) RequireGroup(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GroupChecked(r) {
			next.ServeHTTP(w, r)
			return
		}
		if _, _, ok := selectedGroup(r); ok {
			g.cfg.Metrics.Guard("require_group", "allow")
			next.ServeHTTP(w, markGroupChecked(r))
			return
		}

		g.cfg.Metrics.Guard("require_group", "redirect")
		g.toPickGroup(w, r)
	})
}

func (g *Guards) toPickGroup(w http.ResponseWriter, r *http.Request) {
	// Already on the pick-a-group screen: render it instead of looping.
	if r.URL.Path == g.cfg.PickGroupPath && g.cfg.NoGroup != nil {
		g.cfg.NoGroup.ServeHTTP(w, r)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", g.cfg.PickGroupPath)
		w.WriteHeader(http.StatusOK)
		return
	}
	if auth.WantsHTML(r) {
		http.Redirect(w, r, g.cfg.PickGroupPath, http.StatusSeeOther)
		return
	}
	writeJSONError(w, http.StatusPreconditionRequired, "group selection required")
}

/*─────────────────────────────────────────────────────────────────────────────*
| RequireRole                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireRole admits requests whose role in the selected group is at least
// min. Passing an unknown role is a programming error and panics at
// construction.
func (g *Guards) RequireRole(min roles.Role) func(http.Handler) http.Handler {
	if !min.Valid() {
		panic(fmt.Sprintf("guards: RequireRole(%q): unknown role", min))
	}
	guard := "require_" + string(min)
	msg := deniedMessage(min)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gc, _, ok := selectedGroup(r)
			if !ok {
				if !GroupChecked(r) {
					g.misuse(w, r, guard)
					return
				}
				// Group cleared after RequireGroup admitted the request
				// (stale membership).
				g.cfg.Metrics.Guard(guard, "deny")
				g.deny(w, r, msg)
				return
			}

			if role, ok := gc.Role(); ok && role.AtLeast(min) {
				g.cfg.Metrics.Guard(guard, "allow")
				next.ServeHTTP(w, r)
				return
			}

			g.cfg.Metrics.Guard(guard, "deny")
			g.deny(w, r, msg)
		})
	}
}

// RequireManager admits managers only.
func (g *Guards) RequireManager(next http.Handler) http.Handler {
	return g.RequireRole(roles.Manager)(next)
}

// RequireModerator admits moderators and managers.
func (g *Guards) RequireModerator(next http.Handler) http.Handler {
	return g.RequireRole(roles.Moderator)(next)
}

func deniedMessage(min roles.Role) string {
	if min == roles.Member {
		return "You need to be a member of this group to access this page."
	}
	return fmt.Sprintf("You need %s permissions to access this page.", min)
}

func (g *Guards) misuse(w http.ResponseWriter, r *http.Request, guard string) {
	g.cfg.Metrics.Guard(guard, "misuse")
	if g.cfg.Strict {
		panic(fmt.Errorf("%w: %s on %s", ErrGuardMisuse, guard, r.URL.Path))
	}
	g.cfg.Logger.Error("guard misuse",
		zap.String("guard", guard),
		zap.String("path", r.URL.Path),
		zap.Error(ErrGuardMisuse))
	g.deny(w, r, "You don't have permission to view this page.")
}

func (g *Guards) deny(w http.ResponseWriter, r *http.Request, msg string) {
	if !auth.WantsHTML(r) {
		writeJSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	g.cfg.Denied(w, r, msg)
}

/*─────────────────────────────────────────────────────────────────────────────*
| RequireNoGroup                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireNoGroup guards the dashboard landing: users who already have a
// group are sent to the group home.
func (g *Guards) RequireNoGroup(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := selectedGroup(r); !ok {
			g.cfg.Metrics.Guard("require_no_group", "allow")
			next.ServeHTTP(w, r)
			return
		}

		g.cfg.Metrics.Guard("require_no_group", "redirect")
		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", g.cfg.GroupHomePath)
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, g.cfg.GroupHomePath, http.StatusSeeOther)
	})
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
