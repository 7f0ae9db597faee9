// Package membership re-checks the cached group selection against the
// backend before group-scoped pages run.
//
// The selection held by groupctx is only a cache of one row of the
// backend's membership table. Revalidate fetches the user's memberships
// and reconciles the cache and the identity token with them:
//
//   - group gone: ClearGroup and drop the group claims (ErrStaleMembership)
//   - role changed: SetRole and refresh the role claim
//   - backend unreachable: fail closed with a generic error page
package membership

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/metrics"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"go.uber.org/zap"
)

// ErrStaleMembership means the selected group is no longer one the backend
// confirms the user belongs to.
var ErrStaleMembership = errors.New("stale group membership")

// Lister fetches a user's memberships.
type Lister interface {
	UserGroups(ctx context.Context, userID string) ([]models.GroupSummary, error)
}

// Revalidator reconciles the selection with the backend.
type Revalidator struct {
	groups   Lister
	sessions *auth.SessionManager
	log      *zap.Logger
	metrics  *metrics.Metrics

	// Unavailable renders the page shown when the backend cannot be asked.
	Unavailable func(w http.ResponseWriter, r *http.Request)
	// OnStale, if set, is told about every selection dropped by Check.
	OnStale func(r *http.Request, userID string, groupID int64)
}

// New returns a Revalidator. m may be nil.
func New(groups Lister, sessions *auth.SessionManager, m *metrics.Metrics, logger *zap.Logger) *Revalidator {
	return &Revalidator{
		groups:   groups,
		sessions: sessions,
		log:      logger,
		metrics:  m,
		Unavailable: func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Something went wrong. Please try again.", http.StatusServiceUnavailable)
		},
	}
}

type groupsKey struct{}

// Groups returns the membership list fetched by Revalidate for this
// request, so pages (the sidebar) can reuse it.
func Groups(r *http.Request) ([]models.GroupSummary, bool) {
	g, ok := r.Context().Value(groupsKey{}).([]models.GroupSummary)
	return g, ok
}

// Check reconciles the selection for r. The returned request carries the
// refreshed identity and the fetched membership list.
func (v *Revalidator) Check(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
	id, ok := auth.Current(r)
	if !ok {
		return r, auth.ErrNotSignedIn
	}
	gc, ok := groupctx.From(r)
	if !ok {
		return r, nil
	}
	groupID, ok := gc.GroupID()
	if !ok {
		return r, nil
	}

	list, err := v.groups.UserGroups(r.Context(), id.SubjectID)
	if err != nil {
		v.metrics.Revalidation("error")
		return r, fmt.Errorf("revalidate membership: %w", err)
	}
	r = r.WithContext(context.WithValue(r.Context(), groupsKey{}, list))

	current, found := find(list, groupID)
	if !found {
		v.metrics.Revalidation("stale")
		v.log.Info("selected group no longer confirmed; clearing",
			zap.String("user_id", id.SubjectID),
			zap.Int64("group_id", groupID))
		if err := gc.ClearGroup(); err != nil {
			v.log.Warn("clear stale group selection", zap.Error(err))
		}
		if v.OnStale != nil {
			v.OnStale(r, id.SubjectID, groupID)
		}
		if r2, _, err := v.sessions.RefreshClaims(w, r, auth.ClearGroup()); err == nil {
			r = r2
		} else {
			v.log.Warn("drop stale group claims", zap.Error(err))
		}
		return r, ErrStaleMembership
	}

	cachedRole, _ := gc.Role()
	if current != cachedRole {
		v.metrics.Revalidation("role_changed")
		if err := gc.SetRole(current); err != nil {
			return r, fmt.Errorf("update cached role: %w", err)
		}
	} else {
		v.metrics.Revalidation("ok")
	}

	// Keep the token's group claims in line with the selection.
	if tg, tr, ok := id.GroupRole(); !ok || tg != groupID || tr != current {
		r2, _, err := v.sessions.RefreshClaims(w, r, auth.SetGroup(groupID, current))
		if err != nil {
			return r, err
		}
		r = r2
	}
	return r, nil
}

// Gone re-checks the selection after a group-scoped backend call failed.
// The backend answers a removed member and a broken call alike, so the
// membership list decides. Gone reports true when the group is no longer
// confirmed; the selection and the token's group claims are cleared by
// then.
func (v *Revalidator) Gone(w http.ResponseWriter, r *http.Request) bool {
	_, err := v.Check(w, r)
	return errors.Is(err, ErrStaleMembership)
}

// find returns the role for groupID. A membership with an unknown role
// counts as not found.
func find(list []models.GroupSummary, groupID int64) (roles.Role, bool) {
	for _, g := range list {
		if g.ID != groupID {
			continue
		}
		role, err := roles.Parse(g.Role)
		if err != nil {
			return roles.None, false
		}
		return role, true
	}
	return roles.None, false
}

// Revalidate is middleware running Check. A stale membership continues
// with the group cleared so the guards below render their fallback. Any
// other failure stops the request.
func (v *Revalidator) Revalidate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r2, err := v.Check(w, r)
		switch {
		case err == nil, errors.Is(err, ErrStaleMembership):
			next.ServeHTTP(w, r2)
		default:
			v.log.Error("membership revalidation failed",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			v.Unavailable(w, r)
		}
	})
}
