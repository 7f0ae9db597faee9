// Package groupctx holds the user's current group selection for a request.
//
// The selection is a (group id, role) pair persisted in the browser between
// requests by a Store. The Provider middleware loads it once per request
// into a Context that pages and guards read synchronously. Writes go through
// SelectGroup, SetRole and ClearGroup only; there is no way to change the
// group without also setting the role.
package groupctx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"go.uber.org/zap"
)

var (
	// ErrNoGroupSelected is returned by SetRole when no group is selected.
	ErrNoGroupSelected = errors.New("no group selected")

	// ErrInvalidSelection is returned for a non-positive group id or an
	// unknown role.
	ErrInvalidSelection = errors.New("invalid group selection")
)

// Selection is the persisted pair. Role is never trusted when GroupID is nil.
type Selection struct {
	GroupID *int64
	Role    roles.Role
}

// Group returns the selected group id, if any.
func (s Selection) Group() (int64, bool) {
	if s.GroupID == nil {
		return 0, false
	}
	return *s.GroupID, true
}

// Empty reports whether no group is selected.
func (s Selection) Empty() bool { return s.GroupID == nil }

func (s Selection) clone() Selection {
	if s.GroupID == nil {
		return Selection{}
	}
	id := *s.GroupID
	return Selection{GroupID: &id, Role: s.Role}
}

// Store persists a Selection in the browser between requests.
//
// Save must write both entries or neither. Clear removes both.
type Store interface {
	Load(r *http.Request) (Selection, error)
	Save(w http.ResponseWriter, r *http.Request, sel Selection) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

// Context is the per-request view of the group selection.
type Context struct {
	mu    sync.Mutex
	sel   Selection
	store Store
	w     http.ResponseWriter
	r     *http.Request
}

type ctxKey struct{}

// Provider loads the persisted selection into a Context for every request.
// A selection that cannot be loaded is treated as none.
func Provider(store Store, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sel, err := store.Load(r)
			if err != nil {
				logger.Debug("group selection not loaded", zap.Error(err))
				sel = Selection{}
			}
			gc := &Context{sel: sel.clone(), store: store, w: w, r: r}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, gc)))
		})
	}
}

// From returns the Context installed by Provider.
func From(r *http.Request) (*Context, bool) {
	gc, ok := r.Context().Value(ctxKey{}).(*Context)
	return gc, ok && gc != nil
}

// GroupID returns the selected group.
func (c *Context) GroupID() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.Group()
}

// Role returns the role in the selected group. It reports false when no
// group is selected or the role is unknown.
func (c *Context) Role() (roles.Role, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sel.GroupID == nil || !c.sel.Role.Valid() {
		return roles.None, false
	}
	return c.sel.Role, true
}

// Selection returns a copy of the current pair.
func (c *Context) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.clone()
}

// SelectGroup persists both values, then swaps the in-memory selection.
// Readers never see the new group with the old role.
func (c *Context) SelectGroup(groupID int64, role roles.Role) error {
	if groupID <= 0 || !role.Valid() {
		return fmt.Errorf("%w: group %d role %q", ErrInvalidSelection, groupID, role)
	}

	next := Selection{GroupID: &groupID, Role: role}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Save(c.w, c.r, next); err != nil {
		return fmt.Errorf("save group selection: %w", err)
	}
	c.sel = next
	return nil
}

// SetRole changes the role within the current group.
func (c *Context) SetRole(role roles.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: role %q", ErrInvalidSelection, role)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sel.GroupID == nil {
		return ErrNoGroupSelected
	}
	next := c.sel.clone()
	next.Role = role
	if err := c.store.Save(c.w, c.r, next); err != nil {
		return fmt.Errorf("save group selection: %w", err)
	}
	c.sel = next
	return nil
}

// ClearGroup removes both persisted values and resets the selection. The
// in-memory selection is reset even if the store fails.
func (c *Context) ClearGroup() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sel = Selection{}
	if err := c.store.Clear(c.w, c.r); err != nil {
		return fmt.Errorf("clear group selection: %w", err)
	}
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Test helpers                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// memStore keeps the selection in memory; used by WithTestSelection.
type memStore struct {
	mu  sync.Mutex
	sel Selection
}

func (m *memStore) Load(*http.Request) (Selection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sel.clone(), nil
}

func (m *memStore) Save(_ http.ResponseWriter, _ *http.Request, sel Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sel = sel.clone()
	return nil
}

func (m *memStore) Clear(http.ResponseWriter, *http.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sel = Selection{}
	return nil
}

// WithTestSelection attaches a Context holding sel to r, backed by an
// in-memory store. For tests in other packages.
func WithTestSelection(r *http.Request, sel Selection) *http.Request {
	gc := &Context{sel: sel.clone(), store: &memStore{sel: sel.clone()}, w: nil, r: r}
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, gc))
}

// Group is a convenience for building a Selection in tests and handlers.
func Group(id int64, role roles.Role) Selection {
	return Selection{GroupID: &id, Role: role}
}
