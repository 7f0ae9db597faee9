// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"context"
	"net/http"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/membership"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/gorilla/csrf"
)

// DefaultSiteName is shown in the header and page titles.
const DefaultSiteName = "Band Manager"

// GroupVM is one row of the sidebar group list.
type GroupVM struct {
	ID        int64
	Name      string
	Role      string
	RoleLabel string
	Members   int
	Selected  bool
}

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(r, "Page Title", "/default-back"),
//	}
//
// Role flags mirror the cached group selection and only decide which
// controls are drawn. The guards and the backend decide what is allowed.
type BaseVM struct {
	SiteName string

	IsLoggedIn bool
	UserID     string
	UserName   string

	HasGroup    bool
	GroupID     int64
	GroupName   string
	Role        string
	RoleLabel   string
	IsManager   bool
	IsModerator bool
	Groups      []GroupVM

	Title       string
	BackURL     string
	CurrentPath string

	CSRFToken string
}

// GroupLoader fetches the sidebar group list for a user.
type GroupLoader func(ctx context.Context, userID string) ([]models.GroupSummary, error)

var groupLoader GroupLoader

// SetGroupLoader sets the function used to fill the sidebar.
// Call this once at startup from bootstrap.
func SetGroupLoader(loader GroupLoader) {
	groupLoader = loader
}

// NewBaseVM creates a fully populated BaseVM for a page, including the
// sidebar group list.
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	vm := NewPlainVM(r, title, backDefault)
	if !vm.IsLoggedIn {
		return vm
	}

	list, ok := membership.Groups(r)
	if !ok && groupLoader != nil {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()
		if fetched, err := groupLoader(ctx, vm.UserID); err == nil {
			list = fetched
		}
	}
	vm.Groups = GroupList(list, vm.GroupID)
	for _, g := range vm.Groups {
		if g.Selected {
			vm.GroupName = g.Name
		}
	}
	return vm
}

// NewPlainVM is NewBaseVM without the sidebar. Error pages use it so a
// failing backend is not asked again.
func NewPlainVM(r *http.Request, title, backDefault string) BaseVM {
	vm := BaseVM{
		SiteName:    DefaultSiteName,
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}

	id, signedIn := auth.Current(r)
	if !signedIn {
		return vm
	}
	vm.IsLoggedIn = true
	vm.UserID = id.SubjectID
	vm.UserName = id.Name

	if gc, ok := groupctx.From(r); ok {
		if gid, ok := gc.GroupID(); ok {
			vm.HasGroup = true
			vm.GroupID = gid
		}
		if role, ok := gc.Role(); ok {
			vm.Role = role.String()
			vm.RoleLabel = role.Label()
			vm.IsManager = role.AtLeast(roles.Manager)
			vm.IsModerator = role.AtLeast(roles.Moderator)
		}
	}
	return vm
}

// GroupList converts backend summaries to sidebar rows, marking selected.
func GroupList(list []models.GroupSummary, selected int64) []GroupVM {
	out := make([]GroupVM, 0, len(list))
	for _, g := range list {
		role, _ := roles.Parse(g.Role)
		out = append(out, GroupVM{
			ID:        g.ID,
			Name:      g.Name,
			Role:      role.String(),
			RoleLabel: role.Label(),
			Members:   g.MembersCount,
			Selected:  g.ID == selected,
		})
	}
	return out
}

// Renderer renders a named template. Handlers hold one so tests can
// capture the view model instead of executing templates.
type Renderer func(w http.ResponseWriter, r *http.Request, name string, data any)

// Render is the production Renderer.
func Render(w http.ResponseWriter, r *http.Request, name string, data any) {
	templates.Render(w, r, name, data)
}

// Capture records the last render for assertions in tests.
type Capture struct {
	Name string
	Data any
}

// Renderer returns a Renderer that stores into c and writes the template
// name as the body.
func (c *Capture) Renderer() Renderer {
	return func(w http.ResponseWriter, r *http.Request, name string, data any) {
		c.Name = name
		c.Data = data
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(name))
	}
}
