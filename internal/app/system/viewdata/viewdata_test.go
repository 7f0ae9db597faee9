package viewdata

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/domain/models"
)

func withLoader(t *testing.T, l GroupLoader) {
	t.Helper()
	prev := groupLoader
	SetGroupLoader(l)
	t.Cleanup(func() { groupLoader = prev })
}

func TestNewBaseVM_Anonymous(t *testing.T) {
	called := false
	withLoader(t, func(context.Context, string) ([]models.GroupSummary, error) {
		called = true
		return nil, nil
	})

	vm := NewBaseVM(httptest.NewRequest("GET", "/login", nil), "Login", "/")

	if vm.IsLoggedIn || vm.HasGroup {
		t.Errorf("anonymous vm: %+v", vm)
	}
	if called {
		t.Error("group loader called for anonymous request")
	}
	if vm.SiteName != DefaultSiteName || vm.Title != "Login" {
		t.Errorf("SiteName/Title: %q %q", vm.SiteName, vm.Title)
	}
}

func TestNewBaseVM_SelectedGroup(t *testing.T) {
	withLoader(t, func(_ context.Context, userID string) ([]models.GroupSummary, error) {
		if userID != "42" {
			t.Errorf("loader userID = %q", userID)
		}
		return []models.GroupSummary{
			{ID: 5, Name: "Brass Section", Role: "moderator", MembersCount: 4},
			{ID: 6, Name: "Jazz Trio", Role: "member", MembersCount: 3},
		}, nil
	})

	r := httptest.NewRequest("GET", "/events", nil)
	gid := int64(5)
	r = auth.WithTestIdentity(r, auth.Identity{SubjectID: "42", Name: "Ann Lee", GroupID: &gid, Role: roles.Moderator})
	r = groupctx.WithTestSelection(r, groupctx.Group(5, roles.Moderator))

	vm := NewBaseVM(r, "Events", "/")

	if !vm.IsLoggedIn || vm.UserName != "Ann Lee" {
		t.Errorf("user fields: %+v", vm)
	}
	if !vm.HasGroup || vm.GroupID != 5 || vm.GroupName != "Brass Section" {
		t.Errorf("group fields: %d %q", vm.GroupID, vm.GroupName)
	}
	if !vm.IsModerator || vm.IsManager {
		t.Errorf("role flags: moderator=%v manager=%v", vm.IsModerator, vm.IsManager)
	}
	if vm.RoleLabel != "Moderator" {
		t.Errorf("RoleLabel = %q", vm.RoleLabel)
	}
	if len(vm.Groups) != 2 || !vm.Groups[0].Selected || vm.Groups[1].Selected {
		t.Errorf("sidebar: %+v", vm.Groups)
	}
}

func TestNewBaseVM_LoaderErrorLeavesSidebarEmpty(t *testing.T) {
	withLoader(t, func(context.Context, string) ([]models.GroupSummary, error) {
		return nil, errors.New("backend down")
	})

	r := auth.WithTestIdentity(httptest.NewRequest("GET", "/dashboard", nil), auth.Identity{SubjectID: "42"})
	vm := NewBaseVM(r, "Dashboard", "/")

	if len(vm.Groups) != 0 {
		t.Errorf("expected empty sidebar, got %+v", vm.Groups)
	}
}

func TestNewPlainVM_SkipsLoader(t *testing.T) {
	withLoader(t, func(context.Context, string) ([]models.GroupSummary, error) {
		t.Error("loader must not be called")
		return nil, nil
	})

	r := auth.WithTestIdentity(httptest.NewRequest("GET", "/", nil), auth.Identity{SubjectID: "42"})
	_ = NewPlainVM(r, "Error", "/")
}

func TestCapture(t *testing.T) {
	var c Capture
	rec := httptest.NewRecorder()
	c.Renderer()(rec, httptest.NewRequest("GET", "/", nil), "home", 7)

	if c.Name != "home" || c.Data != 7 {
		t.Errorf("capture: %+v", c)
	}
	if rec.Body.String() != "home" {
		t.Errorf("body = %q", rec.Body.String())
	}
}
