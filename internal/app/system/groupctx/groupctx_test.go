package groupctx_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"go.uber.org/zap"
)

const testKey = "test-group-cache-key-must-be-32-bytes"

func newCookieStore(t *testing.T) *groupctx.CookieStore {
	t.Helper()
	s, err := groupctx.NewCookieStore([]byte(testKey), groupctx.CookieOptions{MaxAge: time.Hour})
	if err != nil {
		t.Fatalf("NewCookieStore: %v", err)
	}
	return s
}

// contextFor runs req through Provider and returns the Context it built
// together with the recorder its writes go to.
func contextFor(t *testing.T, store groupctx.Store, req *http.Request) (*groupctx.Context, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	var gc *groupctx.Context
	groupctx.Provider(store, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gc, _ = groupctx.From(r)
	})).ServeHTTP(rec, req)
	if gc == nil {
		t.Fatal("Provider did not install a Context")
	}
	return gc, rec
}

// carry copies the cookies set on rec into a new request.
func carry(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest("GET", "/events", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			continue
		}
		req.AddCookie(c)
	}
	return req
}

// failingStore loads an initial selection and fails every write.
type failingStore struct {
	initial groupctx.Selection
	saves   int
}

func (f *failingStore) Load(*http.Request) (groupctx.Selection, error) { return f.initial, nil }
func (f *failingStore) Save(http.ResponseWriter, *http.Request, groupctx.Selection) error {
	f.saves++
	return errors.New("disk full")
}
func (f *failingStore) Clear(http.ResponseWriter, *http.Request) error { return errors.New("disk full") }

func TestFrom_WithoutProvider(t *testing.T) {
	if _, ok := groupctx.From(httptest.NewRequest("GET", "/", nil)); ok {
		t.Error("From reported a Context without Provider")
	}
}

func TestSelectGroup_PersistsAndRoundTrips(t *testing.T) {
	store := newCookieStore(t)
	gc, rec := contextFor(t, store, httptest.NewRequest("POST", "/groups/5/select", nil))

	if err := gc.SelectGroup(5, roles.Manager); err != nil {
		t.Fatalf("SelectGroup: %v", err)
	}

	// A fresh load (the next page load) sees the same pair.
	next, _ := contextFor(t, store, carry(rec))
	id, ok := next.GroupID()
	if !ok || id != 5 {
		t.Errorf("GroupID() = %d, %v; want 5, true", id, ok)
	}
	role, ok := next.Role()
	if !ok || role != roles.Manager {
		t.Errorf("Role() = %q, %v; want manager, true", role, ok)
	}
}

func TestSelectGroup_WritesBothCookies(t *testing.T) {
	gc, rec := contextFor(t, newCookieStore(t), httptest.NewRequest("POST", "/", nil))
	if err := gc.SelectGroup(3, roles.Member); err != nil {
		t.Fatalf("SelectGroup: %v", err)
	}

	names := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		names[c.Name] = true
	}
	if !names[groupctx.GroupIDCookie] || !names[groupctx.RoleCookie] {
		t.Errorf("cookies set = %v, want both %s and %s", names, groupctx.GroupIDCookie, groupctx.RoleCookie)
	}
}

func TestSelectGroup_Validates(t *testing.T) {
	gc, rec := contextFor(t, newCookieStore(t), httptest.NewRequest("POST", "/", nil))

	for _, tc := range []struct {
		id   int64
		role roles.Role
	}{
		{0, roles.Member},
		{-1, roles.Manager},
		{4, roles.None},
		{4, roles.Role("owner")},
	} {
		if err := gc.SelectGroup(tc.id, tc.role); !errors.Is(err, groupctx.ErrInvalidSelection) {
			t.Errorf("SelectGroup(%d, %q) err = %v, want ErrInvalidSelection", tc.id, tc.role, err)
		}
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("invalid selections must not write cookies")
	}
}

func TestSelectGroup_StoreFailureKeepsPreviousPair(t *testing.T) {
	store := &failingStore{initial: groupctx.Group(1, roles.Member)}
	gc, _ := contextFor(t, store, httptest.NewRequest("POST", "/", nil))

	if err := gc.SelectGroup(2, roles.Manager); err == nil {
		t.Fatal("expected error from failing store")
	}

	sel := gc.Selection()
	if id, _ := sel.Group(); id != 1 || sel.Role != roles.Member {
		t.Errorf("selection = %d/%q, want previous 1/member", id, sel.Role)
	}
}

func TestSetRole_NoGroupStoresNothing(t *testing.T) {
	gc, rec := contextFor(t, newCookieStore(t), httptest.NewRequest("POST", "/", nil))

	err := gc.SetRole(roles.Manager)
	if !errors.Is(err, groupctx.ErrNoGroupSelected) {
		t.Fatalf("err = %v, want ErrNoGroupSelected", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("SetRole without a group wrote cookies")
	}
	if _, ok := gc.Role(); ok {
		t.Error("Role() reported a role without a group")
	}
}

func TestSetRole_UpdatesCurrentGroup(t *testing.T) {
	store := newCookieStore(t)
	gc, rec := contextFor(t, store, httptest.NewRequest("POST", "/", nil))
	if err := gc.SelectGroup(8, roles.Manager); err != nil {
		t.Fatalf("SelectGroup: %v", err)
	}

	next, rec2 := contextFor(t, store, carry(rec))
	if err := next.SetRole(roles.Member); err != nil {
		t.Fatalf("SetRole: %v", err)
	}

	final, _ := contextFor(t, store, carry(rec2))
	sel := final.Selection()
	if id, _ := sel.Group(); id != 8 || sel.Role != roles.Member {
		t.Errorf("selection = %d/%q, want 8/member", id, sel.Role)
	}
}

func TestClearGroup_ExpiresBothCookies(t *testing.T) {
	store := newCookieStore(t)
	gc, rec := contextFor(t, store, httptest.NewRequest("POST", "/", nil))
	_ = gc.SelectGroup(5, roles.Manager)

	next, rec2 := contextFor(t, store, carry(rec))
	if err := next.ClearGroup(); err != nil {
		t.Fatalf("ClearGroup: %v", err)
	}
	if _, ok := next.GroupID(); ok {
		t.Error("GroupID() still set after ClearGroup")
	}

	expired := map[string]bool{}
	for _, c := range rec2.Result().Cookies() {
		if c.MaxAge < 0 {
			expired[c.Name] = true
		}
	}
	if !expired[groupctx.GroupIDCookie] || !expired[groupctx.RoleCookie] {
		t.Errorf("expired cookies = %v, want both", expired)
	}
}

func TestClearGroup_ResetsEvenIfStoreFails(t *testing.T) {
	store := &failingStore{initial: groupctx.Group(1, roles.Manager)}
	gc, _ := contextFor(t, store, httptest.NewRequest("POST", "/", nil))

	if err := gc.ClearGroup(); err == nil {
		t.Error("expected error from failing store")
	}
	if !gc.Selection().Empty() {
		t.Error("selection not reset")
	}
}

func TestCookieStore_RoleWithoutGroupIgnored(t *testing.T) {
	store := newCookieStore(t)
	gc, rec := contextFor(t, store, httptest.NewRequest("POST", "/", nil))
	_ = gc.SelectGroup(5, roles.Manager)

	// Keep only the role cookie.
	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.Name == groupctx.RoleCookie {
			req.AddCookie(c)
		}
	}

	next, _ := contextFor(t, store, req)
	if _, ok := next.Role(); ok {
		t.Error("role trusted without a group")
	}
}

func TestCookieStore_TamperedCookieIsNoSelection(t *testing.T) {
	store := newCookieStore(t)
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: groupctx.GroupIDCookie, Value: "5"})
	req.AddCookie(&http.Cookie{Name: groupctx.RoleCookie, Value: "manager"})

	gc, _ := contextFor(t, store, req)
	if !gc.Selection().Empty() {
		t.Error("unsigned cookies produced a selection")
	}
}

// cookieNamed returns the cookie called name from rec.
func cookieNamed(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %s cookie set", name)
	return nil
}

func asUser(r *http.Request, subject string) *http.Request {
	return auth.WithTestIdentity(r, auth.Identity{SubjectID: subject, Role: roles.Member})
}

func TestCookieStore_RoundTripForSameUser(t *testing.T) {
	store := newCookieStore(t)
	gc, rec := contextFor(t, store, asUser(httptest.NewRequest("POST", "/", nil), "42"))
	if err := gc.SelectGroup(5, roles.Manager); err != nil {
		t.Fatalf("SelectGroup: %v", err)
	}

	next, _ := contextFor(t, store, asUser(carry(rec), "42"))
	if id, ok := next.GroupID(); !ok || id != 5 {
		t.Fatalf("GroupID = %d, %v", id, ok)
	}
	if role, ok := next.Role(); !ok || role != roles.Manager {
		t.Errorf("Role = %q, %v", role, ok)
	}
}

func TestCookieStore_SwappedRoleCookieIsNoSelection(t *testing.T) {
	store := newCookieStore(t)

	// Manager of group 9, member of group 5.
	mgr, recMgr := contextFor(t, store, asUser(httptest.NewRequest("POST", "/", nil), "42"))
	_ = mgr.SelectGroup(9, roles.Manager)
	mem, recMem := contextFor(t, store, asUser(httptest.NewRequest("POST", "/", nil), "42"))
	_ = mem.SelectGroup(5, roles.Member)

	req := asUser(httptest.NewRequest("GET", "/", nil), "42")
	req.AddCookie(cookieNamed(t, recMem, groupctx.GroupIDCookie))
	req.AddCookie(cookieNamed(t, recMgr, groupctx.RoleCookie))

	next, _ := contextFor(t, store, req)
	if !next.Selection().Empty() {
		t.Errorf("swapped cookies produced %+v", next.Selection())
	}
}

func TestCookieStore_OtherUsersCookiesAreNoSelection(t *testing.T) {
	store := newCookieStore(t)
	gc, rec := contextFor(t, store, asUser(httptest.NewRequest("POST", "/", nil), "42"))
	_ = gc.SelectGroup(5, roles.Manager)

	next, _ := contextFor(t, store, asUser(carry(rec), "7"))
	if !next.Selection().Empty() {
		t.Error("another user's selection was accepted")
	}
}

func TestCookieStore_OtherKeyRejected(t *testing.T) {
	store := newCookieStore(t)
	gc, rec := contextFor(t, store, httptest.NewRequest("POST", "/", nil))
	_ = gc.SelectGroup(5, roles.Manager)

	other, err := groupctx.NewCookieStore([]byte(strings.Repeat("k", 40)), groupctx.CookieOptions{})
	if err != nil {
		t.Fatalf("NewCookieStore: %v", err)
	}
	next, _ := contextFor(t, other, carry(rec))
	if !next.Selection().Empty() {
		t.Error("cookies signed with another key were accepted")
	}
}

func TestNewCookieStore_ShortKey(t *testing.T) {
	if _, err := groupctx.NewCookieStore([]byte("short"), groupctx.CookieOptions{}); err == nil {
		t.Error("expected error for short key")
	}
}

func TestWithTestSelection(t *testing.T) {
	req := groupctx.WithTestSelection(httptest.NewRequest("GET", "/", nil), groupctx.Group(4, roles.Moderator))
	gc, ok := groupctx.From(req)
	if !ok {
		t.Fatal("no Context")
	}
	if role, _ := gc.Role(); role != roles.Moderator {
		t.Errorf("Role() = %q", role)
	}
	if err := gc.ClearGroup(); err != nil {
		t.Errorf("ClearGroup: %v", err)
	}
}
