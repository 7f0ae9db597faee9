package auditlog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	uierrors "github.com/dalemusser/bandmanager/internal/app/features/errors"
	"github.com/dalemusser/bandmanager/internal/app/store/audit"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeQuerier struct {
	events  []audit.Event
	total   int64
	err     error
	filters []audit.QueryFilter
}

func (f *fakeQuerier) Query(_ context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	f.filters = append(f.filters, filter)
	return f.events, f.err
}

func (f *fakeQuerier) CountByFilter(_ context.Context, filter audit.QueryFilter) (int64, error) {
	return f.total, f.err
}

type env struct {
	h       *Handler
	q       *fakeQuerier
	fb      *testutil.FakeBackend
	capture *viewdata.Capture
	ann     testutil.TestUser
	bob     testutil.TestUser
	group   int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	t.Cleanup(uierrors.SetRenderer(new(viewdata.Capture).Renderer()))

	fb := testutil.NewFakeBackend(t)
	q := &fakeQuerier{}
	logger := zap.NewNop()
	h := NewHandler(q, fb.Client, uierrors.NewErrorLogger(logger), logger)
	capture := &viewdata.Capture{}
	h.Render = capture.Renderer()

	e := &env{h: h, q: q, fb: fb, capture: capture}
	e.ann = fb.AddUser("Ann", "Lee", "ann@example.com", "pw")
	e.bob = fb.AddUser("Bob", "Ray", "bob@example.com", "pw")
	e.group = fb.AddGroup("Brass", "", e.ann)
	fb.SetMember(e.group, e.bob, "member")
	return e
}

func (e *env) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := testutil.WithSelection(httptest.NewRequest("GET", target, nil), e.ann, e.group, roles.Manager)
	e.h.ServeList(rec, req)
	return rec
}

func TestServeList_ScopedToGroupWithNames(t *testing.T) {
	e := newEnv(t)
	gid := e.group
	e.q.events = []audit.Event{{
		ID:        primitive.NewObjectID(),
		Timestamp: time.Now(),
		GroupID:   &gid,
		Category:  audit.CategoryGroup,
		EventType: audit.EventMemberRoleChanged,
		ActorID:   strconv.FormatInt(e.ann.ID, 10),
		UserID:    strconv.FormatInt(e.bob.ID, 10),
		Success:   true,
	}, {
		ID:        primitive.NewObjectID(),
		GroupID:   &gid,
		Category:  audit.CategoryGroup,
		EventType: audit.EventMemberRemoved,
		UserID:    "999",
		Success:   true,
	}}
	e.q.total = 2

	rec := e.get("/activity")

	testutil.AssertStatus(t, rec, http.StatusOK)
	assert.Equal(t, "activity_list", e.capture.Name)
	require.Len(t, e.q.filters, 1)
	require.NotNil(t, e.q.filters[0].GroupID)
	assert.Equal(t, e.group, *e.q.filters[0].GroupID)

	data := e.capture.Data.(listData)
	require.Len(t, data.Items, 2)
	assert.Equal(t, "Ann Lee", data.Items[0].ActorName)
	assert.Equal(t, "Bob Ray", data.Items[0].TargetName)
	assert.Equal(t, "#999", data.Items[1].TargetName, "former members show as their id")
	assert.Equal(t, 1, data.TotalPages)
}

func TestServeList_FiltersAndPaging(t *testing.T) {
	e := newEnv(t)
	e.q.total = 120

	e.get("/activity?category=group&event_type=group_joined&start_date=2026-01-01&end_date=2026-01-31&page=2")

	require.Len(t, e.q.filters, 1)
	f := e.q.filters[0]
	assert.Equal(t, audit.CategoryGroup, f.Category)
	assert.Equal(t, audit.EventGroupJoined, f.EventType)
	assert.Equal(t, int64(pageSize), f.Offset)
	require.NotNil(t, f.StartTime)
	require.NotNil(t, f.EndTime)
	assert.Equal(t, 31, f.EndTime.Day())

	data := e.capture.Data.(listData)
	assert.Equal(t, 3, data.TotalPages)
	assert.True(t, data.HasPrev)
	assert.True(t, data.HasNext)
	assert.Equal(t, 1, data.PrevPage)
	assert.Equal(t, 3, data.NextPage)
}

func TestServeList_UnknownFiltersIgnored(t *testing.T) {
	e := newEnv(t)

	e.get("/activity?category=auth&event_type=login_success&page=-4")

	f := e.q.filters[0]
	assert.Empty(t, f.Category, "auth events never carry a group")
	assert.Empty(t, f.EventType)
	assert.Equal(t, int64(0), f.Offset)
}

func TestServeList_StoreError(t *testing.T) {
	e := newEnv(t)
	e.q.err = errors.New("mongo down")

	rec := e.get("/activity")
	testutil.AssertStatus(t, rec, http.StatusInternalServerError)
}

func TestServeList_StorageDisabled(t *testing.T) {
	e := newEnv(t)
	e.h.Store = nil

	rec := e.get("/activity")

	testutil.AssertStatus(t, rec, http.StatusOK)
	assert.True(t, e.capture.Data.(listData).Disabled)
}

func TestServeList_BackendDownStillLists(t *testing.T) {
	e := newEnv(t)
	e.q.events = []audit.Event{{ID: primitive.NewObjectID(), EventType: audit.EventGroupJoined, UserID: "5"}}
	e.q.total = 1
	e.fb.SetFailing(true)

	rec := e.get("/activity")

	testutil.AssertStatus(t, rec, http.StatusOK)
	assert.Equal(t, "#5", e.capture.Data.(listData).Items[0].TargetName)
}
