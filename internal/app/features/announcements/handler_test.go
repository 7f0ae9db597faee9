package announcements

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	uierrors "github.com/dalemusser/bandmanager/internal/app/features/errors"
	"github.com/dalemusser/bandmanager/internal/app/store/audit"
	"github.com/dalemusser/bandmanager/internal/app/system/auditlog"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/guards"
	"github.com/dalemusser/bandmanager/internal/app/system/membership"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"github.com/dalemusser/bandmanager/internal/testutil"
	"go.uber.org/zap"
)

type memSink struct{ events []audit.Event }

func (m *memSink) Log(_ context.Context, ev audit.Event) error {
	m.events = append(m.events, ev)
	return nil
}

type env struct {
	h       *Handler
	fb      *testutil.FakeBackend
	sink    *memSink
	capture *viewdata.Capture
	mod     testutil.TestUser
	member  testutil.TestUser
	group   int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	t.Cleanup(uierrors.SetRenderer(new(viewdata.Capture).Renderer()))

	fb := testutil.NewFakeBackend(t)
	sink := &memSink{}
	logger := zap.NewNop()
	sm := testutil.NewSessionManager(t, nil)
	h := NewHandler(fb.Client, membership.New(fb.Client, sm, nil, logger), uierrors.NewErrorLogger(logger),
		auditlog.New(sink, logger, auditlog.Config{Auth: "db", Group: "db"}), logger)
	capture := &viewdata.Capture{}
	h.Render = capture.Renderer()

	e := &env{h: h, fb: fb, sink: sink, capture: capture}
	owner := fb.AddUser("Ann", "Lee", "ann@example.com", "pw")
	e.mod = fb.AddUser("Cy", "Ames", "cy@example.com", "pw")
	e.member = fb.AddUser("Bob", "Ray", "bob@example.com", "pw")
	e.group = fb.AddGroup("Brass", "", owner)
	fb.SetMember(e.group, e.mod, "moderator")
	fb.SetMember(e.group, e.member, "member")
	return e
}

func TestServeList_NewestFirstAndSanitized(t *testing.T) {
	e := newEnv(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e.fb.AddAnnouncement(models.Announcement{GroupID: e.group, Title: "Old", Priority: 0, CreatedAt: base})
	e.fb.AddAnnouncement(models.Announcement{GroupID: e.group, Title: "New", Priority: 2, CreatedAt: base.Add(time.Hour),
		Description: `hi <script>alert(1)</script>`})
	e.fb.AddAnnouncement(models.Announcement{GroupID: e.group + 100, Title: "Elsewhere", CreatedAt: base})

	req := testutil.WithSelection(httptest.NewRequest("GET", "/announcements", nil), e.member, e.group, roles.Member)
	rec := httptest.NewRecorder()
	e.h.ServeList(rec, req)

	testutil.AssertStatus(t, rec, http.StatusOK)
	if e.capture.Name != "announcements_list" {
		t.Fatalf("rendered %q", e.capture.Name)
	}
	data := e.capture.Data.(listData)
	if len(data.Items) != 2 {
		t.Fatalf("items = %+v", data.Items)
	}
	if data.Items[0].Title != "New" || data.Items[1].Title != "Old" {
		t.Errorf("order = %q, %q", data.Items[0].Title, data.Items[1].Title)
	}
	if data.Items[0].PriorityLabel != "High" {
		t.Errorf("priority label = %q", data.Items[0].PriorityLabel)
	}
	if strings.Contains(string(data.Items[0].Description), "<script>") {
		t.Errorf("description not sanitized: %q", data.Items[0].Description)
	}
	if data.CanPost {
		t.Error("members must not see the post button")
	}
}

func TestServeList_ModeratorCanPost(t *testing.T) {
	e := newEnv(t)

	req := testutil.WithSelection(httptest.NewRequest("GET", "/announcements?done=created", nil), e.mod, e.group, roles.Moderator)
	e.h.ServeList(httptest.NewRecorder(), req)

	data := e.capture.Data.(listData)
	if !data.CanPost {
		t.Error("moderator should see the post button")
	}
	if data.Success == "" {
		t.Error("expected a success message")
	}
}

func TestServeList_BackendDown(t *testing.T) {
	e := newEnv(t)
	e.fb.SetFailing(true)

	req := testutil.WithSelection(httptest.NewRequest("GET", "/announcements", nil), e.member, e.group, roles.Member)
	rec := httptest.NewRecorder()
	e.h.ServeList(rec, req)

	testutil.AssertStatus(t, rec, http.StatusInternalServerError)
}

func TestServeList_RemovedMemberReturnsToDashboard(t *testing.T) {
	e := newEnv(t)
	e.fb.DropMember(e.group, e.member)

	req := testutil.WithSelection(httptest.NewRequest("GET", "/announcements", nil), e.member, e.group, roles.Member)
	rec := httptest.NewRecorder()
	e.h.ServeList(rec, req)

	testutil.AssertRedirect(t, rec, "/dashboard")
	gc, _ := groupctx.From(req)
	if _, ok := gc.GroupID(); ok {
		t.Error("selection kept after the backend dropped the member")
	}
}

func TestHandleNew_Success(t *testing.T) {
	e := newEnv(t)

	form := url.Values{"title": {"Rehearsal moved"}, "description": {"Now at 7."}, "priority": {"1"}}
	req := testutil.WithSelection(testutil.NewFormRequest("/announcements/new", form), e.mod, e.group, roles.Moderator)
	rec := httptest.NewRecorder()
	e.h.HandleNew(rec, req)

	testutil.AssertRedirect(t, rec, "/announcements?done=created")
	got := e.fb.Announcements()
	if len(got) != 1 || got[0].Title != "Rehearsal moved" || got[0].Priority != 1 || got[0].GroupID != e.group {
		t.Errorf("stored = %+v", got)
	}
	if len(e.sink.events) != 1 || e.sink.events[0].EventType != audit.EventAnnouncementCreated {
		t.Errorf("audit = %+v", e.sink.events)
	}
}

func TestHandleNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"missing title", url.Values{"priority": {"0"}}, "Title is required."},
		{"bad priority", url.Values{"title": {"x"}, "priority": {"7"}}, "Priority is invalid."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			req := testutil.WithSelection(testutil.NewFormRequest("/announcements/new", tt.form), e.mod, e.group, roles.Moderator)
			rec := httptest.NewRecorder()
			e.h.HandleNew(rec, req)

			data := e.capture.Data.(newData)
			if data.Error != tt.want {
				t.Errorf("Error = %q, want %q", data.Error, tt.want)
			}
			if len(e.fb.Announcements()) != 0 {
				t.Error("nothing should be stored")
			}
		})
	}
}

func TestHandleNew_BackendRefusesMember(t *testing.T) {
	e := newEnv(t)

	// The cached role claims moderator; the backend says member.
	form := url.Values{"title": {"Sneaky"}, "priority": {"0"}}
	req := testutil.WithSelection(testutil.NewFormRequest("/announcements/new", form), e.member, e.group, roles.Moderator)
	rec := httptest.NewRecorder()
	e.h.HandleNew(rec, req)

	data := e.capture.Data.(newData)
	if data.Error == "" {
		t.Error("expected the form to show an error")
	}
	if len(e.fb.Announcements()) != 0 {
		t.Error("announcement stored despite backend refusal")
	}
	if len(e.sink.events) != 0 {
		t.Errorf("audit = %+v", e.sink.events)
	}
}

func TestRoutes_MemberCannotOpenForm(t *testing.T) {
	e := newEnv(t)
	sm := testutil.NewSessionManager(t, nil)
	denied := 0
	g := guards.New(guards.Config{
		Strict: true,
		Denied: func(w http.ResponseWriter, r *http.Request, msg string) {
			denied++
			w.WriteHeader(http.StatusForbidden)
		},
	})
	rv := membership.New(e.fb.Client, sm, nil, zap.NewNop())
	router := Routes(e.h, sm, g, rv)

	req := testutil.WithSelection(httptest.NewRequest("GET", "/new", nil), e.member, e.group, roles.Member)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	testutil.AssertStatus(t, rec, http.StatusForbidden)
	if denied != 1 {
		t.Errorf("denied = %d, want 1", denied)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.WithSelection(httptest.NewRequest("GET", "/", nil), e.member, e.group, roles.Member))
	testutil.AssertStatus(t, rec, http.StatusOK)
	if e.capture.Name != "announcements_list" {
		t.Errorf("rendered %q", e.capture.Name)
	}
}

func withID(r *http.Request, id int64) *http.Request {
	return testutil.WithChiURLParam(r, "id", strconv.FormatInt(id, 10))
}

func TestServeDetail(t *testing.T) {
	e := newEnv(t)
	e.fb.AddAnnouncement(models.Announcement{ID: 501, GroupID: e.group, Title: "Tour", Priority: 2})

	req := withID(testutil.WithSelection(httptest.NewRequest("GET", "/announcements/501", nil), e.mod, e.group, roles.Moderator), 501)
	rec := httptest.NewRecorder()
	e.h.ServeDetail(rec, req)

	testutil.AssertStatus(t, rec, http.StatusOK)
	data := e.capture.Data.(detailData)
	if data.Item.Title != "Tour" || data.Item.PriorityLabel != "High" {
		t.Errorf("Item = %+v", data.Item)
	}
	if !data.CanDelete {
		t.Error("moderators should see the delete button")
	}
}

func TestServeDetail_OtherGroupIsNotFound(t *testing.T) {
	e := newEnv(t)
	e.fb.AddAnnouncement(models.Announcement{ID: 502, GroupID: e.group + 100, Title: "Elsewhere"})

	req := withID(testutil.WithSelection(httptest.NewRequest("GET", "/announcements/502", nil), e.member, e.group, roles.Member), 502)
	rec := httptest.NewRecorder()
	e.h.ServeDetail(rec, req)

	testutil.AssertStatus(t, rec, http.StatusNotFound)
}

func TestHandleDelete(t *testing.T) {
	e := newEnv(t)
	e.fb.AddAnnouncement(models.Announcement{ID: 503, GroupID: e.group, Title: "Old news"})

	req := withID(testutil.WithSelection(testutil.NewFormRequest("/announcements/503/delete", url.Values{}), e.mod, e.group, roles.Moderator), 503)
	rec := httptest.NewRecorder()
	e.h.HandleDelete(rec, req)

	testutil.AssertRedirect(t, rec, "/announcements?done=deleted")
	if len(e.fb.Announcements()) != 0 {
		t.Error("announcement still stored")
	}
	if len(e.sink.events) != 1 || e.sink.events[0].EventType != audit.EventAnnouncementDeleted {
		t.Errorf("audit = %+v", e.sink.events)
	}
}

func TestRoutes_MemberCannotDelete(t *testing.T) {
	e := newEnv(t)
	e.fb.AddAnnouncement(models.Announcement{ID: 504, GroupID: e.group, Title: "Keep me"})
	sm := testutil.NewSessionManager(t, nil)
	g := guards.New(guards.Config{
		Strict: true,
		Denied: func(w http.ResponseWriter, r *http.Request, msg string) {
			w.WriteHeader(http.StatusForbidden)
		},
	})
	router := Routes(e.h, sm, g, membership.New(e.fb.Client, sm, nil, zap.NewNop()))

	req := testutil.WithSelection(testutil.NewFormRequest("/504/delete", url.Values{}), e.member, e.group, roles.Member)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	testutil.AssertStatus(t, rec, http.StatusForbidden)
	if len(e.fb.Announcements()) != 1 {
		t.Error("member deleted an announcement")
	}
}
