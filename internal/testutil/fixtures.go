package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/bandmanager/internal/app/system/backend"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FakeBackend is an in-memory stand-in for the backend API. It serves the
// same routes, requires the user-id header on every non-verify call and
// enforces the same manager/moderator rules, so handler tests exercise the
// real backend.Client.
type FakeBackend struct {
	t      *testing.T
	Server *httptest.Server
	Client *backend.Client

	mu            sync.Mutex
	nextID        int64
	users         map[int64]*fakeUser
	groups        map[int64]*fakeGroup
	events        []models.Event
	announcements []models.Announcement
	subgroups     []models.Subgroup
	tracks        []models.Track
	failing       bool
	calls         []string
}

type fakeUser struct {
	models.User
	password string
}

type fakeGroup struct {
	models.Group
	roles map[int64]string
}

// NewFakeBackend starts the server and a client pointed at it.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		t:      t,
		nextID: 100,
		users:  map[int64]*fakeUser{},
		groups: map[int64]*fakeGroup{},
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)

	c, err := backend.NewClient(f.Server.URL, 5*time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("backend client: %v", err)
	}
	f.Client = c
	return f
}

/*─────────────────────────────────────────────────────────────────────────────*
| Fixtures                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (f *FakeBackend) id() int64 {
	f.nextID++
	return f.nextID
}

// AddUser creates an account and returns its TestUser.
func (f *FakeBackend) AddUser(first, last, email, password string) TestUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &fakeUser{User: models.User{ID: f.id(), FirstName: first, LastName: last, Email: email}, password: password}
	f.users[u.ID] = u
	return TestUser{ID: u.ID, Name: first + " " + last}
}

// AddGroup creates a group managed by manager and returns its id. The join
// code is "JOIN-<id>".
func (f *FakeBackend) AddGroup(name, description string, manager TestUser) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	gid := f.id()
	f.groups[gid] = &fakeGroup{
		Group: models.Group{ID: gid, Name: name, Description: description, AccessToken: "JOIN-" + strconv.FormatInt(gid, 10)},
		roles: map[int64]string{manager.ID: "manager"},
	}
	return gid
}

// SetMember adds u to the group or changes their role.
func (f *FakeBackend) SetMember(groupID int64, u TestUser, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[groupID].roles[u.ID] = role
}

// DropMember removes u from the group behind the frontend's back.
func (f *FakeBackend) DropMember(groupID int64, u TestUser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.groups[groupID].roles, u.ID)
}

// Role returns u's role in the group, or "".
func (f *FakeBackend) Role(groupID int64, u TestUser) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.groups[groupID]; ok {
		return g.roles[u.ID]
	}
	return ""
}

// AddEvent stores an event and returns its id.
func (f *FakeBackend) AddEvent(ev models.Event) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev.ID == 0 {
		ev.ID = f.id()
	}
	f.events = append(f.events, ev)
	return ev.ID
}

// Events returns every stored event.
func (f *FakeBackend) Events() []models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Event(nil), f.events...)
}

// AddAnnouncement stores an announcement.
func (f *FakeBackend) AddAnnouncement(a models.Announcement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == 0 {
		a.ID = f.id()
	}
	f.announcements = append(f.announcements, a)
}

// Announcements returns every stored announcement.
func (f *FakeBackend) Announcements() []models.Announcement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Announcement(nil), f.announcements...)
}

// JoinCode returns the group's current join code.
func (f *FakeBackend) JoinCode(groupID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups[groupID].AccessToken
}

// AddSubgroup stores a section of the group and returns its id.
func (f *FakeBackend) AddSubgroup(groupID int64, name string, members ...TestUser) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	sg := models.Subgroup{ID: f.id(), GroupID: groupID, Name: name, UserIDs: []int64{}}
	for _, m := range members {
		sg.UserIDs = append(sg.UserIDs, m.ID)
	}
	f.subgroups = append(f.subgroups, sg)
	return sg.ID
}

// Subgroups returns every stored subgroup.
func (f *FakeBackend) Subgroups() []models.Subgroup {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Subgroup(nil), f.subgroups...)
}

// AddTrack stores a track and returns its id.
func (f *FakeBackend) AddTrack(groupID int64, name string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	tr := models.Track{ID: f.id(), GroupID: groupID, Name: name, Notesheets: []models.Notesheet{}}
	f.tracks = append(f.tracks, tr)
	return tr.ID
}

// AddNotesheet attaches a part to a track.
func (f *FakeBackend) AddNotesheet(trackID int64, instrument, fileName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tracks {
		if f.tracks[i].ID == trackID {
			f.tracks[i].Notesheets = append(f.tracks[i].Notesheets, models.Notesheet{
				ID: f.id(), TrackID: trackID, Instrument: instrument, FileName: fileName,
			})
		}
	}
}

// Tracks returns every stored track.
func (f *FakeBackend) Tracks() []models.Track {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Track(nil), f.tracks...)
}

// SetFailing makes every call answer 500.
func (f *FakeBackend) SetFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

// Calls returns "METHOD path" for every request received.
func (f *FakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Routes                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (f *FakeBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.calls = append(f.calls, r.Method+" "+r.URL.Path)
			failing := f.failing
			f.mu.Unlock()
			if failing {
				http.Error(w, "backend exploded", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Post("/api/verify/login", f.login)
	r.Post("/api/verify/register", f.register)

	r.Group(func(r chi.Router) {
		r.Use(requireUserHeader)
		r.Get("/api/group/user/{userId}", f.userGroups)
		r.Post("/api/group/create", f.createGroup)
		r.Post("/api/group/join", f.joinGroup)
		r.Get("/api/group/members/{groupId}/{userId}", f.members)
		r.Delete("/api/group/remove/{groupId}/{requesterId}/{userId}", f.remove)
		r.Put("/api/group/role/{groupId}/{userId}/{requesterId}", f.changeRole)
		r.Put("/api/group/refresh-token/{groupId}/{userId}", f.refreshToken)
		r.Get("/api/group/{groupId}/{userId}", f.groupInfo)
		r.Get("/api/event/group/{groupId}/{userId}", f.groupEvents)
		r.Post("/api/event/create", f.createEvent)
		r.Get("/api/event/info/{eventId}/{userId}", f.eventInfo)
		r.Put("/api/event/update/{eventId}/{userId}", f.updateEvent)
		r.Delete("/api/event/delete/{eventId}/{userId}", f.deleteEvent)
		r.Get("/api/announcement/group/{groupId}/{userId}", f.groupAnnouncements)
		r.Post("/api/announcement/create", f.createAnnouncement)
		r.Delete("/api/announcement/delete/{announcementId}/{userId}", f.deleteAnnouncement)
		r.Get("/api/subgroup/group/{groupId}/{userId}", f.groupSubgroups)
		r.Post("/api/subgroup/create", f.createSubgroup)
		r.Post("/api/subgroup/members/add/{subgroupId}/{userId}", f.addSubgroupMembers)
		r.Get("/api/track/group/{groupId}/{userId}", f.groupTracks)
		r.Post("/api/track/create", f.createTrack)
		r.Get("/api/track/notesheets/{trackId}/{userId}", f.trackNotesheets)
	})
	return r
}

func requireUserHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(backend.UserIDHeader) == "" {
			http.Error(w, "missing user-id", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func fail(w http.ResponseWriter, format string, args ...any) {
	// The real backend answers 500 for every failure.
	http.Error(w, fmt.Sprintf(format, args...), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func param(r *http.Request, name string) int64 {
	n, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return n
}

func headerUser(r *http.Request) int64 {
	n, _ := strconv.ParseInt(r.Header.Get(backend.UserIDHeader), 10, 64)
	return n
}

func (f *FakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, "bad body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == in.Email && u.password == in.Password {
			out := u.User
			out.Groups = f.membershipsLocked(u.ID)
			writeJSON(w, out)
			return
		}
	}
	fail(w, "invalid credentials")
}

func (f *FakeBackend) register(w http.ResponseWriter, r *http.Request) {
	var in backend.Registration
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, "bad body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == in.Email {
			fail(w, "duplicate key value violates unique constraint")
			return
		}
	}
	u := &fakeUser{User: models.User{ID: f.id(), FirstName: in.FirstName, LastName: in.LastName, Email: in.Email}, password: in.Password}
	f.users[u.ID] = u
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, u.User)
}

func (f *FakeBackend) membershipsLocked(userID int64) []models.Membership {
	var out []models.Membership
	for _, g := range f.groups {
		if role, ok := g.roles[userID]; ok {
			out = append(out, models.Membership{GroupID: g.ID, Name: g.Name, Role: role})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out
}

func (f *FakeBackend) userGroups(w http.ResponseWriter, r *http.Request) {
	uid := param(r, "userId")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.GroupSummary{}
	for _, g := range f.groups {
		if role, ok := g.roles[uid]; ok {
			out = append(out, models.GroupSummary{ID: g.ID, Name: g.Name, Description: g.Description, Role: role, MembersCount: len(g.roles)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, map[string]any{"groups": out})
}

func (f *FakeBackend) roleLocked(groupID, userID int64) (*fakeGroup, string, bool) {
	g, ok := f.groups[groupID]
	if !ok {
		return nil, "", false
	}
	role, ok := g.roles[userID]
	return g, role, ok
}

func (f *FakeBackend) groupInfo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, role, ok := f.roleLocked(param(r, "groupId"), param(r, "userId"))
	if !ok {
		fail(w, "not a member")
		return
	}
	out := g.Group
	if role != "manager" {
		out.AccessToken = ""
	}
	writeJSON(w, out)
}

func (f *FakeBackend) createGroup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID      int64  `json:"user_id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		fail(w, "bad body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	gid := f.id()
	f.groups[gid] = &fakeGroup{
		Group: models.Group{ID: gid, Name: in.Name, Description: in.Description, AccessToken: "JOIN-" + strconv.FormatInt(gid, 10)},
		roles: map[int64]string{in.UserID: "manager"},
	}
	writeJSON(w, models.Membership{GroupID: gid, Name: in.Name, Role: "manager"})
}

func (f *FakeBackend) joinGroup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID      int64  `json:"user_id"`
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, "bad body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.AccessToken == in.AccessToken {
			if _, already := g.roles[in.UserID]; !already {
				g.roles[in.UserID] = "member"
			}
			writeJSON(w, map[string]any{"role": g.roles[in.UserID], "group_id": g.ID, "name": g.Name})
			return
		}
	}
	fail(w, "sql: no rows in result set")
}

func (f *FakeBackend) members(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, _, ok := f.roleLocked(param(r, "groupId"), param(r, "userId"))
	if !ok {
		fail(w, "not a member")
		return
	}
	out := []models.Member{}
	for uid, role := range g.roles {
		u := f.users[uid]
		m := models.Member{ID: uid, Role: role}
		if u != nil {
			m.FirstName, m.LastName, m.Email = u.FirstName, u.LastName, u.Email
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, map[string]any{"members": out})
}

func (f *FakeBackend) remove(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, role, ok := f.roleLocked(param(r, "groupId"), param(r, "requesterId"))
	if !ok || role != "manager" {
		fail(w, "only managers can remove members")
		return
	}
	delete(g.roles, param(r, "userId"))
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) changeRole(w http.ResponseWriter, r *http.Request) {
	var in struct {
		NewRole string `json:"new_role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, "bad body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	requester, target := param(r, "requesterId"), param(r, "userId")
	g, role, ok := f.roleLocked(param(r, "groupId"), requester)
	switch {
	case !ok || role != "manager":
		fail(w, "only managers can change roles")
		return
	case requester == target:
		fail(w, "cannot change own role")
		return
	}
	if _, member := g.roles[target]; !member {
		fail(w, "not a member")
		return
	}
	g.roles[target] = in.NewRole
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) groupEvents(w http.ResponseWriter, r *http.Request) {
	gid := param(r, "groupId")
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, _, ok := f.roleLocked(gid, param(r, "userId")); !ok {
		fail(w, "not a member")
		return
	}
	out := []models.Event{}
	for _, ev := range f.events {
		if ev.GroupID == gid {
			out = append(out, ev)
		}
	}
	writeJSON(w, map[string]any{"events": out})
}

func (f *FakeBackend) createEvent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		models.Event
		UserID   int64   `json:"user_id"`
		TrackIDs []int64 `json:"track_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, "bad body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, role, ok := f.roleLocked(in.GroupID, headerUser(r))
	if !ok || role == "member" {
		fail(w, "insufficient permissions")
		return
	}
	ev := in.Event
	ev.ID = f.id()
	ev.Tracks = f.tracksLocked(ev.GroupID, in.TrackIDs)
	f.events = append(f.events, ev)
	writeJSON(w, ev)
}

func (f *FakeBackend) groupAnnouncements(w http.ResponseWriter, r *http.Request) {
	gid := param(r, "groupId")
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, _, ok := f.roleLocked(gid, param(r, "userId")); !ok {
		fail(w, "not a member")
		return
	}
	out := []models.Announcement{}
	for _, a := range f.announcements {
		if a.GroupID == gid {
			out = append(out, a)
		}
	}
	writeJSON(w, map[string]any{"announcements": out})
}

func (f *FakeBackend) createAnnouncement(w http.ResponseWriter, r *http.Request) {
	var in models.Announcement
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, "bad body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, role, ok := f.roleLocked(in.GroupID, headerUser(r))
	if !ok || role == "member" {
		fail(w, "insufficient permissions")
		return
	}
	in.ID = f.id()
	in.CreatedAt = time.Now().UTC()
	f.announcements = append(f.announcements, in)
	writeJSON(w, in)
}

func isModerator(role string) bool { return role == "manager" || role == "moderator" }

func (f *FakeBackend) refreshToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, role, ok := f.roleLocked(param(r, "groupId"), param(r, "userId"))
	if !ok || role != "manager" {
		fail(w, "insufficient permissions - only managers can refresh access token")
		return
	}
	g.AccessToken = "JOIN-" + strconv.FormatInt(g.ID, 10) + "-" + strconv.FormatInt(f.id(), 10)
	writeJSON(w, map[string]string{"access_token": g.AccessToken, "message": "Access token refreshed successfully"})
}

// tracksLocked resolves track ids of groupID; ids of other groups are
// ignored the way the backend's join table would.
func (f *FakeBackend) tracksLocked(groupID int64, ids []int64) []models.Track {
	var out []models.Track
	for _, id := range ids {
		for _, tr := range f.tracks {
			if tr.ID == id && tr.GroupID == groupID {
				out = append(out, models.Track{ID: tr.ID, Name: tr.Name, GroupID: tr.GroupID})
			}
		}
	}
	return out
}

func (f *FakeBackend) eventIndexLocked(id int64) int {
	for i, ev := range f.events {
		if ev.ID == id {
			return i
		}
	}
	return -1
}

func (f *FakeBackend) eventInfo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.eventIndexLocked(param(r, "eventId"))
	if i < 0 {
		fail(w, "record not found")
		return
	}
	ev := f.events[i]
	if _, _, ok := f.roleLocked(ev.GroupID, param(r, "userId")); !ok {
		fail(w, "access denied")
		return
	}
	writeJSON(w, ev)
}

func (f *FakeBackend) updateEvent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Location    string    `json:"location"`
		Date        time.Time `json:"date"`
		TrackIDs    []int64   `json:"track_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, "bad body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.eventIndexLocked(param(r, "eventId"))
	if i < 0 {
		fail(w, "record not found")
		return
	}
	ev := &f.events[i]
	if _, role, ok := f.roleLocked(ev.GroupID, param(r, "userId")); !ok || !isModerator(role) {
		fail(w, "insufficient permissions")
		return
	}
	ev.Title, ev.Description, ev.Location, ev.Date = in.Title, in.Description, in.Location, in.Date
	ev.Tracks = f.tracksLocked(ev.GroupID, in.TrackIDs)
	writeJSON(w, map[string]string{"message": "Event updated successfully"})
}

func (f *FakeBackend) deleteEvent(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.eventIndexLocked(param(r, "eventId"))
	if i < 0 {
		fail(w, "record not found")
		return
	}
	if _, role, ok := f.roleLocked(f.events[i].GroupID, param(r, "userId")); !ok || !isModerator(role) {
		fail(w, "insufficient permissions")
		return
	}
	f.events = append(f.events[:i], f.events[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) deleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, uid := param(r, "announcementId"), param(r, "userId")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.announcements {
		if a.ID != id {
			continue
		}
		_, role, ok := f.roleLocked(a.GroupID, uid)
		if !ok || (!isModerator(role) && a.SenderID != uid) {
			fail(w, "insufficient permissions")
			return
		}
		f.announcements = append(f.announcements[:i], f.announcements[i+1:]...)
		writeJSON(w, map[string]string{"message": "Announcement deleted successfully"})
		return
	}
	fail(w, "record not found")
}

func (f *FakeBackend) groupSubgroups(w http.ResponseWriter, r *http.Request) {
	gid := param(r, "groupId")
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, _, ok := f.roleLocked(gid, param(r, "userId")); !ok {
		fail(w, "access denied")
		return
	}
	out := []models.Subgroup{}
	for _, sg := range f.subgroups {
		if sg.GroupID == gid {
			out = append(out, sg)
		}
	}
	writeJSON(w, map[string]any{"subgroups": out})
}

func (f *FakeBackend) createSubgroup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		GroupID     int64  `json:"group_id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		UserID      int64  `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		fail(w, "bad body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, role, ok := f.roleLocked(in.GroupID, in.UserID); !ok || !isModerator(role) {
		fail(w, "insufficient permissions")
		return
	}
	sg := models.Subgroup{ID: f.id(), GroupID: in.GroupID, Name: in.Name, Description: in.Description, UserIDs: []int64{}}
	f.subgroups = append(f.subgroups, sg)
	writeJSON(w, sg)
}

func (f *FakeBackend) addSubgroupMembers(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserIDs []int64 `json:"user_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, "bad body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.subgroups {
		sg := &f.subgroups[i]
		if sg.ID != param(r, "subgroupId") {
			continue
		}
		g, role, ok := f.roleLocked(sg.GroupID, param(r, "userId"))
		if !ok || !isModerator(role) {
			fail(w, "insufficient permissions")
			return
		}
		for _, uid := range in.UserIDs {
			if _, member := g.roles[uid]; !member {
				fail(w, "user is not a member of the group")
				return
			}
		}
		sg.UserIDs = append(sg.UserIDs, in.UserIDs...)
		writeJSON(w, map[string]string{"message": "Members added successfully"})
		return
	}
	fail(w, "record not found")
}

func (f *FakeBackend) groupTracks(w http.ResponseWriter, r *http.Request) {
	gid := param(r, "groupId")
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, _, ok := f.roleLocked(gid, param(r, "userId")); !ok {
		fail(w, "access denied")
		return
	}
	out := []models.Track{}
	for _, tr := range f.tracks {
		if tr.GroupID == gid {
			out = append(out, tr)
		}
	}
	writeJSON(w, map[string]any{"tracks": out})
}

func (f *FakeBackend) createTrack(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		GroupID     int64  `json:"group_id"`
		UserID      int64  `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" {
		fail(w, "bad body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, role, ok := f.roleLocked(in.GroupID, in.UserID); !ok || !isModerator(role) {
		fail(w, "insufficient permissions")
		return
	}
	tr := models.Track{ID: f.id(), GroupID: in.GroupID, Name: in.Title, Description: in.Description, Notesheets: []models.Notesheet{}}
	f.tracks = append(f.tracks, tr)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(tr)
}

func (f *FakeBackend) trackNotesheets(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tr := range f.tracks {
		if tr.ID != param(r, "trackId") {
			continue
		}
		if _, _, ok := f.roleLocked(tr.GroupID, param(r, "userId")); !ok {
			fail(w, "access denied")
			return
		}
		writeJSON(w, map[string]any{"notesheets": tr.Notesheets})
		return
	}
	fail(w, "record not found")
}
