package backend

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/bandmanager/internal/domain/models"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Accounts                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// VerifyLogin exchanges credentials for the user's profile. Any non-2xx is
// a failure.
func (c *Client) VerifyLogin(ctx context.Context, email, password string) (models.User, error) {
	var user models.User
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "", body, &user, "api", "verify", "login"); err != nil {
		return models.User{}, err
	}
	if user.ID <= 0 {
		return models.User{}, errors.New("login response has no user id")
	}
	return user, nil
}

// Registration is the sign-up form.
type Registration struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.do(ctx, http.MethodPost, "", reg, nil, "api", "verify", "register")
}

/*─────────────────────────────────────────────────────────────────────────────*
| Groups                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// UserGroups lists the groups userID belongs to, with their role in each.
func (c *Client) UserGroups(ctx context.Context, userID string) ([]models.GroupSummary, error) {
	var out struct {
		Groups []models.GroupSummary `json:"groups"`
	}
	if err := c.do(ctx, http.MethodGet, userID, nil, &out, "api", "group", "user", userID); err != nil {
		return nil, err
	}
	return out.Groups, nil
}

// GroupInfo returns name, description and (for managers) the join code.
func (c *Client) GroupInfo(ctx context.Context, groupID int64, userID string) (models.Group, error) {
	var g models.Group
	if err := c.do(ctx, http.MethodGet, userID, nil, &g, "api", "group", idString(groupID), userID); err != nil {
		return models.Group{}, err
	}
	g.ID = groupID
	return g, nil
}

// CreateGroup creates a group with userID as its manager.
func (c *Client) CreateGroup(ctx context.Context, userID, name, description string) (models.Membership, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return models.Membership{}, err
	}
	body := map[string]any{"user_id": uid, "name": name, "description": description}

	var out models.Membership
	if err := c.do(ctx, http.MethodPost, userID, body, &out, "api", "group", "create"); err != nil {
		return models.Membership{}, err
	}
	return out, nil
}

// JoinGroup adds userID to the group identified by the join code.
func (c *Client) JoinGroup(ctx context.Context, userID, accessToken string) (models.Membership, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return models.Membership{}, err
	}
	body := map[string]any{"user_id": uid, "access_token": accessToken}

	var out struct {
		Role    string `json:"role"`
		GroupID int64  `json:"group_id"`
		Name    string `json:"name"`
	}
	if err := c.do(ctx, http.MethodPost, userID, body, &out, "api", "group", "join"); err != nil {
		return models.Membership{}, err
	}
	return models.Membership{GroupID: out.GroupID, Name: out.Name, Role: out.Role}, nil
}

// GroupMembers lists the members of a group.
func (c *Client) GroupMembers(ctx context.Context, groupID int64, userID string) ([]models.Member, error) {
	var out struct {
		Members []models.Member `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, userID, nil, &out, "api", "group", "members", idString(groupID), userID); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// RemoveMember removes memberID from the group on behalf of requesterID.
func (c *Client) RemoveMember(ctx context.Context, groupID int64, requesterID string, memberID int64) error {
	return c.do(ctx, http.MethodDelete, requesterID, nil, nil,
		"api", "group", "remove", idString(groupID), requesterID, idString(memberID))
}

// RefreshJoinCode replaces the group's join code and returns the new one.
// Only managers may do this.
func (c *Client) RefreshJoinCode(ctx context.Context, groupID int64, userID string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPut, userID, nil, &out, "api", "group", "refresh-token", idString(groupID), userID); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("refresh response has no join code")
	}
	return out.AccessToken, nil
}

// UpdateMemberRole changes memberID's role on behalf of requesterID.
func (c *Client) UpdateMemberRole(ctx context.Context, groupID, memberID int64, requesterID, role string) error {
	body := map[string]string{"new_role": role}
	return c.do(ctx, http.MethodPut, requesterID, body, nil,
		"api", "group", "role", idString(groupID), idString(memberID), requesterID)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Events & announcements                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// GroupEvents lists the events of a group.
func (c *Client) GroupEvents(ctx context.Context, groupID int64, userID string) ([]models.Event, error) {
	var out struct {
		Events []models.Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, userID, nil, &out, "api", "event", "group", idString(groupID), userID); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// EventInput is the create and edit form of an event. GroupID is ignored
// on edit.
type EventInput struct {
	Title       string
	Location    string
	Description string
	Date        time.Time
	GroupID     int64
	TrackIDs    []int64
}

func (ev EventInput) trackIDs() []int64 {
	if ev.TrackIDs == nil {
		return []int64{}
	}
	return ev.TrackIDs
}

// CreateEvent adds an event to a group.
func (c *Client) CreateEvent(ctx context.Context, userID string, ev EventInput) (models.Event, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return models.Event{}, err
	}
	body := map[string]any{
		"title":       ev.Title,
		"location":    ev.Location,
		"description": ev.Description,
		"date":        ev.Date,
		"group_id":    ev.GroupID,
		"user_id":     uid,
		"track_ids":   ev.trackIDs(),
		"user_ids":    []int64{},
	}

	var out models.Event
	if err := c.do(ctx, http.MethodPost, userID, body, &out, "api", "event", "create"); err != nil {
		return models.Event{}, err
	}
	return out, nil
}

// EventInfo returns one event with the tracks assigned to it.
func (c *Client) EventInfo(ctx context.Context, eventID int64, userID string) (models.Event, error) {
	var ev models.Event
	if err := c.do(ctx, http.MethodGet, userID, nil, &ev, "api", "event", "info", idString(eventID), userID); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}

// UpdateEvent replaces an event's fields and its track list.
func (c *Client) UpdateEvent(ctx context.Context, eventID int64, userID string, ev EventInput) error {
	body := map[string]any{
		"title":       ev.Title,
		"location":    ev.Location,
		"description": ev.Description,
		"date":        ev.Date,
		"track_ids":   ev.trackIDs(),
		"user_ids":    []int64{},
	}
	return c.do(ctx, http.MethodPut, userID, body, nil, "api", "event", "update", idString(eventID), userID)
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, eventID int64, userID string) error {
	return c.do(ctx, http.MethodDelete, userID, nil, nil, "api", "event", "delete", idString(eventID), userID)
}

// GroupAnnouncements lists the announcements of a group.
func (c *Client) GroupAnnouncements(ctx context.Context, groupID int64, userID string) ([]models.Announcement, error) {
	var out struct {
		Announcements []models.Announcement `json:"announcements"`
	}
	if err := c.do(ctx, http.MethodGet, userID, nil, &out, "api", "announcement", "group", idString(groupID), userID); err != nil {
		return nil, err
	}
	return out.Announcements, nil
}

// NewAnnouncement is the create-announcement form. An empty RecipientIDs
// sends to every member.
type NewAnnouncement struct {
	Title        string
	Description  string
	Priority     int
	GroupID      int64
	RecipientIDs []int64
}

// CreateAnnouncement posts an announcement as userID.
func (c *Client) CreateAnnouncement(ctx context.Context, userID string, a NewAnnouncement) (models.Announcement, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return models.Announcement{}, err
	}
	recipients := a.RecipientIDs
	if recipients == nil {
		recipients = []int64{}
	}
	body := map[string]any{
		"title":         a.Title,
		"description":   a.Description,
		"priority":      a.Priority,
		"group_id":      a.GroupID,
		"sender_id":     uid,
		"recipient_ids": recipients,
	}

	var out models.Announcement
	if err := c.do(ctx, http.MethodPost, userID, body, &out, "api", "announcement", "create"); err != nil {
		return models.Announcement{}, err
	}
	return out, nil
}

// DeleteAnnouncement removes an announcement. The backend allows the
// sender and moderators.
func (c *Client) DeleteAnnouncement(ctx context.Context, announcementID int64, userID string) error {
	return c.do(ctx, http.MethodDelete, userID, nil, nil,
		"api", "announcement", "delete", idString(announcementID), userID)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Subgroups                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// GroupSubgroups lists the sections of a group.
func (c *Client) GroupSubgroups(ctx context.Context, groupID int64, userID string) ([]models.Subgroup, error) {
	var out struct {
		Subgroups []models.Subgroup `json:"subgroups"`
	}
	if err := c.do(ctx, http.MethodGet, userID, nil, &out, "api", "subgroup", "group", idString(groupID), userID); err != nil {
		return nil, err
	}
	return out.Subgroups, nil
}

// CreateSubgroup adds a section to a group.
func (c *Client) CreateSubgroup(ctx context.Context, userID string, groupID int64, name, description string) (models.Subgroup, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return models.Subgroup{}, err
	}
	body := map[string]any{"group_id": groupID, "name": name, "description": description, "user_id": uid}

	var out models.Subgroup
	if err := c.do(ctx, http.MethodPost, userID, body, &out, "api", "subgroup", "create"); err != nil {
		return models.Subgroup{}, err
	}
	return out, nil
}

// AddSubgroupMembers puts group members into a section.
func (c *Client) AddSubgroupMembers(ctx context.Context, subgroupID int64, userID string, memberIDs []int64) error {
	body := map[string]any{"user_ids": memberIDs}
	return c.do(ctx, http.MethodPost, userID, body, nil,
		"api", "subgroup", "members", "add", idString(subgroupID), userID)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Tracks                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// GroupTracks lists the repertoire of a group.
func (c *Client) GroupTracks(ctx context.Context, groupID int64, userID string) ([]models.Track, error) {
	var out struct {
		Tracks []models.Track `json:"tracks"`
	}
	if err := c.do(ctx, http.MethodGet, userID, nil, &out, "api", "track", "group", idString(groupID), userID); err != nil {
		return nil, err
	}
	return out.Tracks, nil
}

// CreateTrack adds a track to a group.
func (c *Client) CreateTrack(ctx context.Context, userID string, groupID int64, title, description string) (models.Track, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return models.Track{}, err
	}
	body := map[string]any{"title": title, "description": description, "group_id": groupID, "user_id": uid}

	var out models.Track
	if err := c.do(ctx, http.MethodPost, userID, body, &out, "api", "track", "create"); err != nil {
		return models.Track{}, err
	}
	return out, nil
}

// TrackNotesheets lists the parts uploaded for a track.
func (c *Client) TrackNotesheets(ctx context.Context, trackID int64, userID string) ([]models.Notesheet, error) {
	var out struct {
		Notesheets []models.Notesheet `json:"notesheets"`
	}
	if err := c.do(ctx, http.MethodGet, userID, nil, &out, "api", "track", "notesheets", idString(trackID), userID); err != nil {
		return nil, err
	}
	return out.Notesheets, nil
}
