// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/bandmanager/internal/app/store/audit"
	"github.com/dalemusser/bandmanager/internal/app/system/ratelimit"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"go.uber.org/zap"
)

// Destinations for a category.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"
	ModeLog = "log"
	ModeOff = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls login, logout and registration events.
	Auth string
	// Group controls selection and group administration events.
	Group string
}

// Sink persists audit events. *audit.Store satisfies it.
type Sink interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to MongoDB (via Sink) and structured logs (via zap).
type Logger struct {
	store  Sink
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. store may be nil, in which case "db"
// destinations are skipped.
func New(store Sink, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// ValidMode reports whether s is one of all|db|log|off.
func ValidMode(s string) bool {
	switch s {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.GroupID != nil {
		fields = append(fields, zap.Int64("group_id", *event.GroupID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryGroup:
		setting = l.config.Group
	default:
		setting = ModeAll
	}

	if setting == ModeOff {
		return
	}

	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}

	if (setting == ModeAll || setting == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func base(r *http.Request, category, eventType string, success bool) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Authentication                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID, email string) {
	ev := base(r, audit.CategoryAuth, audit.EventLoginSuccess, true)
	ev.UserID = userID
	ev.Details = map[string]string{"email": email}
	l.Log(ctx, ev)
}

// LoginFailed logs a rejected login. The backend does not say why.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, email string) {
	ev := base(r, audit.CategoryAuth, audit.EventLoginFailed, false)
	ev.FailureReason = "invalid credentials"
	ev.Details = map[string]string{"attempted_email": email}
	l.Log(ctx, ev)
}

// LoginRateLimited logs a login blocked by the rate limiter.
func (l *Logger) LoginRateLimited(ctx context.Context, r *http.Request, email string) {
	ev := base(r, audit.CategoryAuth, audit.EventLoginFailedRateLimit, false)
	ev.FailureReason = "rate limited"
	ev.Details = map[string]string{"attempted_email": email}
	l.Log(ctx, ev)
}

// Logout logs a sign-out.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	ev := base(r, audit.CategoryAuth, audit.EventLogout, true)
	ev.UserID = userID
	l.Log(ctx, ev)
}

// Registered logs a new account.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID, email string) {
	ev := base(r, audit.CategoryAuth, audit.EventRegistered, true)
	ev.UserID = userID
	ev.Details = map[string]string{"email": email}
	l.Log(ctx, ev)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Group context                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// GroupSelected logs a user switching into a group.
func (l *Logger) GroupSelected(ctx context.Context, r *http.Request, userID string, groupID int64, role roles.Role) {
	ev := base(r, audit.CategoryGroup, audit.EventGroupSelected, true)
	ev.UserID = userID
	ev.GroupID = &groupID
	ev.Details = map[string]string{"role": role.String()}
	l.Log(ctx, ev)
}

// GroupCleared logs a selection being dropped.
func (l *Logger) GroupCleared(ctx context.Context, r *http.Request, userID string, groupID int64, reason string) {
	ev := base(r, audit.CategoryGroup, audit.EventGroupCleared, true)
	ev.UserID = userID
	ev.GroupID = &groupID
	ev.Details = map[string]string{"reason": reason}
	l.Log(ctx, ev)
}

// StaleMembership logs a cached selection the backend no longer backs.
func (l *Logger) StaleMembership(ctx context.Context, r *http.Request, userID string, groupID int64) {
	ev := base(r, audit.CategorySecurity, audit.EventStaleMembership, false)
	ev.UserID = userID
	ev.GroupID = &groupID
	ev.FailureReason = "membership revoked"
	l.Log(ctx, ev)
}

// ClaimRefreshFailed logs a token reissue that did not happen.
func (l *Logger) ClaimRefreshFailed(ctx context.Context, r *http.Request, userID string, err error) {
	ev := base(r, audit.CategorySecurity, audit.EventClaimRefreshFailed, false)
	ev.UserID = userID
	ev.FailureReason = err.Error()
	l.Log(ctx, ev)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Group administration                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// GroupCreated logs a new group; the creator becomes its manager.
func (l *Logger) GroupCreated(ctx context.Context, r *http.Request, actorID string, groupID int64, name string) {
	ev := base(r, audit.CategoryGroup, audit.EventGroupCreated, true)
	ev.ActorID = actorID
	ev.GroupID = &groupID
	ev.Details = map[string]string{"group_name": name}
	l.Log(ctx, ev)
}

// GroupJoined logs a join by access code.
func (l *Logger) GroupJoined(ctx context.Context, r *http.Request, userID string, groupID int64) {
	ev := base(r, audit.CategoryGroup, audit.EventGroupJoined, true)
	ev.UserID = userID
	ev.GroupID = &groupID
	l.Log(ctx, ev)
}

// MemberRemoved logs a manager removing someone.
func (l *Logger) MemberRemoved(ctx context.Context, r *http.Request, actorID, memberID string, groupID int64) {
	ev := base(r, audit.CategoryGroup, audit.EventMemberRemoved, true)
	ev.ActorID = actorID
	ev.UserID = memberID
	ev.GroupID = &groupID
	l.Log(ctx, ev)
}

// MemberRoleChanged logs a role change.
func (l *Logger) MemberRoleChanged(ctx context.Context, r *http.Request, actorID, memberID string, groupID int64, role roles.Role) {
	ev := base(r, audit.CategoryGroup, audit.EventMemberRoleChanged, true)
	ev.ActorID = actorID
	ev.UserID = memberID
	ev.GroupID = &groupID
	ev.Details = map[string]string{"new_role": role.String()}
	l.Log(ctx, ev)
}

// JoinCodeRefreshed logs a manager replacing the group's join code. The
// code itself is not recorded.
func (l *Logger) JoinCodeRefreshed(ctx context.Context, r *http.Request, actorID string, groupID int64) {
	ev := base(r, audit.CategoryGroup, audit.EventJoinCodeRefreshed, true)
	ev.ActorID = actorID
	ev.GroupID = &groupID
	l.Log(ctx, ev)
}

// SubgroupCreated logs a new section.
func (l *Logger) SubgroupCreated(ctx context.Context, r *http.Request, actorID string, groupID int64, name string) {
	ev := base(r, audit.CategoryGroup, audit.EventSubgroupCreated, true)
	ev.ActorID = actorID
	ev.GroupID = &groupID
	ev.Details = map[string]string{"name": name}
	l.Log(ctx, ev)
}

// TrackCreated logs a new track.
func (l *Logger) TrackCreated(ctx context.Context, r *http.Request, actorID string, groupID int64, title string) {
	ev := base(r, audit.CategoryGroup, audit.EventTrackCreated, true)
	ev.ActorID = actorID
	ev.GroupID = &groupID
	ev.Details = map[string]string{"title": title}
	l.Log(ctx, ev)
}

// EventCreated logs a new calendar event.
func (l *Logger) EventCreated(ctx context.Context, r *http.Request, actorID string, groupID int64, title string) {
	ev := base(r, audit.CategoryGroup, audit.EventEventCreated, true)
	ev.ActorID = actorID
	ev.GroupID = &groupID
	ev.Details = map[string]string{"title": title}
	l.Log(ctx, ev)
}

// EventUpdated logs an edit to a calendar event.
func (l *Logger) EventUpdated(ctx context.Context, r *http.Request, actorID string, groupID, eventID int64, title string) {
	ev := base(r, audit.CategoryGroup, audit.EventEventUpdated, true)
	ev.ActorID = actorID
	ev.GroupID = &groupID
	ev.Details = map[string]string{
		"event_id": strconv.FormatInt(eventID, 10),
		"title":    title,
	}
	l.Log(ctx, ev)
}

// EventDeleted logs a calendar event being removed.
func (l *Logger) EventDeleted(ctx context.Context, r *http.Request, actorID string, groupID, eventID int64) {
	ev := base(r, audit.CategoryGroup, audit.EventEventDeleted, true)
	ev.ActorID = actorID
	ev.GroupID = &groupID
	ev.Details = map[string]string{"event_id": strconv.FormatInt(eventID, 10)}
	l.Log(ctx, ev)
}

// AnnouncementCreated logs a new announcement.
func (l *Logger) AnnouncementCreated(ctx context.Context, r *http.Request, actorID string, groupID int64, title string, priority int) {
	ev := base(r, audit.CategoryGroup, audit.EventAnnouncementCreated, true)
	ev.ActorID = actorID
	ev.GroupID = &groupID
	ev.Details = map[string]string{
		"title":    title,
		"priority": strconv.Itoa(priority),
	}
	l.Log(ctx, ev)
}

// AnnouncementDeleted logs an announcement being removed.
func (l *Logger) AnnouncementDeleted(ctx context.Context, r *http.Request, actorID string, groupID, announcementID int64) {
	ev := base(r, audit.CategoryGroup, audit.EventAnnouncementDeleted, true)
	ev.ActorID = actorID
	ev.GroupID = &groupID
	ev.Details = map[string]string{"announcement_id": strconv.FormatInt(announcementID, 10)}
	l.Log(ctx, ev)
}
