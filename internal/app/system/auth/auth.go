package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/bandmanager/internal/app/system/metrics"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/dalemusser/bandmanager/internal/domain/models"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants & errors                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

const tokenKey = "identity_token"

var (
	// ErrAuthenticationFailed is returned for every failed credential
	// exchange. The cause is wrapped for logs; pages show one generic message.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrClaimRefresh means the identity token could not be re-issued.
	// The previous token is still in place.
	ErrClaimRefresh = errors.New("identity token refresh failed")

	// ErrNotSignedIn is returned by operations that need a signed-in user.
	ErrNotSignedIn = errors.New("not signed in")
)

// Verifier exchanges credentials for a user profile.
type Verifier interface {
	VerifyLogin(ctx context.Context, email, password string) (models.User, error)
}

// SessionManager owns the session cookie and the identity token inside it.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	tokens  *TokenSigner
	verify  Verifier
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewSessionManager builds the cookie store for the session.
//
// In production (secure=true) cookies are Secure + SameSite=None.
// In local dev over http://localhost, use secure=false so cookies are accepted.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, tokens *TokenSigner, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if tokens == nil {
		return nil, errors.New("session manager needs a token signer")
	}
	if name == "" {
		name = "bandmanager-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts
	store.MaxAge(int(maxAge.Seconds()))

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{
		store:  store,
		name:   name,
		tokens: tokens,
		log:    logger,
	}, nil
}

// SetVerifier installs the credential exchange used by SignIn.
func (sm *SessionManager) SetVerifier(v Verifier) { sm.verify = v }

// SetMetrics enables login and refresh counters.
func (sm *SessionManager) SetMetrics(m *metrics.Metrics) { sm.metrics = m }

// Name is the session cookie name.
func (sm *SessionManager) Name() string { return sm.name }

/*─────────────────────────────────────────────────────────────────────────────*
| Current identity                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const identityKey ctxKey = "identity"

// Current returns the identity loaded by LoadSessionUser.
func Current(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(identityKey).(Identity)
	return id, ok
}

// UserID is a convenience returning only the subject id.
func UserID(r *http.Request) (string, bool) {
	id, ok := Current(r)
	if !ok {
		return "", false
	}
	return id.SubjectID, true
}

func withIdentity(r *http.Request, id Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, id))
}

// WithTestIdentity puts id into r's context the way LoadSessionUser would.
// For tests in other packages.
func WithTestIdentity(r *http.Request, id Identity) *http.Request {
	return withIdentity(r, id)
}

// LoadSessionUser injects the identity into context if the session carries
// a valid token. Invalid or expired tokens are treated as signed out.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := sm.store.Get(r, sm.name)
		raw, _ := sess.Values[tokenKey].(string)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := sm.tokens.Parse(raw)
		if err != nil {
			sm.log.Debug("ignoring invalid identity token", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, withIdentity(r, id))
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Token lifecycle                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// SignIn exchanges credentials with the backend and, on success, stores a
// fresh identity token (no group selected) in the session.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, email, password string) (*http.Request, Identity, error) {
	if sm.verify == nil {
		return r, Identity{}, fmt.Errorf("%w: no verifier configured", ErrAuthenticationFailed)
	}

	user, err := sm.verify.VerifyLogin(r.Context(), email, password)
	if err != nil {
		sm.metrics.Login("failure")
		return r, Identity{}, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}
	if user.ID <= 0 {
		sm.metrics.Login("failure")
		return r, Identity{}, fmt.Errorf("%w: backend returned no user id", ErrAuthenticationFailed)
	}

	id := Identity{
		SubjectID: strconv.FormatInt(user.ID, 10),
		Name:      strings.TrimSpace(user.FirstName + " " + user.LastName),
	}
	id, err = sm.writeToken(w, r, id)
	if err != nil {
		sm.metrics.Login("error")
		return r, Identity{}, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	sm.metrics.Login("success")
	return withIdentity(r, id), id, nil
}

// ClaimsPatch describes a change to the group claims of the current token.
// ClearGroup wins over GroupID and Role.
type ClaimsPatch struct {
	Role       *roles.Role
	GroupID    *int64
	ClearGroup bool
}

// SetGroup builds a patch selecting groupID with role.
func SetGroup(groupID int64, role roles.Role) ClaimsPatch {
	return ClaimsPatch{GroupID: &groupID, Role: &role}
}

// SetRole builds a patch changing only the role.
func SetRole(role roles.Role) ClaimsPatch {
	return ClaimsPatch{Role: &role}
}

// ClearGroup builds a patch removing group and role.
func ClearGroup() ClaimsPatch {
	return ClaimsPatch{ClearGroup: true}
}

// RefreshClaims merges patch into the current token, re-signs it, reads the
// signed token back and stores it. The returned request carries the
// read-back identity.
//
// On error nothing is written: the session and the returned request still
// hold the previous token.
func (sm *SessionManager) RefreshClaims(w http.ResponseWriter, r *http.Request, patch ClaimsPatch) (*http.Request, Identity, error) {
	cur, ok := Current(r)
	if !ok {
		sm.metrics.ClaimRefresh("unauthenticated")
		return r, Identity{}, fmt.Errorf("%w: %w", ErrClaimRefresh, ErrNotSignedIn)
	}

	next := cur
	if cur.GroupID != nil {
		gid := *cur.GroupID
		next.GroupID = &gid
	}
	switch {
	case patch.ClearGroup:
		next.GroupID = nil
		next.Role = roles.None
	default:
		if patch.GroupID != nil {
			gid := *patch.GroupID
			next.GroupID = &gid
		}
		if patch.Role != nil {
			next.Role = *patch.Role
		}
	}

	canonical, err := sm.writeToken(w, r, next)
	if err != nil {
		sm.metrics.ClaimRefresh("error")
		sm.log.Warn("identity token refresh failed",
			zap.String("user_id", cur.SubjectID),
			zap.Error(err))
		return r, cur, fmt.Errorf("%w: %w", ErrClaimRefresh, err)
	}

	sm.metrics.ClaimRefresh("success")
	return withIdentity(r, canonical), canonical, nil
}

// writeToken signs id, verifies the signed string and saves it. The
// returned identity is the decoded token, not the input.
func (sm *SessionManager) writeToken(w http.ResponseWriter, r *http.Request, id Identity) (Identity, error) {
	raw, err := sm.tokens.Issue(id)
	if err != nil {
		return Identity{}, err
	}
	canonical, err := sm.tokens.Parse(raw)
	if err != nil {
		return Identity{}, fmt.Errorf("read back: %w", err)
	}

	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[tokenKey] = raw
	if err := sess.Save(r, w); err != nil {
		return Identity{}, fmt.Errorf("save session: %w", err)
	}
	return canonical, nil
}

// SignOut expires the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	opts := *sm.store.Options
	opts.MaxAge = -1
	sess.Options = &opts
	delete(sess.Values, tokenKey)
	return sess.Save(r, w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Route protection                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireSignedIn ensures there is an identity in context.
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a plain error body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := Current(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		challenge(w, r)
	})
}

// Gate is the app-wide boundary between public and protected paths.
//
// It always strips a client-supplied user-id header. Requests for
// protected paths without a valid token are challenged; signed-in users
// landing on the public pages are sent to /dashboard.
func (sm *SessionManager) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del(UserIDHeader)

		_, signedIn := Current(r)
		path := r.URL.Path

		if IsPublicPath(path) {
			if signedIn && isLandingPage(path) && r.Method == http.MethodGet {
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if !signedIn {
			challenge(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func challenge(w http.ResponseWriter, r *http.Request) {
	ret := url.QueryEscape(currentURI(r))

	// HTMX: full-page client redirect (no partial swap)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login?return="+ret)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if WantsHTML(r) {
		http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
		return
	}

	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// WantsHTML treats a request as a page request if it's HTMX or accepts
// text/html.
func WantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func currentURI(r *http.Request) string {
	u := *r.URL
	return u.RequestURI()
}
