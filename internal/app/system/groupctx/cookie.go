package groupctx

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/gorilla/securecookie"
)

// Cookie names for the persisted selection.
const (
	GroupIDCookie = "groupId"
	RoleCookie    = "userRole"
)

// CookieOptions are shared by the cookie-writing stores.
type CookieOptions struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

func (o CookieOptions) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   o.Domain,
		MaxAge:   maxAge,
		Secure:   o.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (o CookieOptions) maxAgeSeconds() int {
	return int(o.MaxAge / time.Second)
}

// CookieStore keeps the selection in two signed cookies, groupId and
// userRole. The signature stops a user from picking a role by editing a
// cookie; the role is still re-checked against the backend where it
// matters.
//
// The signed role value is "<groupId>:<subject>:<role>", so a role cookie
// only counts next to the group cookie and session it was written with.
type CookieStore struct {
	codec *securecookie.SecureCookie
	opts  CookieOptions
}

// NewCookieStore signs cookies with hashKey.
func NewCookieStore(hashKey []byte, opts CookieOptions) (*CookieStore, error) {
	if len(hashKey) < 32 {
		return nil, fmt.Errorf("group cache key must be at least 32 bytes, got %d", len(hashKey))
	}
	codec := securecookie.New(hashKey, nil)
	codec.MaxAge(opts.maxAgeSeconds())
	return &CookieStore{codec: codec, opts: opts}, nil
}

// Load reads both cookies. A missing groupId cookie means no selection; a
// missing or bad userRole cookie leaves the role unknown. A role cookie
// bound to another group or user means no selection.
func (s *CookieStore) Load(r *http.Request) (Selection, error) {
	gc, err := r.Cookie(GroupIDCookie)
	if errors.Is(err, http.ErrNoCookie) {
		return Selection{}, nil
	}
	if err != nil {
		return Selection{}, err
	}

	var groupStr string
	if err := s.codec.Decode(GroupIDCookie, gc.Value, &groupStr); err != nil {
		return Selection{}, fmt.Errorf("decode %s cookie: %w", GroupIDCookie, err)
	}

	var roleStr string
	if rc, err := r.Cookie(RoleCookie); err == nil {
		var bound string
		if err := s.codec.Decode(RoleCookie, rc.Value, &bound); err == nil {
			group, subject, role, ok := splitRole(bound)
			if !ok || group != groupStr || subject != subjectOf(r) {
				return Selection{}, nil
			}
			roleStr = role
		}
	}
	return parseSelection(groupStr, roleStr), nil
}

// Save encodes both values before writing either cookie.
func (s *CookieStore) Save(w http.ResponseWriter, r *http.Request, sel Selection) error {
	if sel.Empty() {
		return s.Clear(w, r)
	}

	groupStr := strconv.FormatInt(*sel.GroupID, 10)
	groupVal, err := s.codec.Encode(GroupIDCookie, groupStr)
	if err != nil {
		return fmt.Errorf("encode %s cookie: %w", GroupIDCookie, err)
	}
	roleVal, err := s.codec.Encode(RoleCookie, groupStr+":"+subjectOf(r)+":"+string(sel.Role))
	if err != nil {
		return fmt.Errorf("encode %s cookie: %w", RoleCookie, err)
	}

	maxAge := s.opts.maxAgeSeconds()
	http.SetCookie(w, s.opts.cookie(GroupIDCookie, groupVal, maxAge))
	http.SetCookie(w, s.opts.cookie(RoleCookie, roleVal, maxAge))
	return nil
}

// Clear expires both cookies.
func (s *CookieStore) Clear(w http.ResponseWriter, _ *http.Request) error {
	http.SetCookie(w, s.opts.cookie(GroupIDCookie, "", -1))
	http.SetCookie(w, s.opts.cookie(RoleCookie, "", -1))
	return nil
}

func subjectOf(r *http.Request) string {
	id, _ := auth.UserID(r)
	return id
}

// splitRole takes the group from the front and the role from the back; the
// subject is what lies between.
func splitRole(v string) (group, subject, role string, ok bool) {
	first := strings.IndexByte(v, ':')
	last := strings.LastIndexByte(v, ':')
	if first < 0 || last == first {
		return "", "", "", false
	}
	return v[:first], v[first+1 : last], v[last+1:], true
}

func parseSelection(groupStr, roleStr string) Selection {
	id, err := strconv.ParseInt(groupStr, 10, 64)
	if err != nil || id <= 0 {
		return Selection{}
	}
	role, err := roles.Parse(roleStr)
	if err != nil {
		role = roles.None
	}
	return Selection{GroupID: &id, Role: role}
}
