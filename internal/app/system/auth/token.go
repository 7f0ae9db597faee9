package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/golang-jwt/jwt/v5"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Identity token                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

const tokenIssuer = "bandmanager"

// Identity is the decoded identity token: who the user is and, once a
// group has been picked, which group they act in and with what role.
//
// Role only carries meaning when GroupID is set. Identity values are
// copies; the only way to change the token a browser holds is
// SessionManager.RefreshClaims.
type Identity struct {
	SubjectID string
	Name      string
	Role      roles.Role
	GroupID   *int64
}

// GroupRole returns the group and role carried by the token, or false when
// no group is set.
func (id Identity) GroupRole() (int64, roles.Role, bool) {
	if id.GroupID == nil {
		return 0, roles.None, false
	}
	return *id.GroupID, id.Role, true
}

// Claims is the JWT body of an identity token.
type Claims struct {
	jwt.RegisteredClaims
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty"`
	GroupID *int64 `json:"group_id,omitempty"`
}

// TokenSigner issues and verifies HS256 identity tokens.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenSigner returns a signer using secret for HMAC and ttl for expiry.
func NewTokenSigner(secret string, ttl time.Duration) (*TokenSigner, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("token secret must be at least 32 chars, got %d", len(secret))
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &TokenSigner{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs id. A role without a group is dropped; an unknown role or a
// non-positive group id is an error.
func (s *TokenSigner) Issue(id Identity) (string, error) {
	if id.SubjectID == "" {
		return "", errors.New("identity has no subject")
	}

	c := Claims{Name: id.Name}
	if id.GroupID != nil {
		if *id.GroupID <= 0 {
			return "", fmt.Errorf("invalid group id %d", *id.GroupID)
		}
		if id.Role != roles.None && !id.Role.Valid() {
			return "", fmt.Errorf("invalid role %q", id.Role)
		}
		gid := *id.GroupID
		c.GroupID = &gid
		c.Role = string(id.Role)
	}

	now := s.now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   id.SubjectID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign identity token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and decodes it into an Identity.
func (s *TokenSigner) Parse(raw string) (Identity, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("parse identity token: %w", err)
	}
	if c.Subject == "" {
		return Identity{}, errors.New("identity token has no subject")
	}

	id := Identity{SubjectID: c.Subject, Name: c.Name}
	if c.GroupID != nil && *c.GroupID > 0 {
		gid := *c.GroupID
		id.GroupID = &gid
		if r, err := roles.Parse(c.Role); err == nil {
			id.Role = r
		}
	}
	return id, nil
}
