// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Group cache modes.
const (
	GroupCacheCookie = "cookie"
	GroupCacheRedis  = "redis"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging and CORS; everything specific to Band Manager lives
// here.
type AppConfig struct {
	// Backend API
	BackendURL     string        // base URL of the Band Manager API (e.g., http://localhost:8080)
	BackendTimeout time.Duration // per-call timeout for backend requests

	// Session cookie holding the identity token
	SessionKey    string        // secret for signing the session cookie (>= 32 chars)
	SessionName   string        // cookie name (default: bandmanager-session)
	SessionDomain string        // cookie domain (blank means current host)
	SessionMaxAge time.Duration // cookie lifetime

	// Identity token
	TokenSecret string        // HMAC secret for the identity token (>= 32 chars)
	TokenTTL    time.Duration // token lifetime; refreshes restart it

	// Group/role cache
	GroupCache    string        // "cookie" (signed groupId/userRole cookies) or "redis"
	GroupCacheKey string        // signing key for the cookie cache (>= 32 chars)
	GroupCacheTTL time.Duration // lifetime of a cached selection
	RedisURL      string        // required when GroupCache is "redis"

	// MongoDB (audit trail). Blank URI disables audit storage.
	MongoURI      string
	MongoDatabase string

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogGroup string

	// Login throttling per client IP
	LoginRateLimit  int
	LoginRateWindow time.Duration

	CSRFKey string // gorilla/csrf auth key (>= 32 chars)

	// StrictGuards panics when a role guard runs without an enclosing
	// group guard. On outside prod.
	StrictGuards bool
}
