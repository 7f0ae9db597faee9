// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/bandmanager/internal/app/system/auditlog"
	"github.com/dalemusser/bandmanager/internal/app/system/inputval"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minSecretLen is the shortest accepted signing secret.
const minSecretLen = 32

// appConfigKeys defines the configuration keys for Band Manager.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: backend_url, session_name, etc.
//   - Environment variables: BANDMANAGER_BACKEND_URL, BANDMANAGER_SESSION_NAME, etc.
//   - Command-line flags: --backend_url, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "backend_url", Default: "http://localhost:8080", Desc: "Base URL of the Band Manager API"},
	{Name: "backend_timeout", Default: "10s", Desc: "Timeout for each backend call (e.g., 5s, 500ms)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "bandmanager-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "168h", Desc: "Session cookie lifetime"},

	{Name: "token_secret", Default: "dev-only-token-secret-change-me-0123456789", Desc: "Identity token signing secret (must be strong in production)"},
	{Name: "token_ttl", Default: "24h", Desc: "Identity token lifetime"},

	// Group/role cache
	{Name: "group_cache", Default: GroupCacheCookie, Desc: "Where the selected group is cached: 'cookie' or 'redis'"},
	{Name: "group_cache_key", Default: "dev-only-group-cache-key-0123456789ABCDEF", Desc: "Signing key for the groupId/userRole cookies"},
	{Name: "group_cache_ttl", Default: "168h", Desc: "Lifetime of a cached group selection"},
	{Name: "redis_url", Default: "", Desc: "Redis URL (required when group_cache is 'redis')"},

	// Audit trail
	{Name: "mongo_uri", Default: "", Desc: "MongoDB URI for the audit trail (blank disables storage)"},
	{Name: "mongo_database", Default: "band_manager", Desc: "MongoDB database name"},
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_group", Default: "all", Desc: "Group event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Rate limiting
	{Name: "login_rate_limit", Default: 10, Desc: "Login attempts allowed per client IP per window"},
	{Name: "login_rate_window", Default: "1m", Desc: "Login rate limit window"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-change-me-0123456789ABCD", Desc: "CSRF protection key (32+ chars)"},
	{Name: "strict_guards", Default: true, Desc: "Panic when a role guard is mounted without a group guard"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, BANDMANAGER_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "BANDMANAGER", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		BackendURL:     appValues.String("backend_url"),
		BackendTimeout: appValues.Duration("backend_timeout", 10*time.Second),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 7*24*time.Hour),

		TokenSecret: appValues.String("token_secret"),
		TokenTTL:    appValues.Duration("token_ttl", 24*time.Hour),

		GroupCache:    appValues.String("group_cache"),
		GroupCacheKey: appValues.String("group_cache_key"),
		GroupCacheTTL: appValues.Duration("group_cache_ttl", 7*24*time.Hour),
		RedisURL:      appValues.String("redis_url"),

		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),
		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogGroup: appValues.String("audit_log_group"),

		LoginRateLimit:  appValues.Int("login_rate_limit"),
		LoginRateWindow: appValues.Duration("login_rate_window", time.Minute),

		CSRFKey:      appValues.String("csrf_key"),
		StrictGuards: appValues.Bool("strict_guards"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Secrets are checked for length only; the dev defaults pass, so
// production deployments must override them.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if !inputval.IsValidHTTPURL(appCfg.BackendURL) {
		logger.Error("invalid backend URL", zap.String("backend_url", appCfg.BackendURL))
		return fmt.Errorf("backend_url must be an absolute http(s) URL, got %q", appCfg.BackendURL)
	}
	if appCfg.BackendTimeout <= 0 {
		return fmt.Errorf("backend_timeout must be positive")
	}

	for name, v := range map[string]string{
		"session_key":     appCfg.SessionKey,
		"token_secret":    appCfg.TokenSecret,
		"group_cache_key": appCfg.GroupCacheKey,
		"csrf_key":        appCfg.CSRFKey,
	} {
		if len(v) < minSecretLen {
			return fmt.Errorf("%s must be at least %d characters", name, minSecretLen)
		}
	}
	if appCfg.TokenTTL <= 0 || appCfg.SessionMaxAge <= 0 || appCfg.GroupCacheTTL <= 0 {
		return fmt.Errorf("token_ttl, session_max_age and group_cache_ttl must be positive")
	}

	switch appCfg.GroupCache {
	case GroupCacheCookie:
	case GroupCacheRedis:
		if appCfg.RedisURL == "" {
			return fmt.Errorf("group_cache=redis requires redis_url")
		}
	default:
		return fmt.Errorf("group_cache must be %q or %q, got %q", GroupCacheCookie, GroupCacheRedis, appCfg.GroupCache)
	}

	if appCfg.MongoURI != "" {
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
	}

	if !auditlog.ValidMode(appCfg.AuditLogAuth) || !auditlog.ValidMode(appCfg.AuditLogGroup) {
		return fmt.Errorf("audit_log_auth and audit_log_group must be all, db, log or off")
	}

	if appCfg.LoginRateLimit < 1 || appCfg.LoginRateWindow <= 0 {
		return fmt.Errorf("login_rate_limit and login_rate_window must be positive")
	}

	if coreCfg != nil && coreCfg.Env == "prod" && !appCfg.StrictGuards {
		logger.Warn("strict_guards is off; guard misuse will be logged and denied instead of panicking")
	}
	return nil
}
