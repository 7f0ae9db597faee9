// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	announcementsfeature "github.com/dalemusser/bandmanager/internal/app/features/announcements"
	auditfeature "github.com/dalemusser/bandmanager/internal/app/features/auditlog"
	dashboardfeature "github.com/dalemusser/bandmanager/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/bandmanager/internal/app/features/errors"
	eventsfeature "github.com/dalemusser/bandmanager/internal/app/features/events"
	groupsfeature "github.com/dalemusser/bandmanager/internal/app/features/groups"
	healthfeature "github.com/dalemusser/bandmanager/internal/app/features/health"
	homefeature "github.com/dalemusser/bandmanager/internal/app/features/home"
	loginfeature "github.com/dalemusser/bandmanager/internal/app/features/login"
	logoutfeature "github.com/dalemusser/bandmanager/internal/app/features/logout"
	managefeature "github.com/dalemusser/bandmanager/internal/app/features/manage"
	registerfeature "github.com/dalemusser/bandmanager/internal/app/features/register"
	subgroupsfeature "github.com/dalemusser/bandmanager/internal/app/features/subgroups"
	tracksfeature "github.com/dalemusser/bandmanager/internal/app/features/tracks"
	"github.com/dalemusser/bandmanager/internal/app/store/audit"
	"github.com/dalemusser/bandmanager/internal/app/system/auditlog"
	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/backend"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/guards"
	"github.com/dalemusser/bandmanager/internal/app/system/membership"
	"github.com/dalemusser/bandmanager/internal/app/system/metrics"
	"github.com/dalemusser/bandmanager/internal/app/system/proxy"
	"github.com/dalemusser/bandmanager/internal/app/system/ratelimit"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// Every request passes, in order: panic recovery, metrics,
// LoadSessionUser (identity token from the session cookie), Gate
// (public/protected boundary), the group context provider and CSRF. Feature routers add RequireSignedIn and the
// group/role guards on top.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	client, err := backend.NewClient(appCfg.BackendURL, appCfg.BackendTimeout, logger)
	if err != nil {
		logger.Error("backend client init failed", zap.Error(err))
		return nil, err
	}

	tokens, err := auth.NewTokenSigner(appCfg.TokenSecret, appCfg.TokenTTL)
	if err != nil {
		logger.Error("token signer init failed", zap.Error(err))
		return nil, err
	}
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionMaxAge, secure, tokens, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	sessionMgr.SetVerifier(client)
	sessionMgr.SetMetrics(m)

	groupStore, err := newGroupStore(appCfg, deps, secure)
	if err != nil {
		logger.Error("group cache init failed", zap.Error(err))
		return nil, err
	}

	auditLog := newAuditLogger(appCfg, deps, logger)

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	viewdata.SetGroupLoader(client.UserGroups)

	errLog := errorsfeature.NewErrorLogger(logger)

	g := guards.New(guards.Config{
		Denied:  errorsfeature.Denied,
		NoGroup: errorsfeature.NoGroupHandler,
		Strict:  appCfg.StrictGuards,
		Logger:  logger,
		Metrics: m,
	})

	rv := membership.New(client, sessionMgr, m, logger)
	rv.Unavailable = errorsfeature.RenderUnavailable
	rv.OnStale = func(r *http.Request, userID string, groupID int64) {
		auditLog.StaleMembership(r.Context(), r, userID, groupID)
	}

	loginLimiter := ratelimit.NewLoginLimiterWithConfig(appCfg.LoginRateLimit, appCfg.LoginRateWindow, 5, 5*appCfg.LoginRateWindow)
	onShutdown(loginLimiter.Close)
	apiLimiter := ratelimit.New(appCfg.LoginRateLimit, appCfg.LoginRateWindow)
	onShutdown(apiLimiter.Close)

	px := proxy.New(client.BaseURL(), m, logger)

	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("csrf check failed", zap.String("path", r.URL.Path), zap.Error(csrf.FailureReason(r)))
			errorsfeature.RenderForbidden(w, r, "Your form expired. Please go back and try again.", "")
		})),
	}
	protect := csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	r.Use(sessionMgr.LoadSessionUser)
	r.Use(sessionMgr.Gate)
	r.Use(groupctx.Provider(groupStore, logger))
	if !secure {
		r.Use(plaintextCSRF)
	}
	r.Use(protect)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(client, deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	// Scrapes need a signed-in session like any other page.
	r.With(sessionMgr.RequireSignedIn).Handle("/metrics", m.Handler())

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Backend API. The verify endpoints are public and throttled per IP.
	r.With(apiLimiter.Middleware).Handle("/api/verify/*", px)
	r.Handle("/api/*", px)

	// Public pages
	homeHandler := homefeature.NewHandler(logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(sessionMgr, errLog, auditLog, loginLimiter, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	registerHandler := registerfeature.NewHandler(client, errLog, auditLog, logger)
	r.Mount("/register", registerfeature.Routes(registerHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLog, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// Pick-a-group landing
	dashboardHandler := dashboardfeature.NewHandler(client, errLog, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr, g))

	// Group switching, creation and joining
	groupsHandler := groupsfeature.NewHandler(client, sessionMgr, rv, errLog, auditLog, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr))
	r.Mount("/group", groupsfeature.GroupRoutes(groupsHandler, sessionMgr, g, rv))

	// Group-scoped pages
	eventsHandler := eventsfeature.NewHandler(client, rv, errLog, auditLog, logger)
	r.Mount("/events", eventsfeature.Routes(eventsHandler, sessionMgr, g, rv))

	announcementsHandler := announcementsfeature.NewHandler(client, rv, errLog, auditLog, logger)
	r.Mount("/announcements", announcementsfeature.Routes(announcementsHandler, sessionMgr, g, rv))

	subgroupsHandler := subgroupsfeature.NewHandler(client, rv, errLog, auditLog, logger)
	r.Mount("/subgroups", subgroupsfeature.Routes(subgroupsHandler, sessionMgr, g, rv))

	tracksHandler := tracksfeature.NewHandler(client, rv, errLog, auditLog, logger)
	r.Mount("/tracks", tracksfeature.Routes(tracksHandler, sessionMgr, g, rv))

	manageHandler := managefeature.NewHandler(client, errLog, auditLog, logger)
	r.Mount("/manage", managefeature.Routes(manageHandler, sessionMgr, g, rv))

	activityHandler := auditfeature.NewHandler(nil, client, errLog, logger)
	if deps.MongoDatabase != nil {
		activityHandler.Store = audit.New(deps.MongoDatabase)
	}
	r.Mount("/activity", auditfeature.Routes(activityHandler, sessionMgr, g, rv))

	return r, nil
}

// plaintextCSRF tells gorilla/csrf the request arrived over plain HTTP so
// the same-origin check does not demand https outside prod.
func plaintextCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

// newGroupStore picks where the selected group and role are cached.
func newGroupStore(appCfg AppConfig, deps DBDeps, secure bool) (groupctx.Store, error) {
	opts := groupctx.CookieOptions{
		Domain: appCfg.SessionDomain,
		Secure: secure,
		MaxAge: appCfg.GroupCacheTTL,
	}
	if appCfg.GroupCache == GroupCacheRedis {
		if deps.Redis == nil {
			return nil, errRedisMissing
		}
		return groupctx.NewRedisStore(deps.Redis, appCfg.GroupCacheTTL, opts), nil
	}
	return groupctx.NewCookieStore([]byte(appCfg.GroupCacheKey), opts)
}

// newAuditLogger stores events in MongoDB when it is configured.
func newAuditLogger(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *auditlog.Logger {
	cfg := auditlog.Config{Auth: appCfg.AuditLogAuth, Group: appCfg.AuditLogGroup}
	if deps.MongoDatabase == nil {
		return auditlog.New(nil, logger, cfg)
	}
	return auditlog.New(audit.New(deps.MongoDatabase), logger, cfg)
}
