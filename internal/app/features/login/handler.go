// internal/app/features/login/handler.go
package login

import (
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/bandmanager/internal/app/features/errors"
	"github.com/dalemusser/bandmanager/internal/app/system/auditlog"
	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/groupctx"
	"github.com/dalemusser/bandmanager/internal/app/system/inputval"
	"github.com/dalemusser/bandmanager/internal/app/system/navigation"
	"github.com/dalemusser/bandmanager/internal/app/system/ratelimit"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// genericFailure is shown for every failed sign-in. It does not say whether
// the email exists or the backend was down.
const genericFailure = "Invalid email or password."

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Limiter    *ratelimit.LoginLimiter // nil disables rate limiting
	Render     viewdata.Renderer
}

func NewHandler(sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, limiter *ratelimit.LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		AuditLog:   audit,
		Limiter:    limiter,
		Render:     viewdata.Render,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Error     string
	Success   string
	Email     string
	ReturnURL string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	var success string
	if query.Get(r, "registered") == "1" {
		success = "Your account was created. Sign in to continue."
	}

	h.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewPlainVM(r, "Sign in", "/"),
		Success:   success,
		ReturnURL: query.Get(r, "return"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		h.renderFormWithError(w, r, http.StatusOK, "Please enter your email and password.", email)
		return
	}

	if h.Limiter != nil {
		if allowed, reason := h.Limiter.Check(r, email); !allowed {
			h.AuditLog.LoginRateLimited(r.Context(), r, email)
			h.renderFormWithError(w, r, http.StatusTooManyRequests, reason, email)
			return
		}
	}

	// Not an address the backend could know; answer like a wrong password.
	if !inputval.IsValidEmail(email) {
		h.AuditLog.LoginFailed(r.Context(), r, email)
		h.renderFormWithError(w, r, http.StatusOK, genericFailure, email)
		return
	}

	r, id, err := h.SessionMgr.SignIn(w, r, email, password)
	if err != nil {
		h.Log.Info("sign-in failed", zap.String("email", email), zap.Error(err))
		h.AuditLog.LoginFailed(r.Context(), r, email)
		h.renderFormWithError(w, r, http.StatusOK, genericFailure, email)
		return
	}

	// A fresh token carries no group, so any selection left in this browser
	// must go too.
	if gc, ok := groupctx.From(r); ok {
		if err := gc.ClearGroup(); err != nil {
			h.Log.Warn("login: clear stale group selection", zap.Error(err))
		}
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.AuditLog.LoginSuccess(r.Context(), r, id.SubjectID, email)

	dest := navigation.ReturnURL(r, navigation.AfterSignIn)
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, status int, msg, email string) {
	// From POST, "return" will be in the form; from GET, we might rely on the query.
	ret := strings.TrimSpace(r.FormValue("return"))
	if ret == "" {
		ret = query.Get(r, "return")
	}

	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	h.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewPlainVM(r, "Sign in", "/"),
		Error:     msg,
		Email:     email,
		ReturnURL: ret,
	})
}
