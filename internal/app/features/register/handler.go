// internal/app/features/register/handler.go
package register

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/bandmanager/internal/app/features/errors"
	"github.com/dalemusser/bandmanager/internal/app/system/auditlog"
	"github.com/dalemusser/bandmanager/internal/app/system/backend"
	"github.com/dalemusser/bandmanager/internal/app/system/inputval"
	"github.com/dalemusser/bandmanager/internal/app/system/timeouts"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// Registrar creates accounts. *backend.Client satisfies it.
type Registrar interface {
	Register(ctx context.Context, reg backend.Registration) error
}

type Handler struct {
	Accounts Registrar
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
	Render   viewdata.Renderer
}

func NewHandler(accounts Registrar, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts: accounts,
		ErrLog:   errLog,
		AuditLog: audit,
		Log:      logger,
		Render:   viewdata.Render,
	}
}

type registerInput struct {
	FirstName string `validate:"required,max=100" label:"First name"`
	LastName  string `validate:"required,max=100" label:"Last name"`
	Email     string `validate:"required,email,max=254" label:"Email"`
	Password  string `validate:"required,min=8,max=128" label:"Password"`
	Confirm   string `validate:"eqfield=Password" label:"Password confirmation"`
}

type registerFormData struct {
	viewdata.BaseVM
	Error     string
	Success   string
	FirstName string
	LastName  string
	Email     string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /register                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, "register", registerFormData{
		BaseVM: viewdata.NewPlainVM(r, "Create an account", "/"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /register                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/register")
		return
	}

	in := registerInput{
		FirstName: strings.TrimSpace(r.FormValue("first_name")),
		LastName:  strings.TrimSpace(r.FormValue("last_name")),
		Email:     strings.ToLower(strings.TrimSpace(r.FormValue("email"))),
		Password:  r.FormValue("password"),
		Confirm:   r.FormValue("confirm_password"),
	}

	reRender := func(msg string) {
		h.Render(w, r, "register", registerFormData{
			BaseVM:    viewdata.NewPlainVM(r, "Create an account", "/"),
			Error:     msg,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Email:     in.Email,
		})
	}

	if result := inputval.Validate(in); result.HasErrors() {
		reRender(result.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err := h.Accounts.Register(ctx, backend.Registration{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  in.Password,
	})
	if err != nil {
		// The backend answers 500 for duplicates and outages alike.
		h.Log.Warn("registration failed", zap.String("email", in.Email), zap.Error(err))
		reRender("We couldn't create that account. The email may already be registered.")
		return
	}

	h.AuditLog.Registered(r.Context(), r, "", in.Email)
	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}
