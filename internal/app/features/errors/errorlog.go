// internal/app/features/errors/errorlog.go
package errors

import (
	"net/http"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"go.uber.org/zap"
)

// ErrorLogger logs a failure with request context and shows the user a
// generic page. Backend bodies and error text never reach the browser.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger returns an ErrorLogger writing to logger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger.Named("errors")}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if uid, ok := auth.UserID(r); ok {
		fields = append(fields, zap.String("user_id", uid))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}

// LogServerError logs at error level and renders a 500 page.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.log.Error(msg, e.fields(r, err)...)
	renderError(w, r, http.StatusInternalServerError, userMsg, backURL)
}

// LogBadRequest logs at warn level and renders a 400 page.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.log.Warn(msg, e.fields(r, err)...)
	renderError(w, r, http.StatusBadRequest, userMsg, backURL)
}

// LogForbidden logs a denied action the guards could not catch (the
// backend refused it) and renders the permission-denied page.
func (e *ErrorLogger) LogForbidden(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Warn(msg, e.fields(r, err)...)
	RenderForbidden(w, r, userMsg, "")
}

// Unavailable logs nothing (the caller already has) and renders a 503.
func (e *ErrorLogger) Unavailable(w http.ResponseWriter, r *http.Request) {
	RenderUnavailable(w, r)
}
