// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
)

// pageData is the view model for every error page.
type pageData struct {
	viewdata.BaseVM
	Heading string
	Message string
}

var render viewdata.Renderer = viewdata.Render

// SetRenderer replaces the renderer used for error pages and returns a
// function that restores the previous one. Feature tests use it to capture
// error pages without a template engine.
func SetRenderer(fn viewdata.Renderer) (restore func()) {
	prev := render
	render = fn
	return func() { render = prev }
}

// Handler is the errors feature handler.
// No backend needed; it just renders templates.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Forbidden renders a friendly "access denied" page.
// GET /forbidden
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	RenderForbidden(w, r, "You don't have permission to view this page.", "/")
}

// Unauthorized renders a friendly "sign in required" page.
// GET /unauthorized
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	RenderUnauthorized(w, r, "")
}
