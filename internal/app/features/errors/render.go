// internal/app/features/errors/render.go
package errors

import (
	"net/http"

	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
)

func renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	render(w, r, name, data)
}

// RenderUnauthorized shows a friendly "sign in required" page.
// If backURL is empty, it will default to /login.
func RenderUnauthorized(w http.ResponseWriter, r *http.Request, backURL string) {
	if backURL == "" {
		backURL = "/login"
	}
	data := pageData{
		BaseVM:  viewdata.NewPlainVM(r, "Sign in required", backURL),
		Heading: "Sign in required",
		Message: "Please sign in to continue.",
	}
	data.BackURL = backURL
	renderStatus(w, r, http.StatusUnauthorized, "error_forbidden", data)
}

// RenderForbidden renders the in-place permission-denied fallback with a
// 403. The layout (and sidebar) stay visible so the user can switch group.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	if backURL == "" {
		backURL = "/dashboard"
	}
	data := pageData{
		BaseVM:  viewdata.NewBaseVM(r, "Access denied", backURL),
		Heading: "Access denied",
		Message: msg,
	}
	renderStatus(w, r, http.StatusForbidden, "error_forbidden", data)
}

// Denied adapts RenderForbidden to the guard's renderer signature.
func Denied(w http.ResponseWriter, r *http.Request, msg string) {
	RenderForbidden(w, r, msg, "")
}

// RenderNoGroup renders the neutral pick-a-group screen.
func RenderNoGroup(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		BaseVM:  viewdata.NewBaseVM(r, "Select a group", "/dashboard"),
		Heading: "Select a group",
		Message: "Pick a group from the sidebar, create a new one, or join with a code.",
	}
	renderStatus(w, r, http.StatusOK, "no_group", data)
}

// NoGroupHandler is RenderNoGroup as an http.Handler.
var NoGroupHandler = http.HandlerFunc(RenderNoGroup)

// RenderUnavailable tells the user the backend could not be reached.
func RenderUnavailable(w http.ResponseWriter, r *http.Request) {
	renderError(w, r, http.StatusServiceUnavailable, "Something went wrong. Please try again.", "")
}

// RenderNotFound tells the user a page's subject (an event, a track) is
// not in the current group.
func RenderNotFound(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	renderError(w, r, http.StatusNotFound, msg, backURL)
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg, backURL string) {
	if backURL == "" {
		backURL = "/dashboard"
	}
	heading := "Something went wrong"
	switch status {
	case http.StatusBadRequest:
		heading = "That didn't work"
	case http.StatusNotFound:
		heading = "Not found"
	}
	data := pageData{
		BaseVM:  viewdata.NewPlainVM(r, heading, backURL),
		Heading: heading,
		Message: msg,
	}
	renderStatus(w, r, status, "error_page", data)
}
