// Package navigation provides helpers for safe URL navigation and redirects.
package navigation

import (
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
)

// BackURLOptions configures ReturnURL.
type BackURLOptions struct {
	// AllowedPrefix is the required URL prefix (e.g. "/events").
	// If empty, any safe URL is allowed.
	AllowedPrefix string

	// ExcludedPrefixes are paths never returned to. Auth pages go here so a
	// sign-in cannot bounce straight back to /logout.
	ExcludedPrefixes []string

	// Fallback is the default URL if no valid return URL is found.
	Fallback string
}

// AfterSignIn is used once credentials are accepted.
var AfterSignIn = BackURLOptions{
	ExcludedPrefixes: []string{"/login", "/logout", "/register"},
	Fallback:         "/dashboard",
}

// AfterGroupSwitch is used once a group is selected.
var AfterGroupSwitch = BackURLOptions{
	ExcludedPrefixes: []string{"/login", "/logout", "/register", "/groups"},
	Fallback:         "/events",
}

// ReturnURL reads "return" from the form, then the query string, and
// returns it when it is a local path allowed by opts. Otherwise it
// returns opts.Fallback.
func ReturnURL(r *http.Request, opts BackURLOptions) string {
	ret := urlutil.SafeReturn(strings.TrimSpace(r.FormValue("return")), "", "")
	if ret == "" {
		ret = urlutil.SafeReturn(query.Get(r, "return"), "", "")
	}
	if ret == "" {
		return opts.Fallback
	}
	if opts.AllowedPrefix != "" && !strings.HasPrefix(ret, opts.AllowedPrefix) {
		return opts.Fallback
	}
	for _, p := range opts.ExcludedPrefixes {
		if ret == p || strings.HasPrefix(ret, p+"/") || strings.HasPrefix(ret, p+"?") {
			return opts.Fallback
		}
	}
	return ret
}
