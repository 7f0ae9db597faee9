package auth

import "strings"

// UserIDHeader carries the trusted subject id on every backend call.
const UserIDHeader = "user-id"

// Paths reachable without a session. This list is part of the security
// boundary: anything not matched here requires a valid identity token.
var (
	publicExact = map[string]bool{
		"/":         true,
		"/login":    true,
		"/register": true,
		"/health":   true,
	}
	publicPrefixes = []string{
		"/api/verify/",
		"/static/",
	}
	landingPages = map[string]bool{
		"/":         true,
		"/login":    true,
		"/register": true,
	}
)

// IsPublicPath reports whether path may be served without a session.
func IsPublicPath(path string) bool {
	if publicExact[path] || path == "/api/verify" {
		return true
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func isLandingPage(path string) bool {
	return landingPages[path]
}
