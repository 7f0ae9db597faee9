package inputval

import (
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/bandmanager/internal/app/system/roles"
	"github.com/go-playground/validator/v10"
)

// EventDateLayout is the value format of an HTML datetime-local input.
const EventDateLayout = "2006-01-02T15:04"

func registerCustom(v *validator.Validate) {
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return IsValidRole(fl.Field().String())
	})
	_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return IsValidHTTPURL(fl.Field().String())
	})
	_ = v.RegisterValidation("eventdate", func(fl validator.FieldLevel) bool {
		_, err := ParseEventDate(fl.Field().String())
		return err == nil
	})
}

// IsValidRole reports whether s names a group role.
func IsValidRole(s string) bool {
	_, err := roles.Parse(s)
	return err == nil
}

// IsValidHTTPURL reports whether s is an absolute http or https URL.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ParseEventDate parses a datetime-local value. Full RFC 3339 timestamps
// are accepted too.
func ParseEventDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(EventDateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
