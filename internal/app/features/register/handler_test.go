package register_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	uierrors "github.com/dalemusser/bandmanager/internal/app/features/errors"
	"github.com/dalemusser/bandmanager/internal/app/features/register"
	"github.com/dalemusser/bandmanager/internal/app/system/auditlog"
	"github.com/dalemusser/bandmanager/internal/app/system/viewdata"
	"github.com/dalemusser/bandmanager/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*register.Handler, *testutil.FakeBackend, *viewdata.Capture) {
	t.Helper()
	fb := testutil.NewFakeBackend(t)
	logger := zap.NewNop()
	h := register.NewHandler(fb.Client, uierrors.NewErrorLogger(logger), auditlog.New(nil, logger, auditlog.Config{}), logger)
	capture := &viewdata.Capture{}
	h.Render = capture.Renderer()
	return h, fb, capture
}

func validForm() url.Values {
	return url.Values{
		"first_name":       {"Ann"},
		"last_name":        {"Lee"},
		"email":            {"Ann@Example.com "},
		"password":         {"correct-horse"},
		"confirm_password": {"correct-horse"},
	}
}

func TestHandleRegister_Success(t *testing.T) {
	h, fb, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.HandleRegister(rec, testutil.NewFormRequest("/register", validForm()))

	testutil.AssertRedirect(t, rec, "/login?registered=1")
	if calls := fb.Calls(); len(calls) != 1 || calls[0] != "POST /api/verify/register" {
		t.Errorf("backend calls = %v", calls)
	}
}

func TestHandleRegister_ValidationSkipsBackend(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
	}{
		{"missing first name", "first_name", ""},
		{"bad email", "email", "not-an-email"},
		{"short password", "password", "short"},
		{"mismatched confirmation", "confirm_password", "something-else"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fb, capture := newTestHandler(t)
			form := validForm()
			form.Set(tt.field, tt.value)

			rec := httptest.NewRecorder()
			h.HandleRegister(rec, testutil.NewFormRequest("/register", form))

			testutil.AssertStatus(t, rec, http.StatusOK)
			if capture.Name != "register" {
				t.Errorf("rendered %q, want register", capture.Name)
			}
			if calls := fb.Calls(); len(calls) != 0 {
				t.Errorf("backend called for invalid input: %v", calls)
			}
		})
	}
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	h, fb, capture := newTestHandler(t)
	fb.AddUser("Ann", "Lee", "ann@example.com", "whatever1")

	rec := httptest.NewRecorder()
	h.HandleRegister(rec, testutil.NewFormRequest("/register", validForm()))

	testutil.AssertStatus(t, rec, http.StatusOK)
	if capture.Name != "register" {
		t.Errorf("rendered %q, want register", capture.Name)
	}
}

func TestServeRegister(t *testing.T) {
	h, _, capture := newTestHandler(t)

	h.ServeRegister(httptest.NewRecorder(), httptest.NewRequest("GET", "/register", nil))

	if capture.Name != "register" {
		t.Errorf("rendered %q, want register", capture.Name)
	}
}
