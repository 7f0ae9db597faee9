package testutil

import (
	"testing"
	"time"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"go.uber.org/zap"
)

// Test-only secrets; both satisfy the 32-character minimum.
const (
	TestSessionKey  = "test-session-key-must-be-32-chars-long"
	TestTokenSecret = "test-token-secret-must-be-32-chars-long"
)

// NewSessionManager returns a session manager with test secrets. v may be
// nil for handlers that never sign in.
func NewSessionManager(t *testing.T, v auth.Verifier) *auth.SessionManager {
	t.Helper()
	tokens, err := auth.NewTokenSigner(TestTokenSecret, time.Hour)
	if err != nil {
		t.Fatalf("token signer: %v", err)
	}
	sm, err := auth.NewSessionManager(TestSessionKey, "bandmanager-test", "", time.Hour, false, tokens, zap.NewNop())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	if v != nil {
		sm.SetVerifier(v)
	}
	return sm
}
