package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: 7 * time.Second})
	if Short() != 7*time.Second {
		t.Errorf("Short: got %v", Short())
	}
	if Medium() != DefaultMedium {
		t.Errorf("Medium changed: got %v", Medium())
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Cleanup(Reset)
	t.Setenv("BANDMANAGER_TIMEOUT_PING", "750ms")
	t.Setenv("BANDMANAGER_TIMEOUT_LONG", "nonsense")

	if n := ConfigureFromEnv(); n != 1 {
		t.Errorf("applied: got %d, want 1", n)
	}
	if Ping() != 750*time.Millisecond {
		t.Errorf("Ping: got %v", Ping())
	}
	if Long() != DefaultLong {
		t.Errorf("Long: got %v", Long())
	}
}

func TestWithTimeout_LogsDeadline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, zap.New(core), "group members")
	<-ctx.Done()
	cancel()

	if logs.FilterMessage("operation timed out").Len() != 1 {
		t.Error("expected a timeout warning")
	}
}
