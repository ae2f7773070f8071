package logging_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"wordreel/internal/logging"
)

func TestWithLevelOverrideRaisesVerbosity(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	debugLogger := logging.WithLevelOverride(base, slog.LevelDebug)
	debugLogger.Debug("debug message")

	if !strings.Contains(buf.String(), "debug message") {
		t.Fatalf("expected overridden logger to emit debug records, got %q", buf.String())
	}
}

func TestWithLevelOverridePreservesAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	logger := logging.WithLevelOverride(base, slog.LevelDebug).
		With("job_id", "abc123").
		WithGroup("detail")
	logger.Debug("nested", "field", "value")

	out := buf.String()
	if !strings.Contains(out, "abc123") || !strings.Contains(out, "\"detail\"") {
		t.Fatalf("expected attrs and group to survive override, got %q", out)
	}
}

func TestWithLevelOverrideDoesNotLowerTheWrappedHandlerFloor(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger := logging.WithLevelOverride(base, slog.LevelDebug)
	logger.Info("should still be suppressed by the wrapped handler")

	if buf.Len() != 0 {
		t.Fatalf("expected wrapped handler's own floor to still apply, got %q", buf.String())
	}
}

func TestWithLevelOverrideOnNilLoggerReturnsUsableLogger(t *testing.T) {
	logger := logging.WithLevelOverride(nil, slog.LevelDebug)
	if logger == nil {
		t.Fatal("expected a non-nil logger")
	}
	logger.Debug("should not panic")
}
