package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNopLoggerDoesNotPanic(t *testing.T) {
	logger := Nop()
	logger.Debug("msg", "k", "v")
	logger.Info("msg", "k", "v")
	logger.Warn("msg", "k", "v")
	logger.Error("msg", "k", "v")
}

func TestSlogAdapterForwards(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := Slog(slog.New(handler))

	logger.Info("reload complete", "formats", 3)
	if !strings.Contains(buf.String(), "reload complete") || !strings.Contains(buf.String(), "formats=3") {
		t.Fatalf("unexpected log output: %s", buf.String())
	}
}

func TestSlogNilUsesDefault(t *testing.T) {
	if Slog(nil) == nil {
		t.Fatal("Slog(nil) must return a usable logger")
	}
}
