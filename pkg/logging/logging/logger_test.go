package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != DefaultLogger() {
		t.Fatalf("expected default logger for empty context")
	}
}

func TestDetachKeepsLoggerDropsCancellation(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core).With(zap.String("request_id", "req-1"))

	parent, cancel := context.WithCancel(WithLogger(context.Background(), logger))
	detached := Detach(parent)
	cancel()

	if detached.Err() != nil {
		t.Fatalf("detached context should not be cancelled: %v", detached.Err())
	}

	L(detached).Info("after response")
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-1" {
		t.Fatalf("request_id not carried over: %v", got)
	}
}
