package jobs

import (
	"context"
	"testing"
	"time"

	"lookgen-gateway/pkg/logging/logging"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestBackgroundSurvivesRequestCancellation(t *testing.T) {
	b := NewBackground()
	reqCtx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	result := make(chan error, 1)
	b.Schedule(reqCtx, "test", func(ctx context.Context) {
		close(started)
		time.Sleep(20 * time.Millisecond)
		result <- ctx.Err()
	})

	<-started
	cancel()

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("task context was cancelled with the request: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("task did not finish")
	}
}

func TestBackgroundDrain(t *testing.T) {
	b := NewBackground()
	release := make(chan struct{})
	b.Schedule(context.Background(), "slow", func(context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := b.Drain(ctx); err == nil {
		t.Fatalf("expected drain to time out while a task runs")
	}
	if b.InFlight() != 1 {
		t.Fatalf("expected one task in flight, got %d", b.InFlight())
	}

	close(release)
	if err := b.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if b.InFlight() != 0 {
		t.Fatalf("expected no tasks in flight")
	}
}

func TestBackgroundRecoversPanicsAndKeepsLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logging.WithLogger(context.Background(), zap.New(core).With(zap.String("request_id", "r-1")))

	b := NewBackground()
	b.Schedule(ctx, "boom", func(context.Context) { panic("kaboom") })
	if err := b.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	entries := logs.FilterMessage("background task panicked").All()
	if len(entries) != 1 {
		t.Fatalf("expected one panic log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "r-1" || fields["task"] != "boom" {
		t.Fatalf("panic log lost request fields: %v", fields)
	}
}
