package jobs

import (
	"context"
	"testing"
	"time"

	"lookgen-gateway/internal/provider"
)

func TestMemoryStoreCopiesOnReadAndWrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	job := &Job{
		ID:     "j1",
		Type:   TypeModel,
		Status: StatusQueued,
		Meta:   Meta{Source: SourceQueue, DurationMs: Millis(5 * time.Millisecond)},
	}
	if err := s.Put(ctx, job); err != nil {
		t.Fatalf("Put: %v", err)
	}
	job.Status = StatusFailed
	*job.Meta.DurationMs = 999

	got, ok, err := s.Get(ctx, "j1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Status != StatusQueued || *got.Meta.DurationMs != 5 {
		t.Fatalf("store must not alias caller memory: %#v", got)
	}

	got.Output = &Output{URL: "x", Meta: Meta{Feedback: &provider.Feedback{Text: "t"}}}
	again, _, _ := s.Get(ctx, "j1")
	if again.Output != nil {
		t.Fatalf("mutating a read copy leaked into the store")
	}
}

func TestMemoryStorePointers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, ok, _ := s.GetPointer(ctx, "fp"); ok {
		t.Fatalf("expected no pointer")
	}
	if err := s.PutPointer(ctx, "fp", "j1"); err != nil {
		t.Fatalf("PutPointer: %v", err)
	}
	id, ok, err := s.GetPointer(ctx, "fp")
	if err != nil || !ok || id != "j1" {
		t.Fatalf("GetPointer = %q, %v, %v", id, ok, err)
	}
}

func TestMemoryStoreRejectsInvalidJobs(t *testing.T) {
	s := NewMemoryStore()
	for _, job := range []*Job{nil, {}, {ID: "j1"}, {ID: "j1", Type: "upscale"}} {
		if err := s.Put(context.Background(), job); err != ErrInvalidJob {
			t.Fatalf("Put(%#v): expected ErrInvalidJob, got %v", job, err)
		}
	}
	if s.Count() != 0 {
		t.Fatalf("invalid jobs must not be stored")
	}
}

func TestStatusTerminal(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusQueued:     false,
		StatusProcessing: false,
		StatusSucceeded:  true,
		StatusFailed:     true,
	} {
		if status.Terminal() != want {
			t.Errorf("%s.Terminal() = %v", status, !want)
		}
	}
}
