package cachetable

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryTableFirstWriterWins(t *testing.T) {
	tbl := NewMemoryTable()
	ctx := context.Background()

	if _, ok, err := tbl.Get(ctx, "fp:model-generation:v1:abc"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	if err := tbl.Insert(ctx, Row{Fingerprint: "fp:model-generation:v1:abc", ArtifactRef: "/artifacts/model/1.webp", PromptVersion: "v1"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := tbl.Insert(ctx, Row{Fingerprint: "fp:model-generation:v1:abc", ArtifactRef: "/artifacts/model/2.webp", PromptVersion: "v1"}); err != nil {
		t.Fatalf("second Insert should be a silent no-op, got %v", err)
	}

	row, ok, err := tbl.Get(ctx, "fp:model-generation:v1:abc")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if row.ArtifactRef != "/artifacts/model/1.webp" {
		t.Fatalf("expected first writer's ref, got %q", row.ArtifactRef)
	}
	if row.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be stamped")
	}
}

func TestMemoryTableConcurrentInsertKeepsOneRow(t *testing.T) {
	tbl := NewMemoryTable()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tbl.Insert(ctx, Row{Fingerprint: "fp:pose-change:v1:x", ArtifactRef: "ref"})
		}()
	}
	wg.Wait()

	if tbl.Len() != 1 {
		t.Fatalf("expected exactly one row, got %d", tbl.Len())
	}
}

func TestMemoryTableRejectsEmptyFingerprint(t *testing.T) {
	if err := NewMemoryTable().Insert(context.Background(), Row{}); err == nil {
		t.Fatalf("expected error for empty fingerprint")
	}
}
