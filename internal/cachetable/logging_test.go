package cachetable

import (
	"context"
	"testing"

	"lookgen-gateway/pkg/logging/logging"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingTableLogsLookups(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logging.WithLogger(context.Background(), zap.New(core))

	tbl := NewLoggingTable(NewMemoryTable())
	fp := "fp:model-generation:v1:abc123"

	if _, ok, _ := tbl.Get(ctx, fp); ok {
		t.Fatalf("expected miss")
	}
	if err := tbl.Insert(ctx, Row{Fingerprint: fp, ArtifactRef: "ref"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, ok, _ := tbl.Get(ctx, fp); !ok {
		t.Fatalf("expected hit")
	}

	gets := logs.FilterMessage("cache_table_get").All()
	if len(gets) != 2 {
		t.Fatalf("expected 2 get logs, got %d", len(gets))
	}
	if got := gets[0].ContextMap()["cache_result"]; got != "miss" {
		t.Fatalf("first lookup result = %v", got)
	}
	if got := gets[1].ContextMap()["cache_result"]; got != "hit" {
		t.Fatalf("second lookup result = %v", got)
	}
	if got := gets[1].ContextMap()["operation"]; got != "model-generation" {
		t.Fatalf("operation field = %v", got)
	}
	if logs.FilterMessage("cache_table_insert").Len() != 1 {
		t.Fatalf("expected one insert log")
	}
}
