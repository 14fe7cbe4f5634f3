package cachetable

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

type stubQuerier struct {
	execSQL  []string
	execArgs [][]any
	execErr  error
	row      stubRow
}

func (q *stubQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execSQL = append(q.execSQL, sql)
	q.execArgs = append(q.execArgs, args)
	return pgconn.CommandTag{}, q.execErr
}

func (q *stubQuerier) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return q.row
}

func TestPostgresTableGetMiss(t *testing.T) {
	tbl := NewPostgresTable(&stubQuerier{})
	_, ok, err := tbl.Get(context.Background(), "fp")
	if err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}

func TestPostgresTableGetHit(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	q := &stubQuerier{row: stubRow{scan: func(dest ...any) error {
		*dest[0].(*string) = "fp"
		*dest[1].(*string) = "/artifacts/pose/1.webp"
		*dest[2].(*string) = "v1"
		*dest[3].(*string) = "pose-change"
		*dest[4].(*time.Time) = created
		return nil
	}}}
	row, ok, err := NewPostgresTable(q).Get(context.Background(), "fp")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if row.ArtifactRef != "/artifacts/pose/1.webp" || !row.CreatedAt.Equal(created) {
		t.Fatalf("unexpected row %#v", row)
	}
}

func TestPostgresTableGetError(t *testing.T) {
	q := &stubQuerier{row: stubRow{scan: func(...any) error { return errors.New("conn reset") }}}
	if _, _, err := NewPostgresTable(q).Get(context.Background(), "fp"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPostgresTableInsertUsesOnConflict(t *testing.T) {
	q := &stubQuerier{}
	tbl := NewPostgresTable(q)
	if err := tbl.Insert(context.Background(), Row{Fingerprint: "fp", ArtifactRef: "ref", PromptVersion: "v1"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if len(q.execSQL) != 1 || !strings.Contains(q.execSQL[0], "ON CONFLICT (fingerprint) DO NOTHING") {
		t.Fatalf("expected a conflict-ignoring insert, got %v", q.execSQL)
	}
	if q.execArgs[0][0] != "fp" || q.execArgs[0][1] != "ref" {
		t.Fatalf("unexpected args %v", q.execArgs[0])
	}
	if ts, _ := q.execArgs[0][4].(time.Time); ts.IsZero() {
		t.Fatalf("expected created_at to be stamped")
	}
}

func TestPostgresTableEnsureSchema(t *testing.T) {
	q := &stubQuerier{}
	if err := NewPostgresTable(q).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if !strings.Contains(q.execSQL[0], "CREATE TABLE IF NOT EXISTS generation_cache") {
		t.Fatalf("unexpected DDL %q", q.execSQL[0])
	}

	q.execErr = errors.New("permission denied")
	if err := NewPostgresTable(q).EnsureSchema(context.Background()); err == nil {
		t.Fatalf("expected DDL error to surface")
	}
}
