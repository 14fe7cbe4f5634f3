package cachetable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool used by PostgresTable.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	createTableSQL = `
CREATE TABLE IF NOT EXISTS generation_cache (
    fingerprint    TEXT PRIMARY KEY,
    artifact_ref   TEXT NOT NULL,
    prompt_version TEXT NOT NULL,
    operation      TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

	selectRowSQL = `
SELECT fingerprint, artifact_ref, prompt_version, operation, created_at
FROM generation_cache
WHERE fingerprint = $1;`

	insertRowSQL = `
INSERT INTO generation_cache (fingerprint, artifact_ref, prompt_version, operation, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (fingerprint) DO NOTHING;`
)

type PostgresTable struct {
	db Querier
}

func NewPostgresTable(db Querier) *PostgresTable {
	return &PostgresTable{db: db}
}

// EnsureSchema creates the generation_cache table if it does not exist.
func (t *PostgresTable) EnsureSchema(ctx context.Context) error {
	if _, err := t.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create generation_cache: %w", err)
	}
	return nil
}

func (t *PostgresTable) Get(ctx context.Context, fingerprint string) (Row, bool, error) {
	var row Row
	err := t.db.QueryRow(ctx, selectRowSQL, fingerprint).Scan(
		&row.Fingerprint,
		&row.ArtifactRef,
		&row.PromptVersion,
		&row.Operation,
		&row.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, fmt.Errorf("select cache row: %w", err)
	}
	return row, true, nil
}

func (t *PostgresTable) Insert(ctx context.Context, row Row) error {
	if row.Fingerprint == "" {
		return errors.New("cachetable: fingerprint is required")
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	_, err := t.db.Exec(ctx, insertRowSQL,
		row.Fingerprint,
		row.ArtifactRef,
		row.PromptVersion,
		row.Operation,
		row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cache row: %w", err)
	}
	return nil
}
