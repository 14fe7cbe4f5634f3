package cachetable

import (
	"context"
	"time"
)

// Row maps a fingerprint to the artifact produced for it. Rows are written
// once and never updated or deleted; bumping the prompt version is the only
// way to stop hitting an old row.
type Row struct {
	Fingerprint   string    `json:"fingerprint"`
	ArtifactRef   string    `json:"artifactRef"`
	PromptVersion string    `json:"promptVersion"`
	Operation     string    `json:"operation,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Table is the interface used by the facade and the orchestrator.
// Implemented by the memory (dev), redis and postgres backends.
type Table interface {
	Get(ctx context.Context, fingerprint string) (Row, bool, error)
	// Insert stores row unless one already exists for its fingerprint.
	// A losing writer gets a nil error.
	Insert(ctx context.Context, row Row) error
}
