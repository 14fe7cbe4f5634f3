package cachetable

import (
	"context"
	"errors"
	"sync"
	"time"
)

type MemoryTable struct {
	mu   sync.RWMutex
	rows map[string]Row
}

func NewMemoryTable() *MemoryTable {
	return &MemoryTable{rows: make(map[string]Row)}
}

func (t *MemoryTable) Get(_ context.Context, fingerprint string) (Row, bool, error) {
	t.mu.RLock()
	row, ok := t.rows[fingerprint]
	t.mu.RUnlock()
	return row, ok, nil
}

func (t *MemoryTable) Insert(_ context.Context, row Row) error {
	if row.Fingerprint == "" {
		return errors.New("cachetable: fingerprint is required")
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[row.Fingerprint]; exists {
		return nil
	}
	t.rows[row.Fingerprint] = row
	return nil
}

// Len returns the number of rows currently stored.
func (t *MemoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
