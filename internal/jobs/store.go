package jobs

import (
	"context"
	"errors"
)

var ErrInvalidJob = errors.New("jobs: job id and a known type are required")

// Store persists Job records plus the fingerprint -> job id pointer used
// to collapse identical async requests onto one job.
type Store interface {
	Get(ctx context.Context, id string) (*Job, bool, error)
	Put(ctx context.Context, job *Job) error
	GetPointer(ctx context.Context, fingerprint string) (string, bool, error)
	PutPointer(ctx context.Context, fingerprint, jobID string) error
}
