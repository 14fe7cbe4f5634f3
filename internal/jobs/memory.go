package jobs

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	pointers map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[string]*Job),
		pointers: make(map[string]string),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Job, bool, error) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return job.Clone(), true, nil
}

func (s *MemoryStore) Put(_ context.Context, job *Job) error {
	if job == nil || job.ID == "" || !job.Type.Valid() {
		return ErrInvalidJob
	}
	s.mu.Lock()
	s.jobs[job.ID] = job.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetPointer(_ context.Context, fingerprint string) (string, bool, error) {
	s.mu.RLock()
	id, ok := s.pointers[fingerprint]
	s.mu.RUnlock()
	return id, ok, nil
}

func (s *MemoryStore) PutPointer(_ context.Context, fingerprint, jobID string) error {
	s.mu.Lock()
	s.pointers[fingerprint] = jobID
	s.mu.Unlock()
	return nil
}

// Count returns the number of stored jobs.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
