package artifact

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore keeps artifacts in process memory. Used in tests and local
// runs without a writable directory.
type MemoryStore struct {
	mu         sync.RWMutex
	objects    map[string]Object
	publicBase string
}

func NewMemoryStore(publicBase string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object), publicBase: publicBase}
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if key == "" {
		return "", errors.New("artifact: key is required")
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.objects[key] = Object{Data: buf, ContentType: contentType}
	s.mu.Unlock()
	return PublicRef(s.publicBase, key), nil
}

func (s *MemoryStore) PublicBase() string { return s.publicBase }

func (s *MemoryStore) Get(_ context.Context, key string) (*Object, bool, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return &obj, true, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
