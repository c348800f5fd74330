package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemStore keeps artifacts in memory. Used in tests and as a fallback
// when no storage backend is configured.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

func (s *MemStore) Put(_ context.Context, jobID, name string, data []byte) (string, error) {
	if err := validName(jobID); err != nil {
		return "", err
	}
	if err := validName(name); err != nil {
		return "", err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	s.blobs[jobID+"/"+name] = cp
	s.mu.Unlock()
	return jobID + "/" + name, nil
}

func (s *MemStore) Get(_ context.Context, jobID, name string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.blobs[jobID+"/"+name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("artifact %s/%s not found", jobID, name)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *MemStore) List(_ context.Context, jobID string) ([]string, error) {
	prefix := jobID + "/"
	s.mu.RLock()
	var names []string
	for k := range s.blobs {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			names = append(names, k[len(prefix):])
		}
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names, nil
}
