package repository

import (
	"bytes"
	"context"
	"sync"
)

// MemoryBlobStore keeps blobs in process memory. Updates are serialised by a single lock.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]map[Collection][]byte
}

// NewMemoryBlobStore constructs an empty in-memory blob store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string]map[Collection][]byte)}
}

// Load returns a copy of the blob or nil when it was never written.
func (s *MemoryBlobStore) Load(_ context.Context, tenantID string, c Collection) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bytes.Clone(s.blobs[tenantID][c]), nil
}

// LoadAll returns the collection blob of every tenant that has one.
func (s *MemoryBlobStore) LoadAll(_ context.Context, c Collection) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]byte)
	for tenantID, collections := range s.blobs {
		if payload, ok := collections[c]; ok {
			result[tenantID] = bytes.Clone(payload)
		}
	}
	return result, nil
}

// Update applies fn's writes only when it succeeds.
func (s *MemoryBlobStore) Update(ctx context.Context, tenantID string, fn func(tx BlobTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newBufferedTx(func(_ context.Context, c Collection) ([]byte, error) {
		return bytes.Clone(s.blobs[tenantID][c]), nil
	})
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(tx.writes) == 0 {
		return nil
	}
	collections, ok := s.blobs[tenantID]
	if !ok {
		collections = make(map[Collection][]byte)
		s.blobs[tenantID] = collections
	}
	for c, payload := range tx.writes {
		collections[c] = payload
	}
	return nil
}
