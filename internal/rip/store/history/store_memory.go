// Package history implements the write-once response cache keyed by
// (user, query-fingerprint, dataset).
package history

import (
	"context"
	"sync"

	"beacon/internal/rip"
)

type key struct {
	userID      string
	fingerprint string
	datasetID   string
}

// InMemoryStore is a mutex-guarded response history for single-instance
// deployments and tests. Entries are insert-only.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[key][]rip.CandidateRecord
}

// NewInMemory creates an empty in-memory response history.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{entries: make(map[key][]rip.CandidateRecord)}
}

// Lookup returns the memoized response for the key, if any.
func (s *InMemoryStore) Lookup(_ context.Context, userID, fingerprint, datasetID string) ([]rip.CandidateRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, found := s.entries[key{userID, fingerprint, datasetID}]
	if !found {
		return nil, false, nil
	}
	// Hand out a copy so callers cannot mutate the stored response.
	out := make([]rip.CandidateRecord, len(records))
	copy(out, records)
	return out, true, nil
}

// Store memoizes the response for the key. The first writer wins; a
// duplicate store is an idempotent no-op.
func (s *InMemoryStore) Store(_ context.Context, userID, fingerprint, datasetID string, records []rip.CandidateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{userID, fingerprint, datasetID}
	if _, exists := s.entries[k]; exists {
		return nil
	}
	stored := make([]rip.CandidateRecord, len(records))
	copy(stored, records)
	s.entries[k] = stored
	return nil
}
