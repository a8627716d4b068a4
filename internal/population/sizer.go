// Package population supplies the N of the risk formula: the number of
// individuals the disclosure probability is computed against.
//
// The count is dataset-scoped when a dataset is named and falls back to the
// whole collection otherwise. A dataset-scoped N makes a rare allele in a
// small dataset cost what it should; the whole-collection count would
// understate the cost of dataset-specific queries.
package population

import (
	"context"
	"sync"
)

// Static serves fixed counts, for tests and single-tenant deployments where
// the cohort size is known at startup.
type Static struct {
	mu       sync.RWMutex
	counts   map[string]int
	fallback int
}

// NewStatic creates a Static sizer with a whole-collection fallback count.
func NewStatic(fallback int) *Static {
	return &Static{
		counts:   make(map[string]int),
		fallback: fallback,
	}
}

// SetDataset fixes the individual count for one dataset.
func (s *Static) SetDataset(datasetID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[datasetID] = count
}

// Individuals returns the dataset-scoped count, or the fallback when the
// dataset is unknown or unnamed.
func (s *Static) Individuals(_ context.Context, datasetID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if count, ok := s.counts[datasetID]; ok {
		return count, nil
	}
	return s.fallback, nil
}
