// Package variants is the read side of the beacon: it answers targeted
// variant queries with candidate records for the disclosure gate. The
// actual variant backend lives behind the Source port; the in-memory
// implementation serves development and tests.
package variants

import (
	"context"
	"sort"
	"sync"

	"beacon/internal/query"
	"beacon/internal/rip"
)

// Source finds candidate records for a query. Find returns the page of
// matching records plus the total match count before pagination.
type Source interface {
	Find(ctx context.Context, datasetID string, params query.RequestParams) ([]rip.CandidateRecord, int, error)
	Datasets(ctx context.Context) ([]string, error)
}

// Entry is one stored variant with the index fields the three targeted
// query shapes match on.
type Entry struct {
	DatasetID              string              `json:"datasetId"`
	GenomicAlleleShortForm string              `json:"genomicAlleleShortForm,omitempty"`
	AminoAcidChange        string              `json:"aminoacidChange,omitempty"`
	ReferenceName          string              `json:"referenceName,omitempty"`
	Start                  int                 `json:"start,omitempty"`
	ReferenceBases         string              `json:"referenceBases,omitempty"`
	AlternateBases         string              `json:"alternateBases,omitempty"`
	Record                 rip.CandidateRecord `json:"record"`
}

// InMemorySource holds entries in memory, keyed by dataset.
type InMemorySource struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

func NewInMemory() *InMemorySource {
	return &InMemorySource{entries: make(map[string][]Entry)}
}

func (s *InMemorySource) Add(entries ...Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.DatasetID] = append(s.entries[e.DatasetID], e)
	}
}

func (s *InMemorySource) Datasets(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *InMemorySource) Find(_ context.Context, datasetID string, params query.RequestParams) ([]rip.CandidateRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []rip.CandidateRecord
	for _, e := range s.entries[datasetID] {
		if matches(e, params) {
			matched = append(matched, e.Record)
		}
	}

	total := len(matched)
	skip, limit := params.Query.Pagination.Skip, params.Query.Pagination.Limit
	if skip >= total {
		return nil, total, nil
	}
	matched = matched[skip:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func matches(e Entry, params query.RequestParams) bool {
	rp := params.Query.RequestParameters
	switch {
	case params.IsGenomicAlleleQuery():
		return rp["genomicAlleleShortForm"] == e.GenomicAlleleShortForm
	case params.IsAminoAcidChangeQuery():
		return rp["aminoacidChange"] == e.AminoAcidChange
	case params.IsSequenceQuery():
		start, _ := rp["start"].([]int)
		return rp["referenceName"] == e.ReferenceName &&
			rp["referenceBases"] == e.ReferenceBases &&
			rp["alternateBases"] == e.AlternateBases &&
			len(start) == 1 && start[0] == e.Start
	default:
		return false
	}
}
