// Package access decides which datasets a request may see and under what
// terms. Only the open/registered split matters to the disclosure gate: an
// open dataset bypasses budget accounting entirely.
package access

import "context"

// Resolver answers dataset accessibility questions.
type Resolver interface {
	// IsOpen reports whether the dataset is public and exempt from
	// budget accounting.
	IsOpen(ctx context.Context, datasetID string) (bool, error)
}

// StaticResolver resolves against a fixed allowlist, typically loaded from
// configuration at startup.
type StaticResolver struct {
	open map[string]struct{}
}

func NewStatic(openDatasets []string) *StaticResolver {
	open := make(map[string]struct{}, len(openDatasets))
	for _, id := range openDatasets {
		open[id] = struct{}{}
	}
	return &StaticResolver{open: open}
}

func (r *StaticResolver) IsOpen(_ context.Context, datasetID string) (bool, error) {
	_, ok := r.open[datasetID]
	return ok, nil
}
