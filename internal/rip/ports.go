package rip

import "context"

// BudgetLedger is the keyed store of remaining privacy budget per
// (user, individual, dataset). Implementations must make each operation
// atomic on its key; there is deliberately no cross-key transaction (see the
// service documentation for the accepted tradeoff).
type BudgetLedger interface {
	// TryDebit atomically decrements the budget by amount, creating the
	// entry at the initial budget on first access. If the decrement would
	// leave the budget below zero the entry is left unchanged and ok is
	// false. remaining is the post-operation balance either way.
	TryDebit(ctx context.Context, userID, individualID, datasetID string, amount float64) (ok bool, remaining float64, err error)

	// Credit atomically increments the budget by amount. Used only to
	// compensate a prior successful debit when a sibling individual in the
	// same record failed.
	Credit(ctx context.Context, userID, individualID, datasetID string, amount float64) error

	// Balance reads the current budget without mutating it. found is false
	// if the entry was never created.
	Balance(ctx context.Context, userID, individualID, datasetID string) (balance float64, found bool, err error)
}

// ResponseHistory memoizes full answers per (user, query-fingerprint,
// dataset). Entries are write-once: the first Store wins and later stores for
// the same key are idempotent no-ops.
type ResponseHistory interface {
	Lookup(ctx context.Context, userID, fingerprint, datasetID string) (records []CandidateRecord, found bool, err error)
	Store(ctx context.Context, userID, fingerprint, datasetID string, records []CandidateRecord) error
}

// PopulationSizer supplies the N of the risk formula: the approximate number
// of individuals in scope for a dataset.
type PopulationSizer interface {
	Individuals(ctx context.Context, datasetID string) (int, error)
}
