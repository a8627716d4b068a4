// Package budget implements the privacy-budget ledger keyed by
// (user, individual, dataset).
package budget

import (
	"context"
	"sync"
)

type key struct {
	userID       string
	individualID string
	datasetID    string
}

// InMemoryStore is a mutex-guarded ledger for single-instance deployments
// and tests. Entries are created lazily at the initial budget on first debit
// attempt and are never deleted.
type InMemoryStore struct {
	mu      sync.Mutex
	budgets map[key]float64
	initial float64
}

// NewInMemory creates an in-memory ledger with the given initial budget.
func NewInMemory(initialBudget float64) *InMemoryStore {
	return &InMemoryStore{
		budgets: make(map[key]float64),
		initial: initialBudget,
	}
}

// TryDebit atomically decrements the budget by amount. A debit that would
// drive the budget below zero leaves the entry unchanged and returns
// ok=false.
func (s *InMemoryStore) TryDebit(_ context.Context, userID, individualID, datasetID string, amount float64) (bool, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{userID, individualID, datasetID}
	balance, exists := s.budgets[k]
	if !exists {
		balance = s.initial
		s.budgets[k] = balance
	}

	if balance < amount {
		return false, balance, nil
	}
	balance -= amount
	s.budgets[k] = balance
	return true, balance, nil
}

// Credit atomically increments the budget by amount. A credit for a key that
// was never debited restores the entry to the initial budget instead, since
// that is the state the compensation is returning to.
func (s *InMemoryStore) Credit(_ context.Context, userID, individualID, datasetID string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{userID, individualID, datasetID}
	balance, exists := s.budgets[k]
	if !exists {
		s.budgets[k] = s.initial
		return nil
	}
	s.budgets[k] = balance + amount
	return nil
}

// Balance reads the current budget without mutating it.
func (s *InMemoryStore) Balance(_ context.Context, userID, individualID, datasetID string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, exists := s.budgets[key{userID, individualID, datasetID}]
	return balance, exists, nil
}
