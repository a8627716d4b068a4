package budget

import (
	"context"
	"database/sql"
	"errors"

	pkgerrors "beacon/pkg/errors"
)

// PostgresStore persists the ledger in PostgreSQL. All mutations are single
// atomic statements against the (user_id, individual_id, dataset_id) unique
// key; there is no read-modify-write anywhere.
type PostgresStore struct {
	db      *sql.DB
	initial float64
}

// NewPostgres constructs a PostgreSQL-backed ledger with the given initial
// budget.
func NewPostgres(db *sql.DB, initialBudget float64) *PostgresStore {
	return &PostgresStore{db: db, initial: initialBudget}
}

// TryDebit lazily creates the entry at the initial budget, then performs a
// conditional decrement in one statement. The WHERE clause is the
// compare-and-decrement: concurrent debits serialize on the row and cannot
// lose updates, and a refused debit has zero net effect.
func (s *PostgresStore) TryDebit(ctx context.Context, userID, individualID, datasetID string, amount float64) (bool, float64, error) {
	if err := s.ensureEntry(ctx, userID, individualID, datasetID); err != nil {
		return false, 0, err
	}

	var remaining float64
	err := s.db.QueryRowContext(ctx, `
		UPDATE rip_budget
		SET budget = budget - $4, updated_at = now()
		WHERE user_id = $1 AND individual_id = $2 AND dataset_id = $3 AND budget >= $4
		RETURNING budget
	`, userID, individualID, datasetID, amount).Scan(&remaining)
	if err == nil {
		return true, remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, 0, pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "debit budget")
	}

	// Insufficient budget; report the untouched balance.
	balance, _, err := s.Balance(ctx, userID, individualID, datasetID)
	if err != nil {
		return false, 0, err
	}
	return false, balance, nil
}

// Credit increments the budget in one atomic statement. A credit for a key
// that was never debited just materializes the entry at the initial budget.
func (s *PostgresStore) Credit(ctx context.Context, userID, individualID, datasetID string, amount float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rip_budget
		SET budget = budget + $4, updated_at = now()
		WHERE user_id = $1 AND individual_id = $2 AND dataset_id = $3
	`, userID, individualID, datasetID, amount)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "credit budget")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "credit budget")
	}
	if affected == 0 {
		return s.ensureEntry(ctx, userID, individualID, datasetID)
	}
	return nil
}

// Balance reads the current budget without mutating it.
func (s *PostgresStore) Balance(ctx context.Context, userID, individualID, datasetID string) (float64, bool, error) {
	var balance float64
	err := s.db.QueryRowContext(ctx, `
		SELECT budget FROM rip_budget
		WHERE user_id = $1 AND individual_id = $2 AND dataset_id = $3
	`, userID, individualID, datasetID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "read budget")
	}
	return balance, true, nil
}

// ensureEntry inserts the row at the initial budget if absent. Racing
// creators are resolved by the unique key: one insert wins and the rest are
// no-ops, never errors.
func (s *PostgresStore) ensureEntry(ctx context.Context, userID, individualID, datasetID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rip_budget (user_id, individual_id, dataset_id, budget)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, individual_id, dataset_id) DO NOTHING
	`, userID, individualID, datasetID, s.initial)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "create budget entry")
	}
	return nil
}
