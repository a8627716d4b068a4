package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/lib/pq"

	"beacon/internal/rip"
	pkgerrors "beacon/pkg/errors"
)

// Postgres error code for unique constraint violations.
const uniqueViolation = pq.ErrorCode("23505")

// PostgresStore persists the response history in PostgreSQL with a unique
// key on (user_id, query_fingerprint, dataset_id). The response is stored as
// jsonb.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed response history.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Lookup returns the memoized response for the key, if any.
func (s *PostgresStore) Lookup(ctx context.Context, userID, fingerprint, datasetID string) ([]rip.CandidateRecord, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT response FROM rip_history
		WHERE user_id = $1 AND query_fingerprint = $2 AND dataset_id = $3
	`, userID, fingerprint, datasetID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "lookup history")
	}

	var records []rip.CandidateRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "decode history entry")
	}
	return records, true, nil
}

// Store inserts the response for the key. Losing the insert race to another
// writer is not an error: the unique constraint rejects the duplicate and
// the first committed value stands.
func (s *PostgresStore) Store(ctx context.Context, userID, fingerprint, datasetID string, records []rip.CandidateRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "encode history entry")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rip_history (user_id, query_fingerprint, dataset_id, response)
		VALUES ($1, $2, $3, $4)
	`, userID, fingerprint, datasetID, payload)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil
		}
		return pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "store history")
	}
	return nil
}
