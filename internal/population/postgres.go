package population

import (
	"context"
	"database/sql"

	pkgerrors "beacon/pkg/errors"
)

// PostgresSizer counts individuals in PostgreSQL.
type PostgresSizer struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed sizer.
func NewPostgres(db *sql.DB) *PostgresSizer {
	return &PostgresSizer{db: db}
}

// Individuals counts the individuals of one dataset, or the whole collection
// when datasetID is empty.
func (s *PostgresSizer) Individuals(ctx context.Context, datasetID string) (int, error) {
	var (
		count int
		err   error
	)
	if datasetID == "" {
		err = s.db.QueryRowContext(ctx, `SELECT count(*) FROM individuals`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `
			SELECT count(*) FROM individuals WHERE dataset_id = $1
		`, datasetID).Scan(&count)
	}
	if err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "count individuals")
	}
	return count, nil
}
