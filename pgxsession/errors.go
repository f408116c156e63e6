package pgxsession

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bionicotaku/sqlbind/session"
)

// classify marks pg failures that a fresh transaction attempt may resolve
// (serialization conflicts, deadlocks, lock timeouts) as retryable.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.SQLState() {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03": // lock_not_available
			return session.MarkRetryable(err)
		}
	}
	return err
}
