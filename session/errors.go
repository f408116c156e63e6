package session

import (
	"errors"
	"fmt"
)

// ErrClosed reports a lifecycle call against a session whose transaction has
// already finished. The completion path treats it as benign so that an
// explicit commit followed by transaction completion never fails the caller.
var ErrClosed = errors.New("session: already closed")

// ErrRetryable marks transient failures (serialization conflicts, deadlocks,
// lock timeouts) that are worth retrying with a fresh transaction.
var ErrRetryable = errors.New("session: retryable")

// MarkRetryable annotates err as retryable while preserving the original
// cause for downstream inspection.
func MarkRetryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}

// IsRetryable reports whether err came from a transient failure that a fresh
// transaction attempt may resolve.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable)
}
