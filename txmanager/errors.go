package txmanager

import "errors"

var (
	// ErrNoTransaction reports an operation that requires an active managed
	// transaction on the context.
	ErrNoTransaction = errors.New("txmanager: no active transaction")

	// ErrAlreadyBound reports a second bind for a key already bound in the
	// active transaction. This indicates violated transaction boundary
	// assumptions and is never resolved by overwriting.
	ErrAlreadyBound = errors.New("txmanager: resource already bound")

	// ErrCompleted reports an operation against a transaction that has
	// already finished.
	ErrCompleted = errors.New("txmanager: transaction already completed")
)
