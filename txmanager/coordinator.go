package txmanager

import "context"

// Coordinator exposes the context-carried transaction through the capability
// surface the binding layer consumes: activity check, resource binding and
// lookup, and completion registration. It is stateless; all state lives on
// the Transaction inside the context.
type Coordinator struct{}

// NewCoordinator returns the coordinator adapter.
func NewCoordinator() Coordinator {
	return Coordinator{}
}

// Active reports whether a managed transaction is active on ctx. A completed
// transaction is indistinguishable from no transaction at all, so stale
// contexts never hand out defunct sessions.
func (Coordinator) Active(ctx context.Context) bool {
	tx, ok := FromContext(ctx)
	return ok && tx.active()
}

// Lookup returns the resource bound under key for the active transaction.
func (Coordinator) Lookup(ctx context.Context, key any) (any, bool) {
	tx, ok := FromContext(ctx)
	if !ok {
		return nil, false
	}
	return tx.lookupResource(key)
}

// Bind records value under key for the lifetime of the active transaction.
// Binding an already bound key fails with ErrAlreadyBound.
func (Coordinator) Bind(ctx context.Context, key, value any) error {
	tx, ok := FromContext(ctx)
	if !ok {
		return ErrNoTransaction
	}
	return tx.bindResource(key, value)
}

// OnCompletion registers fn to run exactly once when the active transaction
// ends.
func (Coordinator) OnCompletion(ctx context.Context, fn func(ctx context.Context, committed bool) error) error {
	tx, ok := FromContext(ctx)
	if !ok {
		return ErrNoTransaction
	}
	return tx.onCompletion(fn)
}
