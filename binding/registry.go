package binding

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/bionicotaku/sqlbind/session"
)

// holder pairs a bound session with the flag guaranteeing its terminal
// lifecycle (commit-or-rollback then close) runs at most once, whether it is
// triggered by transaction completion or by an explicit close from the
// caller.
type holder struct {
	sess     session.Session
	released atomic.Bool
}

// release claims the terminal lifecycle. Only the first caller wins.
func (h *holder) release() bool {
	return h.released.CompareAndSwap(false, true)
}

// registry scopes session holders to the currently active transaction, keyed
// by factory identity. Entries vanish with the transaction itself; the
// coordinator owns their storage.
type registry struct {
	coord Coordinator
}

// lookup returns the holder bound for factory in the active transaction, or
// misses when no transaction is active or nothing is bound yet.
func (r registry) lookup(ctx context.Context, factory session.Factory) (*holder, bool) {
	value, ok := r.coord.Lookup(ctx, factory)
	if !ok {
		return nil, false
	}
	h, ok := value.(*holder)
	return h, ok
}

// bind records the holder for factory in the active transaction. A second
// bind for the same factory is an integration error surfaced from the
// coordinator, never a silent overwrite.
func (r registry) bind(ctx context.Context, factory session.Factory, h *holder) error {
	if err := r.coord.Bind(ctx, factory, h); err != nil {
		return fmt.Errorf("binding: bind session for factory: %w", err)
	}
	return nil
}
