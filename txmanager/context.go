// Package txmanager carries the logical transaction scope that the binding
// layer binds sessions to. The scope travels explicitly on the context; there
// is no process-global "current transaction".
package txmanager

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

type txContextKey struct{}

// Transaction is one logical unit of work. It owns a private resource table
// keyed by factory identity and a list of completion callbacks fired exactly
// once when the transaction ends, regardless of outcome.
type Transaction struct {
	id string

	mu          sync.Mutex
	done        bool
	resources   map[any]any
	completions []func(ctx context.Context, committed bool) error
}

// NewTransaction creates a fresh, active transaction. Manager.WithinTx calls
// this for every attempt; alternative drivers may use it directly as long as
// they guarantee Complete is eventually called.
func NewTransaction() *Transaction {
	return &Transaction{
		id:        uuid.NewString(),
		resources: make(map[any]any),
	}
}

// ID returns the transaction identifier used for log correlation.
func (t *Transaction) ID() string {
	return t.id
}

func (t *Transaction) active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.done
}

func (t *Transaction) bindResource(key, value any) error {
	if key == nil {
		return errors.New("txmanager: resource key is required")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrCompleted
	}
	if _, exists := t.resources[key]; exists {
		return ErrAlreadyBound
	}
	t.resources[key] = value
	return nil
}

func (t *Transaction) lookupResource(key any) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil, false
	}
	value, ok := t.resources[key]
	return value, ok
}

func (t *Transaction) onCompletion(fn func(ctx context.Context, committed bool) error) error {
	if fn == nil {
		return errors.New("txmanager: completion callback is required")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrCompleted
	}
	t.completions = append(t.completions, fn)
	return nil
}

// Complete marks the transaction finished and fires the completion callbacks
// in registration order. Resources are dropped before the callbacks run so
// that any lookup performed during completion misses. Subsequent Complete
// calls are no-ops.
func (t *Transaction) Complete(ctx context.Context, committed bool) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return nil
	}
	t.done = true
	callbacks := t.completions
	t.completions = nil
	t.resources = nil
	t.mu.Unlock()

	var errs []error
	for _, fn := range callbacks {
		if err := fn(ctx, committed); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithTransaction returns a context carrying tx. Callers normally never use
// this directly; Manager.WithinTx installs the transaction for them.
func WithTransaction(ctx context.Context, tx *Transaction) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// FromContext returns the transaction carried by ctx, completed or not.
func FromContext(ctx context.Context) (*Transaction, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*Transaction)
	return tx, ok
}
