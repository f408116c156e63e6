package binding

import "context"

// Coordinator is the capability surface consumed from the enclosing
// transaction manager. The binding layer never inspects how transactions are
// made atomic; it only needs to know whether one is active on the calling
// context, to scope resources to it, and to be told when it ends.
//
// txmanager.Coordinator satisfies this interface; tests substitute fakes.
type Coordinator interface {
	// Active reports whether a managed transaction is active on ctx. Once a
	// transaction has completed this must report false even if the same
	// context value is still being passed around.
	Active(ctx context.Context) bool

	// Lookup returns the resource bound under key for the active
	// transaction. It misses when no transaction is active or nothing was
	// bound.
	Lookup(ctx context.Context, key any) (any, bool)

	// Bind records value under key for the lifetime of the active
	// transaction. Binding a key twice is an integration error and must
	// fail rather than silently overwrite.
	Bind(ctx context.Context, key, value any) error

	// OnCompletion registers fn to run exactly once when the active
	// transaction ends. committed reports the transaction outcome; errors
	// returned from fn on the commit path must surface to whoever drove
	// the transaction.
	OnCompletion(ctx context.Context, fn func(ctx context.Context, committed bool) error) error
}
