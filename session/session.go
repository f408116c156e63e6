// Package session defines the contracts shared between the binding layer and
// concrete session implementations: the factory that produces sessions, the
// session operation surface, and the error markers the lifecycle machinery
// relies on.
package session

import "context"

// Factory produces sessions over some connection-like resource. The factory
// value itself is the binding key inside an active transaction, so
// implementations must be comparable; pointer receivers satisfy this.
type Factory interface {
	Open(ctx context.Context) (Session, error)
}

// Session bundles a connection-like handle with the operations issued against
// it. A session is owned either by the single call that opened it or by the
// transaction it was bound to; the binding layer guarantees Close is called
// at most once per instance.
type Session interface {
	Execute(ctx context.Context, op Operation) (any, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}
