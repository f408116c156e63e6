package binding

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bionicotaku/sqlbind/session"
)

// Executor is the single chokepoint through which every operation against one
// factory passes. It asks the binder for a session, executes the operation,
// and applies the commit/close policy: commit and close immediately iff the
// session is standalone; bound sessions defer both to transaction completion.
//
// Explicit lifecycle operations (commit/rollback/close kinds) bypass the
// policy and go straight to the session, with one exception: a standalone
// session is still closed before the call returns so it can never leak.
type Executor struct {
	factory session.Factory
	binder  *Binder
}

// NewExecutor builds the operation chokepoint for a single factory. The
// executor shares the binder's logger, telemetry and tracer.
func NewExecutor(factory session.Factory, binder *Binder) (*Executor, error) {
	if factory == nil {
		return nil, errors.New("binding: factory is required")
	}
	if binder == nil {
		return nil, errors.New("binding: binder is required")
	}
	return &Executor{factory: factory, binder: binder}, nil
}

// Invoke runs one operation. The operation's own result or failure propagates
// unchanged; the lifecycle actions around it are decided here and nowhere
// else.
func (e *Executor) Invoke(ctx context.Context, op session.Operation) (result any, err error) {
	if e.binder.tracer != nil {
		var span trace.Span
		ctx, span = e.binder.tracer.Start(ctx, "db.op."+op.Kind.String(), trace.WithSpanKind(trace.SpanKindInternal))
		span.SetAttributes(attribute.String("db.operation", op.Kind.String()), attribute.String("db.statement.id", op.Statement))
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "invoke")
			}
			span.End()
		}()
	}

	start := e.binder.metrics.now()
	lease, err := e.binder.Acquire(ctx, e.factory)
	if err != nil {
		return nil, err
	}

	if op.Kind.Lifecycle() {
		err = e.passthrough(ctx, lease, op)
		return nil, err
	}

	result, err = lease.Session.Execute(ctx, op)
	e.binder.metrics.recordOp(ctx, op, lease.Origin, err, e.binder.metrics.since(start))

	if lease.Origin.Bound() {
		// Lifecycle deferred: the completion callback registered by the
		// binder commits or rolls back and closes when the transaction ends.
		return result, err
	}

	if err == nil {
		if cerr := lease.Session.Commit(ctx); cerr != nil {
			err = fmt.Errorf("binding: commit standalone session: %w", cerr)
		} else {
			e.binder.metrics.recordCommit(ctx, false)
		}
	} else if rerr := lease.Session.Rollback(ctx); rerr != nil && !errors.Is(rerr, session.ErrClosed) {
		e.binder.helper.WithContext(ctx).Warnf("rollback standalone session: %v", rerr)
	}

	// A failed operation on a standalone session still must be closed.
	if cerr := lease.Session.Close(ctx); cerr != nil {
		e.binder.helper.WithContext(ctx).Warnf("close standalone session: %v", cerr)
	} else {
		e.binder.metrics.recordClose(ctx, false)
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

// passthrough executes an explicit lifecycle call as asked, without wrapping
// it in the interceptor's own commit/close policy.
func (e *Executor) passthrough(ctx context.Context, lease Lease, op session.Operation) error {
	if op.Kind == session.KindClose {
		if lease.holder != nil {
			// Retire the holder so transaction completion does not close the
			// session a second time.
			if !lease.holder.release() {
				return session.ErrClosed
			}
		}
		return lease.Session.Close(ctx)
	}

	var err error
	switch op.Kind {
	case session.KindCommit:
		err = lease.Session.Commit(ctx)
	case session.KindRollback:
		err = lease.Session.Rollback(ctx)
	}

	if lease.Origin == OriginStandalone {
		if cerr := lease.Session.Close(ctx); cerr != nil {
			e.binder.helper.WithContext(ctx).Warnf("close standalone session: %v", cerr)
		}
	}
	return err
}
