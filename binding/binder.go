package binding

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/bionicotaku/sqlbind/session"
)

// Lease is the binder's answer for one call: the session to use, how it was
// obtained, and the holder carrying lifecycle bookkeeping for bound sessions
// (nil for standalone ones).
type Lease struct {
	Session session.Session
	Origin  Origin

	holder *holder
}

// Binder decides, per call, whether to reuse the session bound to the active
// transaction or to open a fresh one, and reports which case occurred.
//
// The crux invariant: within one active transaction, the first call asking
// for a session for a given factory creates and binds it; every subsequent
// call in the same transaction for the same factory receives the identical
// instance. Calls under different transactions, or with no transaction at
// all, never share a session.
type Binder struct {
	coord    Coordinator
	registry registry
	helper   *log.Helper
	metrics  *telemetry
	tracer   trace.Tracer
}

// NewBinder constructs a binder on top of the provided transaction
// coordinator.
func NewBinder(coord Coordinator, cfg Config, deps Dependencies) (*Binder, error) {
	if coord == nil {
		return nil, errors.New("binding: coordinator is required")
	}

	cfg = cfg.sanitized()
	sanitized := sanitizeDependencies(cfg, deps)
	helper := log.NewHelper(sanitized.logger)

	return &Binder{
		coord:    coord,
		registry: registry{coord: coord},
		helper:   helper,
		metrics:  newTelemetry(sanitized.meter, helper, cfg.metricsEnabled(), sanitized.clock),
		tracer:   sanitized.tracer,
	}, nil
}

// Acquire resolves the session the current call must use. Binding happens
// only after a successful open, so an allocation failure never leaves a
// partial registry entry behind.
func (b *Binder) Acquire(ctx context.Context, factory session.Factory) (Lease, error) {
	if factory == nil {
		return Lease{}, errors.New("binding: factory is required")
	}

	if !b.coord.Active(ctx) {
		sess, err := factory.Open(ctx)
		if err != nil {
			return Lease{}, fmt.Errorf("binding: open standalone session: %w", err)
		}
		b.helper.WithContext(ctx).Debug("no active transaction, opened standalone session")
		b.metrics.recordAcquire(ctx, OriginStandalone)
		return Lease{Session: sess, Origin: OriginStandalone}, nil
	}

	if h, ok := b.registry.lookup(ctx, factory); ok {
		b.helper.WithContext(ctx).Debug("reusing session bound to current transaction")
		b.metrics.recordAcquire(ctx, OriginReused)
		return Lease{Session: h.sess, Origin: OriginReused, holder: h}, nil
	}

	sess, err := factory.Open(ctx)
	if err != nil {
		return Lease{}, fmt.Errorf("binding: open session: %w", err)
	}

	h := &holder{sess: sess}
	if err := b.registry.bind(ctx, factory, h); err != nil {
		b.discard(ctx, sess)
		return Lease{}, err
	}
	if err := b.coord.OnCompletion(ctx, func(cctx context.Context, committed bool) error {
		return b.finish(cctx, h, committed)
	}); err != nil {
		b.discard(ctx, sess)
		return Lease{}, fmt.Errorf("binding: register completion: %w", err)
	}

	b.helper.WithContext(ctx).Debug("opened new session, bound to current transaction")
	b.metrics.recordAcquire(ctx, OriginNewlyBound)
	return Lease{Session: sess, Origin: OriginNewlyBound, holder: h}, nil
}

// finish is the completion callback registered once per bound session. The
// transaction outcome alone decides between commit and rollback; ErrClosed is
// tolerated so that an explicit lifecycle call from the caller does not turn
// completion into a failure.
func (b *Binder) finish(ctx context.Context, h *holder, committed bool) error {
	if !h.release() {
		return nil
	}

	var err error
	if committed {
		if cerr := h.sess.Commit(ctx); cerr != nil && !errors.Is(cerr, session.ErrClosed) {
			err = fmt.Errorf("binding: commit bound session: %w", cerr)
		} else {
			b.metrics.recordCommit(ctx, true)
		}
	} else {
		if rerr := h.sess.Rollback(ctx); rerr != nil && !errors.Is(rerr, session.ErrClosed) {
			b.helper.WithContext(ctx).Warnf("rollback bound session: %v", rerr)
		}
	}

	if cerr := h.sess.Close(ctx); cerr != nil && !errors.Is(cerr, session.ErrClosed) {
		b.helper.WithContext(ctx).Warnf("close bound session: %v", cerr)
	} else {
		b.metrics.recordClose(ctx, true)
	}
	b.helper.WithContext(ctx).Debugf("bound session released: committed=%t", committed)
	return err
}

func (b *Binder) discard(ctx context.Context, sess session.Session) {
	if cerr := sess.Close(ctx); cerr != nil {
		b.helper.WithContext(ctx).Warnf("close discarded session: %v", cerr)
	}
}
