package txmanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bionicotaku/sqlbind/session"
)

// Manager drives logical transactions for service layers. Everything executed
// by fn through the binding layer shares the transaction installed on the
// supplied context; bound resources are committed or rolled back exactly once
// when fn returns.
type Manager interface {
	WithinTx(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error
}

type managerImpl struct {
	cfg     Config
	deps    managerDeps
	metrics *telemetry
	helper  *log.Helper
	tracer  trace.Tracer
}

// NewManager constructs a transaction manager.
func NewManager(cfg Config, deps Dependencies) (Manager, error) {
	cfg = cfg.sanitized()
	sanitized := sanitizeDependencies(cfg, deps)
	helper := log.NewHelper(sanitized.logger)

	metricsEnabled := true
	if cfg.MetricsEnabled != nil {
		metricsEnabled = *cfg.MetricsEnabled
	}

	m := &managerImpl{
		cfg:     cfg,
		deps:    sanitized,
		metrics: newTelemetry(sanitized.meter, helper, metricsEnabled),
		helper:  helper,
		tracer:  sanitized.tracer,
	}
	return m, nil
}

func (m *managerImpl) WithinTx(ctx context.Context, override TxOptions, fn func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return errors.New("txmanager: fn is required")
	}

	opts := mergeTxOptions(m.defaults(), override)
	if opts.TraceName == "" {
		opts.TraceName = "db.tx"
	}

	backoffSeq := backoff.NewExponentialBackOff()
	backoffSeq.InitialInterval = m.cfg.RetryInitialInterval
	backoffSeq.MaxInterval = m.cfg.RetryMaxInterval
	backoffSeq.Multiplier = backoff.DefaultMultiplier
	backoffSeq.RandomizationFactor = backoff.DefaultRandomizationFactor
	backoffSeq.Reset()

	attempt := 0
	for {
		err := m.execOnce(ctx, opts, fn, attempt)
		if err == nil {
			return nil
		}
		if !session.IsRetryable(err) || attempt >= opts.MaxRetries {
			return err
		}

		attempt++
		delay := backoffSeq.NextBackOff()
		m.metrics.recordRetry(ctx, opts.TraceName)
		m.helper.WithContext(ctx).Warnf("txmanager: retrying attempt=%d delay=%s err=%v", attempt, delay, err)
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			return fmt.Errorf("txmanager: retry aborted: %w", errors.Join(waitErr, err))
		}
	}
}

func (m *managerImpl) execOnce(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error, attempt int) (err error) {
	ctx, cancel := applyTimeout(ctx, opts.Timeout)
	defer cancel()

	spanName := opts.TraceName
	ctx, span := m.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	tx := NewTransaction()
	ctx = WithTransaction(ctx, tx)
	span.SetAttributes(attribute.String("db.tx.id", tx.id), attribute.Int("db.tx.attempt", attempt))

	start := m.deps.clock()
	m.metrics.recordStart(ctx, spanName)

	completed := false
	defer func() {
		if !completed {
			if rbErr := tx.Complete(ctx, false); rbErr != nil {
				m.helper.WithContext(ctx).Warnf("txmanager: rollback completion failed tx=%s err=%v", tx.id, rbErr)
			}
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("txmanager: panic recovered: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			m.helper.WithContext(ctx).Errorf("txmanager: panic tx=%s err=%v", tx.id, err)
			m.metrics.recordEnd(ctx, spanName, err, m.elapsedSince(start))
			panic(r)
		}
	}()

	err = fn(ctx)
	if err != nil {
		if rbErr := tx.Complete(ctx, false); rbErr != nil {
			m.helper.WithContext(ctx).Warnf("txmanager: rollback completion failed tx=%s err=%v", tx.id, rbErr)
		}
		completed = true
		span.RecordError(err)
		span.SetStatus(codes.Error, "exec")
		m.helper.WithContext(ctx).Warnf("txmanager: fn error tx=%s retryable=%t err=%v", tx.id, session.IsRetryable(err), err)
		m.metrics.recordEnd(ctx, spanName, err, m.elapsedSince(start))
		return err
	}

	if commitErr := tx.Complete(ctx, true); commitErr != nil {
		completed = true
		err = fmt.Errorf("txmanager: commit: %w", commitErr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit")
		m.helper.WithContext(ctx).Errorf("txmanager: commit failed tx=%s err=%v", tx.id, err)
		m.metrics.recordEnd(ctx, spanName, err, m.elapsedSince(start))
		return err
	}

	completed = true
	m.metrics.recordEnd(ctx, spanName, nil, m.elapsedSince(start))
	span.SetStatus(codes.Ok, "committed")
	return nil
}

func (m *managerImpl) defaults() TxOptions {
	return TxOptions{
		Timeout:    m.cfg.DefaultTimeout,
		MaxRetries: m.cfg.MaxRetries,
	}
}

func applyTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= timeout {
			return ctx, func() {}
		}
	}
	return context.WithTimeout(ctx, timeout)
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *managerImpl) elapsedSince(start time.Time) time.Duration {
	now := m.deps.clock()
	return now.Sub(start)
}
