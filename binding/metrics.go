package binding

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bionicotaku/sqlbind/session"
)

type telemetry struct {
	enabled bool
	clock   func() time.Time

	acquired   metric.Int64Counter
	commits    metric.Int64Counter
	closes     metric.Int64Counter
	failures   metric.Int64Counter
	opDuration metric.Float64Histogram

	logger *log.Helper
}

func newTelemetry(meter metric.Meter, logger *log.Helper, enabled bool, clock func() time.Time) *telemetry {
	t := &telemetry{enabled: enabled, clock: clock, logger: logger}
	if !enabled {
		return t
	}

	var err error
	t.acquired, err = meter.Int64Counter("db.session.acquired")
	if err != nil {
		logger.Warnf("binding: create acquired counter: %v", err)
	}
	t.commits, err = meter.Int64Counter("db.session.commits")
	if err != nil {
		logger.Warnf("binding: create commits counter: %v", err)
	}
	t.closes, err = meter.Int64Counter("db.session.closes")
	if err != nil {
		logger.Warnf("binding: create closes counter: %v", err)
	}
	t.failures, err = meter.Int64Counter("db.session.op_failures")
	if err != nil {
		logger.Warnf("binding: create failures counter: %v", err)
	}
	t.opDuration, err = meter.Float64Histogram("db.session.op_duration", metric.WithUnit("ms"))
	if err != nil {
		logger.Warnf("binding: create duration histogram: %v", err)
	}
	return t
}

func (t *telemetry) now() time.Time {
	return t.clock()
}

func (t *telemetry) since(start time.Time) time.Duration {
	return t.clock().Sub(start)
}

func (t *telemetry) recordAcquire(ctx context.Context, origin Origin) {
	if !t.enabled || t.acquired == nil {
		return
	}
	t.acquired.Add(ctx, 1, metric.WithAttributes(attribute.String("session.origin", origin.String())))
}

func (t *telemetry) recordOp(ctx context.Context, op session.Operation, origin Origin, err error, elapsed time.Duration) {
	if !t.enabled {
		return
	}
	opts := metric.WithAttributes(
		attribute.String("db.operation", op.Kind.String()),
		attribute.String("session.origin", origin.String()),
	)
	if t.opDuration != nil {
		t.opDuration.Record(ctx, float64(elapsed.Milliseconds()), opts)
	}
	if err != nil && t.failures != nil {
		t.failures.Add(ctx, 1, opts)
	}
}

// deferred distinguishes lifecycle actions applied at transaction completion
// from those applied immediately by the call itself.
func (t *telemetry) recordCommit(ctx context.Context, deferred bool) {
	if !t.enabled || t.commits == nil {
		return
	}
	t.commits.Add(ctx, 1, metric.WithAttributes(attribute.Bool("session.deferred", deferred)))
}

func (t *telemetry) recordClose(ctx context.Context, deferred bool) {
	if !t.enabled || t.closes == nil {
		return
	}
	t.closes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("session.deferred", deferred)))
}
