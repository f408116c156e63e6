package pgxsession

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Component aggregates the constructed pool and factory along with cleanup
// facilities.
type Component struct {
	Pool    *pgxpool.Pool
	Factory *Factory

	helper  *log.Helper
	metrics *poolTelemetry
}

// NewComponent builds and validates the connection pool according to the
// provided configuration and dependencies, then wraps it in a session
// factory. The initial ping doubles as the first health-check measurement.
func NewComponent(ctx context.Context, cfg Config, deps Dependencies) (*Component, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}

	sanitized, err := cfg.Sanitize()
	if err != nil {
		return nil, nil, err
	}

	dep := sanitizeDependencies(deps)
	helper := log.NewHelper(dep.logger)

	poolConfig, err := newPoolConfig(sanitized, dep)
	if err != nil {
		return nil, nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxsession: create pool: %w", err)
	}

	telemetry := &poolTelemetry{}
	if sanitized.metricsEnabled() {
		telemetry = newPoolTelemetry(dep.meter, helper, pool)
	}

	start := dep.clock()
	err = pingDatabase(ctx, pool, sanitized.HealthCheckTimeout)
	telemetry.recordHealthCheck(ctx, dep.clock().Sub(start), err)
	if err != nil {
		telemetry.shutdown(context.Background())
		pool.Close()
		return nil, nil, err
	}

	helper.Infof("pgx pool created: dsn=%s max_conns=%d min_conns=%d isolation=%s",
		sanitizeDSN(sanitized.DSN), poolConfig.MaxConns, poolConfig.MinConns, sanitized.Isolation)

	factory := newFactory(pool, parseIsolation(sanitized.Isolation), helper, telemetry, dep.clock)

	comp := &Component{Pool: pool, Factory: factory, helper: helper, metrics: telemetry}
	cleanup := func() {
		helper.Info("closing pgx pool")
		telemetry.shutdown(context.Background())
		pool.Close()
	}
	return comp, cleanup, nil
}

// ProvideFactory exposes the Factory for Wire injection.
func ProvideFactory(comp *Component) *Factory {
	return comp.Factory
}

// ProviderSet collects constructors for Wire integration.
var ProviderSet = wire.NewSet(NewComponent, ProvideFactory)
