package pgxsession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bionicotaku/sqlbind/session"
)

// Factory opens sessions over a pgx connection pool. It is long-lived and
// shared; its pointer identity is the binding key inside an active
// transaction.
type Factory struct {
	pool      *pgxpool.Pool
	isolation pgx.TxIsoLevel
	helper    *log.Helper
	metrics   *poolTelemetry
	clock     func() time.Time
}

func newFactory(pool *pgxpool.Pool, isolation pgx.TxIsoLevel, helper *log.Helper, metrics *poolTelemetry, clock func() time.Time) *Factory {
	return &Factory{
		pool:      pool,
		isolation: isolation,
		helper:    helper,
		metrics:   metrics,
		clock:     clock,
	}
}

// NewFactory constructs a session factory over an existing pool. Pool
// telemetry is only wired when the factory is built through NewComponent.
func NewFactory(pool *pgxpool.Pool, cfg Config, logger log.Logger) (*Factory, error) {
	if pool == nil {
		return nil, errors.New("pgxsession: pool is required")
	}
	if logger == nil {
		logger = log.NewStdLogger(io.Discard)
	}
	return newFactory(pool, parseIsolation(cfg.Isolation), log.NewHelper(logger), &poolTelemetry{}, time.Now), nil
}

// Open acquires a connection and wraps it in a session. The transaction on
// the connection begins lazily on the first statement.
func (f *Factory) Open(ctx context.Context) (session.Session, error) {
	start := f.clock()
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgxsession: acquire connection: %w", err)
	}
	f.metrics.recordAcquire(ctx, f.clock().Sub(start))

	s := &pgxSession{
		id:        uuid.NewString(),
		conn:      conn,
		isolation: f.isolation,
		helper:    f.helper,
	}
	f.helper.WithContext(ctx).Debugf("session opened: id=%s", s.id)
	return s, nil
}
