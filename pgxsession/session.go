package pgxsession

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bionicotaku/sqlbind/session"
)

type pgxSession struct {
	id        string
	isolation pgx.TxIsoLevel
	helper    *log.Helper

	mu     sync.Mutex
	conn   *pgxpool.Conn
	tx     pgx.Tx
	closed bool
}

// ensureTx begins the connection transaction on first use. Callers hold the
// session mutex.
func (s *pgxSession) ensureTx(ctx context.Context) (pgx.Tx, error) {
	if s.closed {
		return nil, session.ErrClosed
	}
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: s.isolation})
	if err != nil {
		return nil, fmt.Errorf("pgxsession: begin: %w", classify(err))
	}
	s.tx = tx
	return tx, nil
}

func (s *pgxSession) Execute(ctx context.Context, op session.Operation) (any, error) {
	if op.Kind.Lifecycle() {
		return nil, fmt.Errorf("pgxsession: %s is a lifecycle call, not a statement", op.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.ensureTx(ctx)
	if err != nil {
		return nil, err
	}

	switch op.Kind {
	case session.KindSelectOne:
		rows, err := tx.Query(ctx, op.SQL, op.Args...)
		if err != nil {
			return nil, fmt.Errorf("pgxsession: query %s: %w", op.Statement, classify(err))
		}
		row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("pgxsession: collect %s: %w", op.Statement, classify(err))
		}
		return row, nil

	case session.KindSelectList:
		rows, err := tx.Query(ctx, op.SQL, op.Args...)
		if err != nil {
			return nil, fmt.Errorf("pgxsession: query %s: %w", op.Statement, classify(err))
		}
		list, err := pgx.CollectRows(rows, pgx.RowToMap)
		if err != nil {
			return nil, fmt.Errorf("pgxsession: collect %s: %w", op.Statement, classify(err))
		}
		return list, nil

	case session.KindInsert, session.KindUpdate, session.KindDelete:
		tag, err := tx.Exec(ctx, op.SQL, op.Args...)
		if err != nil {
			return nil, fmt.Errorf("pgxsession: exec %s: %w", op.Statement, classify(err))
		}
		return tag.RowsAffected(), nil

	default:
		return nil, fmt.Errorf("pgxsession: unsupported operation kind %d", op.Kind)
	}
}

func (s *pgxSession) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return session.ErrClosed
	}
	if s.tx == nil {
		// Nothing executed yet; there is no transaction to commit.
		return nil
	}

	err := s.tx.Commit(ctx)
	s.tx = nil
	if err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return session.ErrClosed
		}
		return fmt.Errorf("pgxsession: commit: %w", classify(err))
	}
	s.helper.WithContext(ctx).Debugf("session committed: id=%s", s.id)
	return nil
}

func (s *pgxSession) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return session.ErrClosed
	}
	if s.tx == nil {
		return nil
	}

	err := s.tx.Rollback(ctx)
	s.tx = nil
	if err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return session.ErrClosed
		}
		return fmt.Errorf("pgxsession: rollback: %w", err)
	}
	s.helper.WithContext(ctx).Debugf("session rolled back: id=%s", s.id)
	return nil
}

func (s *pgxSession) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return session.ErrClosed
	}
	s.closed = true

	if s.tx != nil {
		if err := s.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.helper.WithContext(ctx).Warnf("rollback on close: id=%s err=%v", s.id, err)
		}
		s.tx = nil
	}

	s.conn.Release()
	s.conn = nil
	s.helper.WithContext(ctx).Debugf("session closed: id=%s", s.id)
	return nil
}
