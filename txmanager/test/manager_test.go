package txmanager_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bionicotaku/sqlbind/session"
	"github.com/bionicotaku/sqlbind/txmanager"
)

func newManager(t *testing.T, cfg txmanager.Config) txmanager.Manager {
	t.Helper()
	mgr, err := txmanager.NewManager(cfg, txmanager.Dependencies{})
	require.NoError(t, err)
	return mgr
}

func TestWithinTxNilFn(t *testing.T) {
	mgr := newManager(t, txmanager.Config{})
	err := mgr.WithinTx(context.Background(), txmanager.TxOptions{}, nil)
	assert.Error(t, err)
}

func TestWithinTxInstallsTransaction(t *testing.T) {
	mgr := newManager(t, txmanager.Config{})
	coord := txmanager.NewCoordinator()

	err := mgr.WithinTx(context.Background(), txmanager.TxOptions{}, func(ctx context.Context) error {
		assert.True(t, coord.Active(ctx))
		_, ok := txmanager.FromContext(ctx)
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestWithinTxCompletionCommitted(t *testing.T) {
	mgr := newManager(t, txmanager.Config{})
	coord := txmanager.NewCoordinator()

	var calls int
	var outcome bool
	err := mgr.WithinTx(context.Background(), txmanager.TxOptions{}, func(ctx context.Context) error {
		return coord.OnCompletion(ctx, func(_ context.Context, committed bool) error {
			calls++
			outcome = committed
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, outcome)
}

func TestWithinTxCompletionRolledBack(t *testing.T) {
	mgr := newManager(t, txmanager.Config{})
	coord := txmanager.NewCoordinator()
	wantErr := errors.New("boom")

	var calls int
	var outcome bool
	err := mgr.WithinTx(context.Background(), txmanager.TxOptions{}, func(ctx context.Context) error {
		require.NoError(t, coord.OnCompletion(ctx, func(_ context.Context, committed bool) error {
			calls++
			outcome = committed
			return nil
		}))
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
	assert.False(t, outcome)
}

func TestWithinTxCommitCompletionErrorSurfaces(t *testing.T) {
	mgr := newManager(t, txmanager.Config{})
	coord := txmanager.NewCoordinator()
	commitErr := errors.New("commit refused")

	err := mgr.WithinTx(context.Background(), txmanager.TxOptions{}, func(ctx context.Context) error {
		return coord.OnCompletion(ctx, func(context.Context, bool) error {
			return commitErr
		})
	})
	assert.ErrorIs(t, err, commitErr)
}

func TestWithinTxPanicRollsBack(t *testing.T) {
	mgr := newManager(t, txmanager.Config{})
	coord := txmanager.NewCoordinator()

	var outcome *bool
	assert.Panics(t, func() {
		_ = mgr.WithinTx(context.Background(), txmanager.TxOptions{}, func(ctx context.Context) error {
			require.NoError(t, coord.OnCompletion(ctx, func(_ context.Context, committed bool) error {
				outcome = &committed
				return nil
			}))
			panic("kaboom")
		})
	})
	require.NotNil(t, outcome)
	assert.False(t, *outcome)
}

func TestWithinTxTransactionInactiveAfterReturn(t *testing.T) {
	mgr := newManager(t, txmanager.Config{})
	coord := txmanager.NewCoordinator()

	var captured context.Context
	err := mgr.WithinTx(context.Background(), txmanager.TxOptions{}, func(ctx context.Context) error {
		captured = ctx
		return coord.Bind(ctx, "key", "value")
	})
	require.NoError(t, err)

	assert.False(t, coord.Active(captured))
	_, ok := coord.Lookup(captured, "key")
	assert.False(t, ok)
}

func TestWithinTxRetriesRetryableErrors(t *testing.T) {
	cfg := txmanager.Config{
		MaxRetries:           3,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     2 * time.Millisecond,
	}
	mgr := newManager(t, cfg)

	attempts := 0
	txIDs := map[string]struct{}{}
	err := mgr.WithinTx(context.Background(), txmanager.TxOptions{}, func(ctx context.Context) error {
		attempts++
		tx, ok := txmanager.FromContext(ctx)
		require.True(t, ok)
		txIDs[tx.ID()] = struct{}{}
		if attempts < 3 {
			return session.MarkRetryable(errors.New("serialization failure"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	// Every attempt runs in a fresh transaction.
	assert.Len(t, txIDs, 3)
}

func TestWithinTxDoesNotRetryPermanentErrors(t *testing.T) {
	cfg := txmanager.Config{
		MaxRetries:           3,
		RetryInitialInterval: time.Millisecond,
	}
	mgr := newManager(t, cfg)

	attempts := 0
	wantErr := errors.New("constraint violation")
	err := mgr.WithinTx(context.Background(), txmanager.TxOptions{}, func(ctx context.Context) error {
		attempts++
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, attempts)
}

func TestWithinTxRetriesExhausted(t *testing.T) {
	cfg := txmanager.Config{
		MaxRetries:           2,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     2 * time.Millisecond,
	}
	mgr := newManager(t, cfg)

	attempts := 0
	err := mgr.WithinTx(context.Background(), txmanager.TxOptions{}, func(ctx context.Context) error {
		attempts++
		return session.MarkRetryable(errors.New("deadlock"))
	})
	assert.True(t, session.IsRetryable(err))
	assert.Equal(t, 3, attempts)
}

func TestWithinTxContextPropagation(t *testing.T) {
	mgr := newManager(t, txmanager.Config{})

	type ctxKey string
	key := ctxKey("test-key")
	ctx := context.WithValue(context.Background(), key, "test-value")

	err := mgr.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context) error {
		assert.Equal(t, "test-value", txCtx.Value(key))
		return nil
	})
	require.NoError(t, err)
}
