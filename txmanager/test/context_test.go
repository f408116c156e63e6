package txmanager_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bionicotaku/sqlbind/txmanager"
)

func TestFromContextEmpty(t *testing.T) {
	_, ok := txmanager.FromContext(context.Background())
	assert.False(t, ok)
}

func TestWithTransactionRoundTrip(t *testing.T) {
	tx := txmanager.NewTransaction()
	ctx := txmanager.WithTransaction(context.Background(), tx)

	got, ok := txmanager.FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, tx, got)
	assert.NotEmpty(t, tx.ID())
}

func TestCoordinatorWithoutTransaction(t *testing.T) {
	coord := txmanager.NewCoordinator()
	ctx := context.Background()

	assert.False(t, coord.Active(ctx))

	_, ok := coord.Lookup(ctx, "key")
	assert.False(t, ok)

	err := coord.Bind(ctx, "key", "value")
	assert.ErrorIs(t, err, txmanager.ErrNoTransaction)

	err = coord.OnCompletion(ctx, func(context.Context, bool) error { return nil })
	assert.ErrorIs(t, err, txmanager.ErrNoTransaction)
}

func TestCoordinatorBindAndLookup(t *testing.T) {
	coord := txmanager.NewCoordinator()
	tx := txmanager.NewTransaction()
	ctx := txmanager.WithTransaction(context.Background(), tx)

	require.True(t, coord.Active(ctx))

	type key struct{ name string }
	k := key{name: "factory"}

	_, ok := coord.Lookup(ctx, k)
	assert.False(t, ok)

	require.NoError(t, coord.Bind(ctx, k, "session"))

	value, ok := coord.Lookup(ctx, k)
	require.True(t, ok)
	assert.Equal(t, "session", value)
}

func TestCoordinatorDoubleBind(t *testing.T) {
	coord := txmanager.NewCoordinator()
	ctx := txmanager.WithTransaction(context.Background(), txmanager.NewTransaction())

	require.NoError(t, coord.Bind(ctx, "key", "first"))

	err := coord.Bind(ctx, "key", "second")
	assert.ErrorIs(t, err, txmanager.ErrAlreadyBound)

	// The original binding survives.
	value, ok := coord.Lookup(ctx, "key")
	require.True(t, ok)
	assert.Equal(t, "first", value)
}

func TestCompleteFiresCallbacksOnce(t *testing.T) {
	coord := txmanager.NewCoordinator()
	tx := txmanager.NewTransaction()
	ctx := txmanager.WithTransaction(context.Background(), tx)

	var calls int
	var outcome bool
	require.NoError(t, coord.OnCompletion(ctx, func(_ context.Context, committed bool) error {
		calls++
		outcome = committed
		return nil
	}))

	require.NoError(t, tx.Complete(ctx, true))
	assert.Equal(t, 1, calls)
	assert.True(t, outcome)

	// A second completion is a no-op.
	require.NoError(t, tx.Complete(ctx, false))
	assert.Equal(t, 1, calls)
}

func TestCompletedTransactionReportsInactive(t *testing.T) {
	coord := txmanager.NewCoordinator()
	tx := txmanager.NewTransaction()
	ctx := txmanager.WithTransaction(context.Background(), tx)

	require.NoError(t, coord.Bind(ctx, "key", "value"))
	require.NoError(t, tx.Complete(ctx, false))

	// Stale contexts must never hand out defunct resources.
	assert.False(t, coord.Active(ctx))
	_, ok := coord.Lookup(ctx, "key")
	assert.False(t, ok)

	err := coord.Bind(ctx, "other", "value")
	assert.ErrorIs(t, err, txmanager.ErrCompleted)

	err = coord.OnCompletion(ctx, func(context.Context, bool) error { return nil })
	assert.ErrorIs(t, err, txmanager.ErrCompleted)
}

func TestCompleteJoinsCallbackErrors(t *testing.T) {
	tx := txmanager.NewTransaction()
	ctx := txmanager.WithTransaction(context.Background(), tx)
	coord := txmanager.NewCoordinator()

	wantErr := assert.AnError
	require.NoError(t, coord.OnCompletion(ctx, func(context.Context, bool) error { return wantErr }))
	require.NoError(t, coord.OnCompletion(ctx, func(context.Context, bool) error { return nil }))

	err := tx.Complete(ctx, true)
	assert.ErrorIs(t, err, wantErr)
}
