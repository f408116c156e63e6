package binding_test

import (
	"context"
	"sync"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/bionicotaku/sqlbind/binding"
	"github.com/bionicotaku/sqlbind/txmanager"
)

// captureLogger counts log records so tests can assert whether the component
// emitted anything at all.
type captureLogger struct {
	mu    sync.Mutex
	lines int
}

func (l *captureLogger) Log(log.Level, ...any) error {
	l.mu.Lock()
	l.lines++
	l.mu.Unlock()
	return nil
}

func (l *captureLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lines
}

func TestInvokeRecordsSessionMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	binder, err := binding.NewBinder(txmanager.NewCoordinator(), binding.Config{}, binding.Dependencies{
		Meter: provider.Meter("test"),
	})
	require.NoError(t, err)

	factory := &fakeFactory{}
	executor, err := binding.NewExecutor(factory, binder)
	require.NoError(t, err)

	_, err = executor.Invoke(context.Background(), insertOp("x"))
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := map[string]struct{}{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names[m.Name] = struct{}{}
		}
	}
	assert.Contains(t, names, "db.session.acquired")
	assert.Contains(t, names, "db.session.commits")
	assert.Contains(t, names, "db.session.closes")
	assert.Contains(t, names, "db.session.op_duration")
}

func TestLoggingCanBeDisabled(t *testing.T) {
	logger := &captureLogger{}
	disabled := false
	binder, err := binding.NewBinder(txmanager.NewCoordinator(), binding.Config{LoggingEnabled: &disabled}, binding.Dependencies{Logger: logger})
	require.NoError(t, err)

	factory := &fakeFactory{}
	executor, err := binding.NewExecutor(factory, binder)
	require.NoError(t, err)

	_, err = executor.Invoke(context.Background(), insertOp("x"))
	require.NoError(t, err)
	assert.Zero(t, logger.count())
}

func TestLoggingEnabledByDefault(t *testing.T) {
	logger := &captureLogger{}
	binder, err := binding.NewBinder(txmanager.NewCoordinator(), binding.Config{}, binding.Dependencies{Logger: logger})
	require.NoError(t, err)

	factory := &fakeFactory{}
	executor, err := binding.NewExecutor(factory, binder)
	require.NoError(t, err)

	_, err = executor.Invoke(context.Background(), insertOp("x"))
	require.NoError(t, err)
	assert.Positive(t, logger.count())
}

func TestMetricsCanBeDisabled(t *testing.T) {
	disabled := false
	binder, err := binding.NewBinder(txmanager.NewCoordinator(), binding.Config{MetricsEnabled: &disabled}, binding.Dependencies{})
	require.NoError(t, err)

	factory := &fakeFactory{}
	executor, err := binding.NewExecutor(factory, binder)
	require.NoError(t, err)

	_, err = executor.Invoke(context.Background(), insertOp("x"))
	require.NoError(t, err)
}
