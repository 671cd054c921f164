package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	p, err := NewProvider("pimsync", "test", false)
	require.NoError(t, err)

	// Recording on a disabled provider must not panic.
	ctx := context.Background()
	p.Metrics().RecordEvents(ctx, "create", 3)
	p.Metrics().RecordRunDuration(ctx, time.Second, true)
	p.Metrics().RecordDownload(ctx)

	assert.NoError(t, p.Shutdown(ctx))
}

func TestZeroValueMetricsIsNoop(t *testing.T) {
	var m Metrics
	ctx := context.Background()
	m.RecordEvents(ctx, "delete", 1)
	m.RecordRunDuration(ctx, time.Second, false)
	m.RecordDownload(ctx)
}

func TestMetricsRecord(t *testing.T) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter(meterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordEvents(ctx, "create", 2)
	m.RecordEvents(ctx, "create", 1)
	m.RecordEvents(ctx, "delete", 1)
	m.RecordRunDuration(ctx, 1500*time.Millisecond, true)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := make(map[string]metricdata.Metrics)
	for _, md := range rm.ScopeMetrics[0].Metrics {
		byName[md.Name] = md
	}

	events, ok := byName["pimsync_events_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	totals := make(map[string]int64)
	for _, dp := range events.DataPoints {
		op, _ := dp.Attributes.Value(attribute.Key(attrOperation))
		totals[op.AsString()] = dp.Value
	}
	assert.Equal(t, int64(3), totals["create"])
	assert.Equal(t, int64(1), totals["delete"])

	duration, ok := byName["pimsync_run_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, duration.DataPoints, 1)
	assert.Equal(t, uint64(1), duration.DataPoints[0].Count)
	assert.InDelta(t, 1.5, duration.DataPoints[0].Sum, 0.001)
}
