package instrumentation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrOperation = "operation"
	attrResult    = "result"
)

// Metrics records the counters and histograms of one tool run. The zero
// value is a no-op recorder, used when instrumentation is disabled.
type Metrics struct {
	eventsTotal    metric.Int64Counter
	runDuration    metric.Float64Histogram
	downloadsTotal metric.Int64Counter
}

// NewMetrics creates a Metrics instance on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error
	m.eventsTotal, err = meter.Int64Counter(
		"pimsync_events_total",
		metric.WithDescription("Calendar events written, by operation"),
	)
	if err != nil {
		return nil, err
	}

	m.runDuration, err = meter.Float64Histogram(
		"pimsync_run_duration_seconds",
		metric.WithDescription("Duration of one sync run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.downloadsTotal, err = meter.Int64Counter(
		"pimsync_downloads_total",
		metric.WithDescription("Videos downloaded from the watched playlist"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordEvents counts applied calendar writes for one operation
// (create, update or delete). Implements the syncer Recorder.
func (m *Metrics) RecordEvents(ctx context.Context, operation string, count int) {
	if m == nil || m.eventsTotal == nil {
		return
	}
	m.eventsTotal.Add(ctx, int64(count),
		metric.WithAttributes(attribute.String(attrOperation, operation)))
}

// RecordRunDuration records how long a sync run took and whether it
// succeeded. Implements the syncer Recorder.
func (m *Metrics) RecordRunDuration(ctx context.Context, d time.Duration, success bool) {
	if m == nil || m.runDuration == nil {
		return
	}
	result := "success"
	if !success {
		result = "error"
	}
	m.runDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordDownload counts one downloaded video.
func (m *Metrics) RecordDownload(ctx context.Context) {
	if m == nil || m.downloadsTotal == nil {
		return
	}
	m.downloadsTotal.Add(ctx, 1)
}
