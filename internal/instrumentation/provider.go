// Package instrumentation provides optional OpenTelemetry metrics for the
// pimsync tools. The tools are short-lived processes, so there is nothing
// for a pull-based exporter to scrape; when enabled, metrics are collected
// in memory and emitted to stdout when the run shuts the provider down.
package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const meterName = "github.com/sboros/pimsync"

// Provider owns the meter provider for one tool run.
type Provider struct {
	meterProvider *metric.MeterProvider
	metrics       *Metrics
	enabled       bool
}

// NewProvider creates a metrics provider. When disabled it returns a
// provider whose metrics recorder is a no-op, so callers never branch.
func NewProvider(serviceName, serviceVersion string, enabled bool) (*Provider, error) {
	if !enabled {
		return &Provider{metrics: &Metrics{}}, nil
	}

	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter)),
	)

	metrics, err := NewMetrics(meterProvider.Meter(meterName))
	if err != nil {
		return nil, err
	}

	return &Provider{
		meterProvider: meterProvider,
		metrics:       metrics,
		enabled:       true,
	}, nil
}

// Metrics returns the recorder for this run.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Shutdown flushes collected metrics to stdout and releases the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
