// Package observability exports build metrics in the Prometheus text format
// for node_exporter's textfile collector.
package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// TextfileExporter collects OTel instruments into a private Prometheus
// registry that can be written out as a .prom file. Each exporter owns an
// independent registry to avoid collector conflicts.
type TextfileExporter struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider
}

// NewTextfileExporter creates an exporter with an empty registry.
func NewTextfileExporter() (*TextfileExporter, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &TextfileExporter{
		registry: registry,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
	}, nil
}

// Meter returns a meter whose instruments end up in the textfile.
func (te *TextfileExporter) Meter(name string) metric.Meter {
	return te.provider.Meter(name)
}

// Gatherer exposes the underlying registry.
func (te *TextfileExporter) Gatherer() prometheus.Gatherer {
	return te.registry
}

// WriteFile writes the current metric values to path, atomically replacing
// any previous file.
func (te *TextfileExporter) WriteFile(path string) error {
	err := prometheus.WriteToTextfile(path, te.registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}

// Shutdown releases the meter provider.
func (te *TextfileExporter) Shutdown(ctx context.Context) error {
	return te.provider.Shutdown(ctx)
}
