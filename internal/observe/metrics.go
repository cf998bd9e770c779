// Package observe wires up OpenTelemetry metrics with a Prometheus exporter
// so session behavior can be inspected at the local metrics endpoint.
package observe

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the session counters.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry

	FragmentsCommitted metric.Int64Counter
	SubmissionsFired   metric.Int64Counter
	ChatFailures       metric.Int64Counter
	CaptureStarts      metric.Int64Counter
	RevealsStarted     metric.Int64Counter
}

// NewMetrics builds a Prometheus-backed meter provider and the session
// counters.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("observe: create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("interview-assistant")

	m := &Metrics{provider: provider, registry: registry}

	if m.FragmentsCommitted, err = meter.Int64Counter("transcript_fragments_committed_total",
		metric.WithDescription("Final transcript fragments appended to the buffer")); err != nil {
		return nil, fmt.Errorf("observe: create counter: %w", err)
	}
	if m.SubmissionsFired, err = meter.Int64Counter("chat_submissions_total",
		metric.WithDescription("Chat requests completed successfully")); err != nil {
		return nil, fmt.Errorf("observe: create counter: %w", err)
	}
	if m.ChatFailures, err = meter.Int64Counter("chat_failures_total",
		metric.WithDescription("Chat requests that returned an error")); err != nil {
		return nil, fmt.Errorf("observe: create counter: %w", err)
	}
	if m.CaptureStarts, err = meter.Int64Counter("capture_sessions_total",
		metric.WithDescription("Audio capture sessions started")); err != nil {
		return nil, fmt.Errorf("observe: create counter: %w", err)
	}
	if m.RevealsStarted, err = meter.Int64Counter("chat_reveals_total",
		metric.WithDescription("Knowledge-base chat replies revealed")); err != nil {
		return nil, fmt.Errorf("observe: create counter: %w", err)
	}

	return m, nil
}

// Handler returns the HTTP handler serving the metrics in Prometheus format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if err := m.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("observe: shutdown meter provider: %w", err)
	}
	return nil
}
