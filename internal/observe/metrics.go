// Package observe provides application-wide observability primitives for
// screeningd: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all screeningd metrics.
const meterName = "github.com/MrWong99/screeningd"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per outbound dependency ---

	// EmbeddingDuration tracks embedding-model request latency.
	EmbeddingDuration metric.Float64Histogram

	// ChatDuration tracks chat-model completion latency (role-question
	// answers generated by the dialog engine).
	ChatDuration metric.Float64Histogram

	// UpstreamDuration tracks bios/opportunities lookup latency.
	UpstreamDuration metric.Float64Histogram

	// --- Counters ---

	// ApplicationsCreated counts successful CreateApplication calls.
	ApplicationsCreated metric.Int64Counter

	// CallsFinished counts calls that reached EndCall, by outcome.
	CallsFinished metric.Int64Counter

	// AnalysesCompleted counts analyses that finished, by outcome.
	AnalysesCompleted metric.Int64Counter

	// --- Error counters ---

	// UpstreamErrors counts upstream lookup failures by provider
	// ("bios" or "opportunities").
	UpstreamErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveCalls tracks the number of interview calls currently in progress.
	ActiveCalls metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for the service's dependency latencies (model inference, upstream HTTP).
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.EmbeddingDuration, err = m.Float64Histogram("screeningd.embedding.duration",
		metric.WithDescription("Latency of embedding-model requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ChatDuration, err = m.Float64Histogram("screeningd.chat.duration",
		metric.WithDescription("Latency of chat-model completions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UpstreamDuration, err = m.Float64Histogram("screeningd.upstream.duration",
		metric.WithDescription("Latency of bios/opportunities upstream lookups."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ApplicationsCreated, err = m.Int64Counter("screeningd.applications.created",
		metric.WithDescription("Total applications successfully created."),
	); err != nil {
		return nil, err
	}
	if met.CallsFinished, err = m.Int64Counter("screeningd.calls.finished",
		metric.WithDescription("Total interview calls that finished, by outcome."),
	); err != nil {
		return nil, err
	}
	if met.AnalysesCompleted, err = m.Int64Counter("screeningd.analyses.completed",
		metric.WithDescription("Total fit-score analyses that finished, by outcome."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.UpstreamErrors, err = m.Int64Counter("screeningd.upstream.errors",
		metric.WithDescription("Total upstream lookup failures by provider."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveCalls, err = m.Int64UpDownCounter("screeningd.active_calls",
		metric.WithDescription("Number of interview calls currently in progress."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("screeningd.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordApplicationCreated increments ApplicationsCreated.
func (m *Metrics) RecordApplicationCreated(ctx context.Context) {
	m.ApplicationsCreated.Add(ctx, 1)
}

// RecordCallFinished increments CallsFinished with the given outcome
// ("completed" or "failed").
func (m *Metrics) RecordCallFinished(ctx context.Context, outcome string) {
	m.CallsFinished.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordAnalysisCompleted increments AnalysesCompleted with the given
// outcome ("completed" or "failed").
func (m *Metrics) RecordAnalysisCompleted(ctx context.Context, outcome string) {
	m.AnalysesCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordUpstreamError increments UpstreamErrors for the given provider
// ("bios" or "opportunities").
func (m *Metrics) RecordUpstreamError(ctx context.Context, provider string) {
	m.UpstreamErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}
