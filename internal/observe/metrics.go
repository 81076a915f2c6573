// Package observe provides application-wide observability primitives for
// lingualert: OpenTelemetry metrics, distributed tracing, structured logging,
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

// meterName is the instrumentation scope name used for all lingualert metrics.
const meterName = "github.com/MrWong99/lingualert"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// DetectDuration tracks remote language detection latency.
	DetectDuration metric.Float64Histogram

	// TranslateDuration tracks remote translation latency.
	TranslateDuration metric.Float64Histogram

	// STTDuration tracks the time to open a recognition stream.
	STTDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// RecordingDuration tracks the length of captured recordings.
	RecordingDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// DetectionFallbacks counts detections answered by the offline
	// script fallback.
	DetectionFallbacks metric.Int64Counter

	// Translations counts translation outcomes. Use with attribute:
	//   attribute.String("status", ...)
	Translations metric.Int64Counter

	// LocaleRotations counts recognition locale rotations. Use with
	// attributes: attribute.String("reason", ...), attribute.String("to", ...)
	LocaleRotations metric.Int64Counter

	// Recordings counts finished recordings. Use with attribute:
	//   attribute.String("outcome", ...)
	Recordings metric.Int64Counter

	// ReportsCreated counts persisted emergency reports. Use with attribute:
	//   attribute.String("type", ...)
	ReportsCreated metric.Int64Counter

	// EventsPublished counts outbound domain events. Use with attributes:
	//   attribute.String("backend", ...), attribute.String("type", ...), attribute.String("status", ...)
	EventsPublished metric.Int64Counter

	// --- Gauges ---

	// ActiveRecordings tracks recordings currently capturing audio.
	ActiveRecordings metric.Int64UpDownCounter

	// ActiveConnections tracks open recording sockets.
	ActiveConnections metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// remote provider calls.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15,
}

// recordingBuckets covers recordings up to the 60 s capture limit.
var recordingBuckets = []float64{1, 2, 5, 10, 20, 30, 45, 60}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	latency := func(name, desc string) (metric.Float64Histogram, error) {
		return m.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
	}

	// Histograms.
	if met.DetectDuration, err = latency("lingualert.detect.duration", "Latency of remote language detection."); err != nil {
		return nil, err
	}
	if met.TranslateDuration, err = latency("lingualert.translate.duration", "Latency of remote translation."); err != nil {
		return nil, err
	}
	if met.STTDuration, err = latency("lingualert.stt.duration", "Latency of opening a recognition stream."); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = latency("lingualert.tts.duration", "Latency of text-to-speech synthesis."); err != nil {
		return nil, err
	}
	if met.RecordingDuration, err = m.Float64Histogram("lingualert.recording.duration",
		metric.WithDescription("Length of captured recordings."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(recordingBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("lingualert.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("lingualert.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.DetectionFallbacks, err = m.Int64Counter("lingualert.detect.fallbacks",
		metric.WithDescription("Detections answered by the offline script fallback."),
	); err != nil {
		return nil, err
	}
	if met.Translations, err = m.Int64Counter("lingualert.translations",
		metric.WithDescription("Translation outcomes by status."),
	); err != nil {
		return nil, err
	}
	if met.LocaleRotations, err = m.Int64Counter("lingualert.recognition.rotations",
		metric.WithDescription("Recognition locale rotations by reason."),
	); err != nil {
		return nil, err
	}
	if met.Recordings, err = m.Int64Counter("lingualert.recordings",
		metric.WithDescription("Finished recordings by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ReportsCreated, err = m.Int64Counter("lingualert.reports.created",
		metric.WithDescription("Persisted emergency reports by type."),
	); err != nil {
		return nil, err
	}
	if met.EventsPublished, err = m.Int64Counter("lingualert.events.published",
		metric.WithDescription("Outbound domain events by backend, type and status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveRecordings, err = m.Int64UpDownCounter("lingualert.active_recordings",
		metric.WithDescription("Number of recordings currently capturing audio."),
	); err != nil {
		return nil, err
	}
	if met.ActiveConnections, err = m.Int64UpDownCounter("lingualert.active_connections",
		metric.WithDescription("Number of open recording sockets."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("lingualert.http.request.duration",
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

// RecordProviderRequest records a provider request counter increment with
// the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordTranslation records one translation outcome.
func (m *Metrics) RecordTranslation(ctx context.Context, status string) {
	m.Translations.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordRotation records one recognition locale rotation.
func (m *Metrics) RecordRotation(ctx context.Context, reason, to string) {
	m.LocaleRotations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("reason", reason),
			attribute.String("to", to),
		),
	)
}

// RecordRecording records a finished recording and its length in seconds.
func (m *Metrics) RecordRecording(ctx context.Context, outcome string, seconds float64) {
	m.Recordings.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if seconds > 0 {
		m.RecordingDuration.Record(ctx, seconds)
	}
}

// RecordReport records a persisted report.
func (m *Metrics) RecordReport(ctx context.Context, emergencyType string) {
	m.ReportsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("type", emergencyType)))
}

// RecordEvent records an event publish attempt.
func (m *Metrics) RecordEvent(ctx context.Context, backend, eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EventsPublished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("type", eventType),
		attribute.String("status", status),
	))
}
