// Package observe provides application-wide observability primitives for
// Sonaq: OpenTelemetry metrics, tracing helpers, and structured logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
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

// meterName is the instrumentation scope name used for all Sonaq metrics.
const meterName = "github.com/sonaq/sonaq"

// Metrics holds all OpenTelemetry metric instruments for the server.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ScorerDuration tracks acoustic scorer latency per chunk.
	ScorerDuration metric.Float64Histogram

	// StepDuration tracks full decode-step latency (frame pull + score +
	// beam advance).
	StepDuration metric.Float64Histogram

	// SessionDuration tracks whole-session wall time from start signal to
	// teardown.
	SessionDuration metric.Float64Histogram

	// Sessions counts sessions by terminal status. Use with attribute:
	//   attribute.String("status", "completed"|"protocol_error"|"scorer_error"|"transport_error")
	Sessions metric.Int64Counter

	// AudioSeconds counts seconds of audio received across all sessions.
	AudioSeconds metric.Float64Counter

	// DecodedFrames counts feature frames consumed by beam search.
	DecodedFrames metric.Int64Counter

	// ProtocolErrors counts inbound protocol violations by kind.
	ProtocolErrors metric.Int64Counter

	// ActiveSessions tracks the number of live decode sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// chunk-level decode latencies.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ScorerDuration, err = m.Float64Histogram("sonaq.scorer.duration",
		metric.WithDescription("Latency of one acoustic scorer call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StepDuration, err = m.Float64Histogram("sonaq.decode.step.duration",
		metric.WithDescription("Latency of one decode step."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionDuration, err = m.Float64Histogram("sonaq.session.duration",
		metric.WithDescription("Session wall time from start signal to teardown."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.Sessions, err = m.Int64Counter("sonaq.sessions",
		metric.WithDescription("Total sessions by terminal status."),
	); err != nil {
		return nil, err
	}
	if met.AudioSeconds, err = m.Float64Counter("sonaq.audio.seconds",
		metric.WithDescription("Seconds of audio received across all sessions."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.DecodedFrames, err = m.Int64Counter("sonaq.decode.frames",
		metric.WithDescription("Feature frames consumed by beam search."),
	); err != nil {
		return nil, err
	}
	if met.ProtocolErrors, err = m.Int64Counter("sonaq.protocol.errors",
		metric.WithDescription("Inbound protocol violations by kind."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("sonaq.active_sessions",
		metric.WithDescription("Number of live decode sessions."),
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

// RecordSessionEnd records the terminal status and duration of one session.
func (m *Metrics) RecordSessionEnd(ctx context.Context, status string, seconds float64) {
	m.Sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.SessionDuration.Record(ctx, seconds)
	m.ActiveSessions.Add(ctx, -1)
}

// RecordProtocolError increments the protocol error counter for one kind of
// violation.
func (m *Metrics) RecordProtocolError(ctx context.Context, kind string) {
	m.ProtocolErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
