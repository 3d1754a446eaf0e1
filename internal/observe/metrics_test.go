package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"sonaq.scorer.duration", m.ScorerDuration},
		{"sonaq.decode.step.duration", m.StepDuration},
		{"sonaq.session.duration", m.SessionDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.042)
	}

	rm := collect(t, reader)
	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", tc.name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
		})
	}
}

func TestRecordSessionEnd(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 1)
	m.RecordSessionEnd(ctx, "completed", 1.5)

	rm := collect(t, reader)

	sessions := findMetric(rm, "sonaq.sessions")
	if sessions == nil {
		t.Fatal("sonaq.sessions not found")
	}
	sum, ok := sessions.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("sonaq.sessions has no data points")
	}
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("sessions count = %d, want 1", sum.DataPoints[0].Value)
	}

	active := findMetric(rm, "sonaq.active_sessions")
	if active == nil {
		t.Fatal("sonaq.active_sessions not found")
	}
	gauge, ok := active.Data.(metricdata.Sum[int64])
	if !ok || len(gauge.DataPoints) == 0 {
		t.Fatal("sonaq.active_sessions has no data points")
	}
	if gauge.DataPoints[0].Value != 0 {
		t.Errorf("active sessions = %d, want 0 after session end", gauge.DataPoints[0].Value)
	}
}

func TestRecordProtocolError(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordProtocolError(context.Background(), "audio_before_start")

	rm := collect(t, reader)
	met := findMetric(rm, "sonaq.protocol.errors")
	if met == nil {
		t.Fatal("sonaq.protocol.errors not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 || sum.DataPoints[0].Value != 1 {
		t.Fatalf("protocol errors not recorded: %+v", met.Data)
	}
}
