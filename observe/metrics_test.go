package observe

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/nijaru/yt-digest/digest"
)

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

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

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

func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %s not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s is %T, want Sum[int64]", name, met.Data)
	}
	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestSourceAttempts(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.SourceAttempt(ctx, "captions", errors.New("no captions"))
	m.SourceAttempt(ctx, "native", nil)
	m.SourceAttempt(ctx, "native", nil)

	rm := collect(t, reader)
	if got := counterValue(t, rm, "ytdigest.transcript.source_attempts",
		attribute.String("source", "native"), attribute.String("status", "ok")); got != 2 {
		t.Errorf("native ok = %d, want 2", got)
	}
	if got := counterValue(t, rm, "ytdigest.transcript.source_attempts",
		attribute.String("source", "captions"), attribute.String("status", "error")); got != 1 {
		t.Errorf("captions error = %d, want 1", got)
	}
}

func TestDigestMetrics(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ChunkProcessed(ctx, digest.ModeArticle, nil)
	m.ChunkProcessed(ctx, digest.ModeArticle, errors.New("boom"))
	m.DigestCompleted(ctx, digest.ModeArticle, digest.RouteChunked, 90*time.Second, nil)
	m.CreditDeducted(ctx)

	rm := collect(t, reader)
	if got := counterValue(t, rm, "ytdigest.digest.chunk_calls",
		attribute.String("mode", "article"), attribute.String("status", "error")); got != 1 {
		t.Errorf("chunk errors = %d, want 1", got)
	}
	if got := counterValue(t, rm, "ytdigest.credits.deducted"); got != 1 {
		t.Errorf("credits deducted = %d, want 1", got)
	}

	met := findMetric(rm, "ytdigest.digest.duration")
	if met == nil {
		t.Fatal("digest duration not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 {
		t.Fatalf("unexpected histogram data %+v", met.Data)
	}
	if hist.DataPoints[0].Sum != 90 {
		t.Errorf("duration sum = %v, want 90", hist.DataPoints[0].Sum)
	}
}

func TestRequestCompleted(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RequestCompleted(context.Background(), http.MethodPost, "/api/v1/digest", http.StatusOK, 250*time.Millisecond)

	rm := collect(t, reader)
	met := findMetric(rm, "ytdigest.http.request.duration")
	if met == nil {
		t.Fatal("http duration not found")
	}
	hist := met.Data.(metricdata.Histogram[float64])
	if hist.DataPoints[0].Count != 1 {
		t.Errorf("count = %d, want 1", hist.DataPoints[0].Count)
	}
}
