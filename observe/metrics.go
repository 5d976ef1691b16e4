// Package observe records service metrics through the OpenTelemetry API and
// exposes them for Prometheus scraping.
package observe

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/nijaru/yt-digest/digest"
)

const meterName = "github.com/nijaru/yt-digest"

// Metrics holds the instruments. It satisfies the observer interfaces of the
// transcript chain, the digest processor and the HTTP middleware.
type Metrics struct {
	SourceAttempts      metric.Int64Counter
	ChunkCalls          metric.Int64Counter
	DigestDuration      metric.Float64Histogram
	HTTPRequestDuration metric.Float64Histogram
	CreditsDeducted     metric.Int64Counter
}

// Digests take minutes when chunked, so the buckets reach far.
var digestBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

var httpBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SourceAttempts, err = m.Int64Counter("ytdigest.transcript.source_attempts",
		metric.WithDescription("Transcript source attempts by source and status."),
	); err != nil {
		return nil, err
	}
	if met.ChunkCalls, err = m.Int64Counter("ytdigest.digest.chunk_calls",
		metric.WithDescription("LLM calls for transcript chunks by mode and status."),
	); err != nil {
		return nil, err
	}
	if met.DigestDuration, err = m.Float64Histogram("ytdigest.digest.duration",
		metric.WithDescription("Time to produce a digest."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(digestBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("ytdigest.http.request.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(httpBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CreditsDeducted, err = m.Int64Counter("ytdigest.credits.deducted",
		metric.WithDescription("Credits deducted after successful operations."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) SourceAttempt(ctx context.Context, source string, err error) {
	m.SourceAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status(err)),
	))
}

func (m *Metrics) ChunkProcessed(ctx context.Context, mode digest.Mode, err error) {
	m.ChunkCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode.String()),
		attribute.String("status", status(err)),
	))
}

func (m *Metrics) DigestCompleted(ctx context.Context, mode digest.Mode, route digest.Route, elapsed time.Duration, err error) {
	m.DigestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("mode", mode.String()),
		attribute.String("route", string(route)),
		attribute.String("status", status(err)),
	))
}

func (m *Metrics) RequestCompleted(ctx context.Context, method, route string, code int, elapsed time.Duration) {
	m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(code)),
	))
}

func (m *Metrics) CreditDeducted(ctx context.Context) {
	m.CreditsDeducted.Add(ctx, 1)
}
