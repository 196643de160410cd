package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	HTTPRequests   metric.Int64Counter
	HTTPDuration   metric.Float64Histogram
	CacheHits      metric.Int64Counter
	CacheMisses    metric.Int64Counter
	RenderFailures metric.Int64Counter
	RenderDuration metric.Float64Histogram
	PostsCreated   metric.Int64Counter
	Moderations    metric.Int64Counter
}

func Setup(serviceName string) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.HTTPRequests, err = meter.Int64Counter(
		"plume_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"plume_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CacheHits, err = meter.Int64Counter(
		"plume_cache_hits_total",
		metric.WithDescription("Total number of cache hits"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CacheMisses, err = meter.Int64Counter(
		"plume_cache_misses_total",
		metric.WithDescription("Total number of cache misses"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RenderFailures, err = meter.Int64Counter(
		"plume_render_failures_total",
		metric.WithDescription("Renders that fell back to the safe fragment"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RenderDuration, err = meter.Float64Histogram(
		"plume_render_duration_seconds",
		metric.WithDescription("Headless render duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.PostsCreated, err = meter.Int64Counter(
		"plume_posts_created_total",
		metric.WithDescription("Posts accepted for review"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.Moderations, err = meter.Int64Counter(
		"plume_moderations_total",
		metric.WithDescription("Moderator transitions by action"),
	)
	if err != nil {
		return nil, nil, err
	}

	handler := promhttp.Handler()
	return m, handler, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)
	m.HTTPRequests.Add(ctx, 1, attrs)
	m.HTTPDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *Metrics) RecordCacheHit(ctx context.Context, key string) {
	if m == nil {
		return
	}
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

func (m *Metrics) RecordCacheMiss(ctx context.Context, key string) {
	if m == nil {
		return
	}
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

func (m *Metrics) RecordRenderFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.RenderFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) RecordRender(ctx context.Context, duration time.Duration) {
	if m == nil {
		return
	}
	m.RenderDuration.Record(ctx, duration.Seconds())
}

func (m *Metrics) RecordPostCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.PostsCreated.Add(ctx, 1)
}

func (m *Metrics) RecordModeration(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.Moderations.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}
