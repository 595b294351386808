package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/schoolledger/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// unmatchedRoute labels requests that hit no route, keeping label cardinality bounded.
const unmatchedRoute = "unmatched"

// HTTPRequestRecorder receives one observation per served request.
// telemetry.LedgerMetrics implements it for the Prometheus registry.
type HTTPRequestRecorder interface {
	ObserveHTTPRequest(method, route string, status int, elapsed time.Duration)
}

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	// MeterProvider feeds the OTLP pipeline; nil or disabled skips it.
	MeterProvider *telemetry.MeterProvider
	// Recorder feeds the /metrics scrape endpoint; nil skips it.
	Recorder HTTPRequestRecorder
	Enabled  bool
}

type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	responseSize    *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.NewCounter(meter,
		"http_server_request_total", "Total number of HTTP requests", "{request}")
	if err != nil {
		return nil, err
	}

	requestDuration, err := telemetry.NewHistogram(meter,
		"http_server_request_duration_seconds", "HTTP request latency distribution in seconds", "s",
		telemetry.HTTPDurationBuckets)
	if err != nil {
		return nil, err
	}

	responseSize, err := telemetry.NewHistogram(meter,
		"http_server_response_size_bytes", "HTTP response body size distribution in bytes", "By",
		[]float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000})
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		responseSize:    responseSize,
		activeRequests:  activeRequests,
	}, nil
}

// HTTPMetrics returns a middleware that records every request to the OTel
// meter and the Prometheus recorder, whichever are configured.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	var instruments *httpMetrics
	if cfg.MeterProvider != nil && cfg.MeterProvider.IsEnabled() {
		// A failed instrument setup leaves the Prometheus side running.
		instruments, _ = newHTTPMetrics(cfg.MeterProvider.Meter("http.server"))
	}
	return httpMetricsMiddleware(instruments, cfg.Recorder)
}

// HTTPMetricsWithMeter builds the middleware on an existing meter.
func HTTPMetricsWithMeter(meter metric.Meter, recorder HTTPRequestRecorder) gin.HandlerFunc {
	instruments, err := newHTTPMetrics(meter)
	if err != nil {
		instruments = nil
	}
	return httpMetricsMiddleware(instruments, recorder)
}

func httpMetricsMiddleware(instruments *httpMetrics, recorder HTTPRequestRecorder) gin.HandlerFunc {
	if instruments == nil && recorder == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		if instruments != nil {
			instruments.activeRequests.Add(ctx, 1)
		}

		c.Next()

		elapsed := time.Since(start)
		route := getRoutePattern(c)
		method := c.Request.Method
		status := c.Writer.Status()

		if instruments != nil {
			instruments.activeRequests.Add(ctx, -1)
			schoolID := ""
			if id, ok := GetSchoolID(c); ok {
				schoolID = id.String()
			}
			recordHTTPMetrics(ctx, instruments, method, route, status, schoolID, elapsed, c.Writer.Size())
		}
		if recorder != nil {
			recorder.ObserveHTTPRequest(method, route, status, elapsed)
		}
	}
}

func recordHTTPMetrics(
	ctx context.Context,
	instruments *httpMetrics,
	method, route string,
	status int,
	schoolID string,
	elapsed time.Duration,
	responseSize int,
) {
	requestAttrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(method),
		telemetry.AttrHTTPRoute.String(route),
		telemetry.AttrHTTPStatusCode.Int(status),
	}
	if schoolID != "" {
		requestAttrs = append(requestAttrs, telemetry.AttrSchoolID.String(schoolID))
	}
	instruments.requestTotal.Inc(ctx, requestAttrs...)

	baseAttrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(method),
		telemetry.AttrHTTPRoute.String(route),
	}
	instruments.requestDuration.RecordDuration(ctx, elapsed, baseAttrs...)
	if responseSize > 0 {
		instruments.responseSize.Record(ctx, float64(responseSize), baseAttrs...)
	}
}

// getRoutePattern returns the matched route pattern, e.g. "/api/v1/fees/:id".
func getRoutePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}
