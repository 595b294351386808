package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/schoolledger/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type recordedRequest struct {
	method string
	route  string
	status int
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *fakeRecorder) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, recordedRequest{method: method, route: route, status: status})
}

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return mp, reader
}

func findMetricByName(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestHTTPMetrics_Disabled(t *testing.T) {
	rec := &fakeRecorder{}
	router := gin.New()
	router.Use(HTTPMetrics(HTTPMetricsConfig{Enabled: false, Recorder: rec}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, rec.requests)
}

func TestHTTPMetrics_RecorderOnly(t *testing.T) {
	rec := &fakeRecorder{}
	router := gin.New()
	router.Use(HTTPMetrics(HTTPMetricsConfig{Enabled: true, Recorder: rec}))
	router.GET("/api/v1/fees/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/fees/123", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, rec.requests, 2)
	assert.Equal(t, recordedRequest{method: "GET", route: "/api/v1/fees/:id", status: http.StatusNotFound}, rec.requests[0])
	assert.Equal(t, unmatchedRoute, rec.requests[1].route)
}

func TestHTTPMetricsWithMeter_RequestCounter(t *testing.T) {
	mp, reader := setupTestMeter(t)
	school := uuid.New()

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), nil))
	api := router.Group("/api/v1", SchoolScope())
	api.POST("/payments", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"receipt_number": "RCPT-1"})
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
		req.Header.Set(HeaderSchoolID, school.String())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	total := findMetricByName(t, reader, "http_server_request_total")
	require.NotNil(t, total)
	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	dp := sum.DataPoints[0]
	assert.Equal(t, int64(3), dp.Value)

	route, _ := dp.Attributes.Value(telemetry.AttrHTTPRoute)
	assert.Equal(t, "/api/v1/payments", route.AsString())
	status, _ := dp.Attributes.Value(telemetry.AttrHTTPStatusCode)
	assert.Equal(t, int64(http.StatusCreated), status.AsInt64())
	schoolAttr, ok := dp.Attributes.Value(telemetry.AttrSchoolID)
	require.True(t, ok)
	assert.Equal(t, school.String(), schoolAttr.AsString())
}

func TestHTTPMetricsWithMeter_DurationAndSize(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), nil))
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, strings.Repeat("x", 250))
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	duration := findMetricByName(t, reader, "http_server_request_duration_seconds")
	require.NotNil(t, duration)
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Equal(t, telemetry.HTTPDurationBuckets, hist.DataPoints[0].Bounds)

	size := findMetricByName(t, reader, "http_server_response_size_bytes")
	require.NotNil(t, size)
	sizeHist, ok := size.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, sizeHist.DataPoints, 1)
	assert.Equal(t, float64(250), sizeHist.DataPoints[0].Sum)

	active := findMetricByName(t, reader, "http_server_active_requests")
	require.NotNil(t, active)
	activeSum, ok := active.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, activeSum.DataPoints, 1)
	assert.Equal(t, int64(0), activeSum.DataPoints[0].Value)
}

func TestHTTPMetrics_FeedsPrometheus(t *testing.T) {
	metrics := telemetry.NewLedgerMetrics()

	router := gin.New()
	router.Use(HTTPMetrics(HTTPMetricsConfig{Enabled: true, Recorder: metrics}))
	router.GET("/api/v1/balances", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/balances", nil))

	count, err := testutil.GatherAndCount(metrics.Registry(), "ledger_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetRoutePattern(t *testing.T) {
	router := gin.New()
	var got string
	router.GET("/api/v1/promotions/:id", func(c *gin.Context) {
		got = getRoutePattern(c)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/promotions/abc", nil))

	assert.Equal(t, "/api/v1/promotions/:id", got)
}
