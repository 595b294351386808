package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedRouter(t *testing.T, handler gin.HandlerFunc) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	router := gin.New()
	router.Use(
		RequestID(),
		TracingWithConfig(TracingConfig{ServiceName: "test-service", Enabled: true, TracerProvider: tp}),
		SpanErrorMarker(),
	)
	api := router.Group("/api/v1", SchoolScope())
	api.GET("/fees/:id", handler)
	return router, sr
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracing_SpanCarriesRequestAndSchool(t *testing.T) {
	router, sr := newTracedRouter(t, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	school := uuid.New()
	clerk := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/fees/"+uuid.NewString(), nil)
	req.Header.Set(HeaderRequestID, "req-trace-1")
	req.Header.Set(HeaderSchoolID, school.String())
	req.Header.Set(HeaderActorID, clerk.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /api/v1/fees/:id", span.Name())

	attrs := spanAttrs(span)
	assert.Equal(t, "req-trace-1", attrs["request_id"].AsString())
	assert.Equal(t, school.String(), attrs["school_id"].AsString())
	assert.Equal(t, "user:"+clerk.String(), attrs["actor"].AsString())
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		errorCode   string
		description string
	}{
		{name: "rule violation", status: http.StatusUnprocessableEntity, errorCode: "OVERPAYMENT_REJECTED", description: "Ledger Rule Violation"},
		{name: "not found", status: http.StatusNotFound, errorCode: "NOT_FOUND", description: "Not Found"},
		{name: "duplicate", status: http.StatusConflict, errorCode: "DUPLICATE_RECEIPT", description: "Conflict"},
		{name: "bad request", status: http.StatusBadRequest, description: "Client Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, sr := newTracedRouter(t, func(c *gin.Context) {
				if tt.errorCode != "" {
					c.Set(ErrorCodeKey, tt.errorCode)
				}
				c.Status(tt.status)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/fees/x", nil)
			req.Header.Set(HeaderSchoolID, uuid.NewString())
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			require.Equal(t, tt.status, w.Code)

			spans := sr.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, codes.Error, spans[0].Status().Code)
			assert.Equal(t, tt.description, spans[0].Status().Description)

			attrs := spanAttrs(spans[0])
			assert.Equal(t, int64(tt.status), attrs["http.status_code"].AsInt64())
			if tt.errorCode != "" {
				assert.Equal(t, tt.errorCode, attrs["ledger.error_code"].AsString())
			}
		})
	}
}

func TestSpanErrorMarker_ServerError(t *testing.T) {
	router, sr := newTracedRouter(t, func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fees/x", nil)
	req.Header.Set(HeaderSchoolID, uuid.NewString())
	router.ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestSpanErrorMarker_NoSpan(t *testing.T) {
	router := gin.New()
	router.Use(SpanErrorMarker())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
