package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/schoolledger/backend/internal/infrastructure/logger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorCodeKey is the gin key handlers set to the error code they responded with.
const ErrorCodeKey = logger.GinErrorCodeKey

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// TracerProvider defaults to the global provider when nil.
	TracerProvider trace.TracerProvider
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "school-ledger",
		Enabled:     true,
	}
}

// Tracing returns OpenTelemetry tracing middleware with default configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig wraps otelgin. Spans are named "METHOD /route/:pattern".
// Pair it with SpanErrorMarker, which runs inside the span.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	var opts []otelgin.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanErrorMarker tags the request span with request_id and, once the
// handler returns, marks error responses. The ledger error code is attached
// when the handler recorded one under ErrorCodeKey.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if requestID := getRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Next()

		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}
		span.SetStatus(codes.Error, statusDescription(statusCode))
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
		if code := c.GetString(ErrorCodeKey); code != "" {
			span.SetAttributes(attribute.String("ledger.error_code", code))
		}
	}
}

func statusDescription(statusCode int) string {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return "Internal Server Error"
	case statusCode == http.StatusNotFound:
		return "Not Found"
	case statusCode == http.StatusConflict:
		return "Conflict"
	case statusCode == http.StatusUnprocessableEntity:
		return "Ledger Rule Violation"
	case statusCode == http.StatusTooManyRequests:
		return "Rate Limited"
	default:
		return "Client Error"
	}
}
