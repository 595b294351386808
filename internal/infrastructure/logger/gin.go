package logger

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Gin context keys shared with the HTTP middleware and handlers.
const (
	GinLoggerKey    = "logger"
	GinRequestIDKey = "request_id"
	GinSchoolIDKey  = "school_id"
	GinActorKey     = "actor"
	GinErrorCodeKey = "error_code"
)

// ginOptions configures GinMiddleware
type ginOptions struct {
	skipPaths map[string]struct{}
}

// GinOption configures GinMiddleware
type GinOption func(*ginOptions)

// WithSkipPaths drops access log entries for successful requests to the given
// routes, e.g. health checks and metric scrapes. Failures are still logged.
func WithSkipPaths(paths ...string) GinOption {
	return func(o *ginOptions) {
		for _, p := range paths {
			o.skipPaths[p] = struct{}{}
		}
	}
}

// GinMiddleware logs one entry per request. The entry carries the school and
// actor resolved by the school scope middleware and the error code the handler
// answered with.
func GinMiddleware(logger *zap.Logger, opts ...GinOption) gin.HandlerFunc {
	o := &ginOptions{skipPaths: make(map[string]struct{})}
	for _, opt := range opts {
		opt(o)
	}

	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetString(GinRequestIDKey)

		reqLogger := logger.With(
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Set(GinLoggerKey, reqLogger)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if _, skip := o.skipPaths[route]; skip && status < http.StatusBadRequest {
			return
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if route != "" {
			fields = append(fields, zap.String("route", route))
		}
		if query := c.Request.URL.RawQuery; query != "" {
			fields = append(fields, zap.String("query", query))
		}
		fields = append(fields, scopeFields(c)...)
		if code := c.GetString(GinErrorCodeKey); code != "" {
			fields = append(fields, zap.String("error_code", code))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		reqLogger.Log(levelForStatus(status), "HTTP request", fields...)
	}
}

// Recovery turns a panic into a 500 response and logs it with the request's
// school and actor.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				fields := []zap.Field{
					zap.String("request_id", c.GetString(GinRequestIDKey)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
				}
				fields = append(fields, scopeFields(c)...)
				fields = append(fields, zap.Any("error", err), zap.Stack("stacktrace"))
				logger.Error("Panic recovered", fields...)

				c.Set(GinErrorCodeKey, "INTERNAL_ERROR")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":       "INTERNAL_ERROR",
						"message":    "Internal server error",
						"request_id": c.GetString(GinRequestIDKey),
					},
				})
			}
		}()
		c.Next()
	}
}

// GetGinLogger retrieves the request-scoped logger from gin context
func GetGinLogger(c *gin.Context) *zap.Logger {
	if logger, exists := c.Get(GinLoggerKey); exists {
		if l, ok := logger.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}

// scopeFields reads the school and actor the scope middleware stored. Both are
// stored as typed values, so anything printable is accepted.
func scopeFields(c *gin.Context) []zap.Field {
	var fields []zap.Field
	if v, ok := c.Get(GinSchoolIDKey); ok {
		fields = append(fields, zap.String("school_id", fmt.Sprint(v)))
	}
	if v, ok := c.Get(GinActorKey); ok {
		fields = append(fields, zap.String("actor", fmt.Sprint(v)))
	}
	return fields
}

func levelForStatus(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
