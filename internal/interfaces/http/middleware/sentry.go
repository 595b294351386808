package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/schoolledger/backend/internal/infrastructure/observability"
)

// ErrorReporter sends server errors and panics to Sentry. Errors attached
// with c.Error are reported as-is; a bare 5xx is reported by status. Panics
// are re-raised for the recovery middleware further out.
func ErrorReporter() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				observability.CaptureErrWithTags(c.Request.Context(), fmt.Errorf("panic: %v", rec), requestTags(c))
				panic(rec)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusInternalServerError {
			return
		}
		tags := requestTags(c)
		if len(c.Errors) == 0 {
			observability.CaptureErrWithTags(c.Request.Context(),
				errors.New(http.StatusText(status)), tags)
			return
		}
		for _, ginErr := range c.Errors {
			observability.CaptureErrWithTags(c.Request.Context(), ginErr.Err, tags)
		}
	}
}

func requestTags(c *gin.Context) map[string]string {
	tags := map[string]string{
		"route":      getRoutePattern(c),
		"method":     c.Request.Method,
		"request_id": getRequestID(c),
		"error_code": c.GetString(ErrorCodeKey),
	}
	if id, ok := GetSchoolID(c); ok {
		tags["school_id"] = id.String()
	}
	return tags
}
