package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/schoolledger/backend/internal/interfaces/http/dto"
)

// DefaultBodyLimit covers the largest bulk request (a carry-forward or
// promotion batch) with room to spare.
const DefaultBodyLimit int64 = 2 << 20

// BodyLimit rejects requests whose declared length exceeds maxBytes and caps
// streamed bodies at the same size.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				getRequestID(c),
			))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
