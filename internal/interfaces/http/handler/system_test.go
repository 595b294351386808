package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping() error { return p.err }

func TestSystemHandler_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := NewSystemHandler(stubPinger{}, "School Ledger API", "1.0.0")
		c, w := newTestContext(http.MethodGet, "/health")

		h.Health(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"healthy"`)
		assert.Contains(t, w.Body.String(), `"database":"ok"`)
	})

	t.Run("database down", func(t *testing.T) {
		h := NewSystemHandler(stubPinger{err: errors.New("connection refused")}, "School Ledger API", "1.0.0")
		c, w := newTestContext(http.MethodGet, "/health")

		h.Health(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"unhealthy"`)
	})
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler(stubPinger{}, "School Ledger API", "1.2.0")
	assert.False(t, h.startTime.IsZero())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/system/info", nil)

	h.GetSystemInfo(c)

	assert.Equal(t, http.StatusOK, w.Code)
	info := decodeData[SystemInfoResponse](t, decodeResponse(t, w))
	assert.Equal(t, "School Ledger API", info.Name)
	assert.Equal(t, "1.2.0", info.Version)
	require.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Uptime)
}
