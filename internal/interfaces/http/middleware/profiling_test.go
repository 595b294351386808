package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLabels(c *gin.Context) map[string]string {
	out := map[string]string{}
	pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
		out[key] = value
		return true
	})
	return out
}

func TestProfilingWithConfig_Disabled(t *testing.T) {
	var labels map[string]string
	router := gin.New()
	router.Use(ProfilingWithConfig(ProfilingConfig{Enabled: false}))
	router.GET("/api/v1/fee-records/:id", func(c *gin.Context) {
		labels = captureLabels(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/fee-records/1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, labels)
}

func TestProfiling_LabelsSchoolRoute(t *testing.T) {
	var labels map[string]string
	router := gin.New()
	api := router.Group("/api/v1", SchoolScope(), Profiling())
	api.POST("/fee-records/:id/fines", func(c *gin.Context) {
		labels = captureLabels(c)
		c.Status(http.StatusOK)
	})

	school := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fee-records/"+uuid.NewString()+"/fines", nil)
	req.Header.Set(HeaderSchoolID, school.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, map[string]string{
		"controller": "fee-records",
		"route":      "/api/v1/fee-records/:id/fines",
		"method":     http.MethodPost,
		"school_id":  school.String(),
	}, labels)
}

func TestProfiling_SkipsHealth(t *testing.T) {
	var labels map[string]string
	router := gin.New()
	router.Use(Profiling())
	router.GET("/health", func(c *gin.Context) {
		labels = captureLabels(c)
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Empty(t, labels)
}

func TestExtractControllerFromRoute(t *testing.T) {
	tests := map[string]string{
		"":                              "",
		"/api/v1/payments":              "payments",
		"/api/v1/fee-records/:id/fines": "fee-records",
		"/api/v2/promotions/bulk":       "promotions",
		"/api/v1/:school/balances":      "balances",
		"/health":                       "health",
		"/swagger/*any":                 "swagger",
	}
	for route, want := range tests {
		assert.Equal(t, want, extractControllerFromRoute(route), route)
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("V12"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("vendors"))
	assert.False(t, isVersionSegment("1"))
}
