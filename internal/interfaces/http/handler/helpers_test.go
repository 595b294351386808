package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/interfaces/http/dto"
	"github.com/schoolledger/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
)

var (
	testSchoolID = uuid.MustParse("8d0b7c52-3f4e-4a36-9d51-2f6f1b2f0a11")
	testUserID   = uuid.MustParse("2b1f5a7e-6c3d-4e8f-9a0b-1c2d3e4f5a6b")
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// newTestEngine mounts routes behind the same scope middleware the server uses
func newTestEngine(register func(api *gin.RouterGroup)) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	api := engine.Group("/api/v1", middleware.SchoolScope())
	register(api)
	return engine
}

// performRequest sends a JSON request scoped to testSchoolID. A string body is sent verbatim.
func performRequest(t *testing.T, engine *gin.Engine, method, path string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderSchoolID, testSchoolID.String())
	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func asUser(id uuid.UUID) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set(middleware.HeaderActorID, id.String())
	}
}

func withoutSchool(r *http.Request) {
	r.Header.Del(middleware.HeaderSchoolID)
}

// testResponse keeps data raw so each test decodes into its own type
type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var resp testResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func decodeData[T any](t *testing.T, resp testResponse) T {
	t.Helper()
	var data T
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data
}
