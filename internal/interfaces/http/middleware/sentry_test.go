package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/infrastructure/logger"
	"github.com/schoolledger/backend/internal/infrastructure/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentrySink struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (s *sentrySink) beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *sentrySink) all() []*sentry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*sentry.Event(nil), s.events...)
}

func initSentrySink(t *testing.T) *sentrySink {
	t.Helper()
	sink := &sentrySink{}
	flush, err := observability.InitSentry(observability.SentryOptions{
		DSN:        "https://public@sentry.invalid/1",
		SampleRate: 1.0,
		BeforeSend: sink.beforeSend,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		flush()
		sentry.CurrentHub().BindClient(nil)
	})
	return sink
}

func newReportingRouter(handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), logger.Recovery(zap.NewNop()), ErrorReporter())
	api := router.Group("/api/v1", SchoolScope())
	api.POST("/carry-forward/reconcile", handler)
	return router
}

func TestErrorReporter_ReportsAttachedError(t *testing.T) {
	sink := initSentrySink(t)
	router := newReportingRouter(func(c *gin.Context) {
		c.Set(ErrorCodeKey, "INTERNAL_ERROR")
		_ = c.Error(errors.New("balance store unavailable"))
		c.Status(http.StatusInternalServerError)
	})

	school := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/carry-forward/reconcile", nil)
	req.Header.Set(HeaderSchoolID, school.String())
	req.Header.Set(HeaderRequestID, "req-500")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	events := sink.all()
	require.Len(t, events, 1)
	require.NotEmpty(t, events[0].Exception)
	assert.Equal(t, "balance store unavailable", events[0].Exception[0].Value)
	assert.Equal(t, school.String(), events[0].Tags["school_id"])
	assert.Equal(t, "/api/v1/carry-forward/reconcile", events[0].Tags["route"])
	assert.Equal(t, "req-500", events[0].Tags["request_id"])
	assert.Equal(t, "INTERNAL_ERROR", events[0].Tags["error_code"])
}

func TestErrorReporter_IgnoresClientErrors(t *testing.T) {
	sink := initSentrySink(t)
	router := newReportingRouter(func(c *gin.Context) {
		c.Status(http.StatusUnprocessableEntity)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/carry-forward/reconcile", nil)
	req.Header.Set(HeaderSchoolID, uuid.NewString())
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, sink.all())
}

func TestErrorReporter_BareServerError(t *testing.T) {
	sink := initSentrySink(t)
	router := newReportingRouter(func(c *gin.Context) {
		c.Status(http.StatusServiceUnavailable)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/carry-forward/reconcile", nil)
	req.Header.Set(HeaderSchoolID, uuid.NewString())
	router.ServeHTTP(httptest.NewRecorder(), req)

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, "Service Unavailable", events[0].Exception[0].Value)
}

func TestErrorReporter_PanicIsReportedAndRecovered(t *testing.T) {
	sink := initSentrySink(t)
	router := newReportingRouter(func(c *gin.Context) {
		panic("ledger invariant broken")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/carry-forward/reconcile", nil)
	req.Header.Set(HeaderSchoolID, uuid.NewString())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, "panic: ledger invariant broken", events[0].Exception[0].Value)
}
