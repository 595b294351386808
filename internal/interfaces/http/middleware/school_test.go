package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/infrastructure/logger"
	"github.com/schoolledger/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type scopeResult struct {
	SchoolID uuid.UUID
	Actor    shared.ActorRef
	HasID    bool
}

func newScopeRouter(t *testing.T, base *zap.Logger) (*gin.Engine, *scopeResult) {
	t.Helper()
	got := &scopeResult{}
	router := gin.New()
	router.Use(RequestID(), logger.GinMiddleware(base), SchoolScope())
	router.GET("/fees", func(c *gin.Context) {
		got.SchoolID, got.HasID = GetSchoolID(c)
		got.Actor = GetActor(c)
		logger.FromContext(c.Request.Context()).Info("handled")
		c.Status(http.StatusOK)
	})
	return router, got
}

func TestSchoolScope_RequiresSchool(t *testing.T) {
	router, _ := newScopeRouter(t, zap.NewNop())

	for _, header := range []string{"", "not-a-uuid", uuid.Nil.String()} {
		req := httptest.NewRequest(http.MethodGet, "/fees", nil)
		if header != "" {
			req.Header.Set(HeaderSchoolID, header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code, "header %q", header)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeSchoolRequired, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)
	}
}

func TestSchoolScope_Actors(t *testing.T) {
	school := uuid.New()
	clerk := uuid.New()
	student := uuid.New()

	tests := []struct {
		name    string
		id      string
		kind    string
		want    shared.ActorRef
		wantErr bool
	}{
		{name: "no headers acts as system", want: shared.SystemActor},
		{name: "bare id is a user", id: clerk.String(), want: shared.UserActor(clerk)},
		{name: "explicit student", id: student.String(), kind: "Student", want: shared.StudentActor(student)},
		{name: "system kind ignores id", id: clerk.String(), kind: "system", want: shared.SystemActor},
		{name: "malformed id", id: "clerk-7", wantErr: true},
		{name: "unknown kind", id: clerk.String(), kind: "parent", wantErr: true},
		{name: "kind without id", kind: "user", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, got := newScopeRouter(t, zap.NewNop())
			req := httptest.NewRequest(http.MethodGet, "/fees", nil)
			req.Header.Set(HeaderSchoolID, school.String())
			if tt.id != "" {
				req.Header.Set(HeaderActorID, tt.id)
			}
			if tt.kind != "" {
				req.Header.Set(HeaderActorKind, tt.kind)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if tt.wantErr {
				require.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidActor)
				return
			}
			require.Equal(t, http.StatusOK, w.Code)
			assert.True(t, got.HasID)
			assert.Equal(t, school, got.SchoolID)
			assert.Equal(t, tt.want, got.Actor)
		})
	}
}

func TestSchoolScope_EnrichesLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router, _ := newScopeRouter(t, zap.New(core))

	school := uuid.New()
	clerk := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/fees", nil)
	req.Header.Set(HeaderSchoolID, school.String())
	req.Header.Set(HeaderActorID, clerk.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	handled := logs.FilterMessage("handled").All()
	require.Len(t, handled, 1)
	fields := handled[0].ContextMap()
	assert.Equal(t, school.String(), fields["school_id"])
	assert.Equal(t, "user:"+clerk.String(), fields["actor"])
	assert.Equal(t, w.Header().Get(HeaderRequestID), fields["request_id"])
}

func TestGetters_WithoutScope(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetSchoolID(c)
	assert.False(t, ok)
	assert.Equal(t, shared.SystemActor, GetActor(c))
}
