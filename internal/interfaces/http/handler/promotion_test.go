package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/schoolledger/backend/internal/application/ledger"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupPromotionHandler() (*gin.Engine, *MockPromotionService) {
	svc := new(MockPromotionService)
	h := NewPromotionHandler(svc)
	engine := newTestEngine(func(api *gin.RouterGroup) {
		api.POST("/promotions", h.Promote)
		api.POST("/promotions/bulk", h.BulkPromote)
		api.GET("/promotions/statistics", h.Statistics)
		api.GET("/promotions/:id", h.GetPromotion)
		api.POST("/promotions/:id/process", h.ProcessPromotion)
		api.POST("/promotions/:id/rollback", h.RollbackPromotion)
	})
	return engine, svc
}

func samplePromotion(status string) *ledgerapp.PromotionResponse {
	return &ledgerapp.PromotionResponse{
		ID:        uuid.New(),
		SchoolID:  testSchoolID,
		StudentID: uuid.New(),
		Status:    status,
	}
}

func TestPromotionHandler_Promote(t *testing.T) {
	t.Run("process immediately", func(t *testing.T) {
		engine, svc := setupPromotionHandler()
		svc.On("Promote", mock.Anything, testSchoolID, mock.MatchedBy(func(req ledgerapp.PromoteRequest) bool {
			return req.ProcessImmediately
		}), shared.UserActor(testUserID)).Return(samplePromotion("completed"), nil)

		w := performRequest(t, engine, http.MethodPost, "/api/v1/promotions", map[string]any{
			"student_id":            uuid.New(),
			"from_class_id":         uuid.New(),
			"to_class_id":           uuid.New(),
			"from_academic_year_id": uuid.New(),
			"to_academic_year_id":   uuid.New(),
			"process_immediately":   true,
		}, asUser(testUserID))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "completed", decodeData[ledgerapp.PromotionResponse](t, decodeResponse(t, w)).Status)
		svc.AssertExpectations(t)
	})

	t.Run("missing target class", func(t *testing.T) {
		engine, svc := setupPromotionHandler()

		w := performRequest(t, engine, http.MethodPost, "/api/v1/promotions", map[string]any{
			"student_id":            uuid.New(),
			"from_class_id":         uuid.New(),
			"from_academic_year_id": uuid.New(),
			"to_academic_year_id":   uuid.New(),
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "to_class_id", resp.Error.Fields[0].Field)
		svc.AssertNotCalled(t, "Promote", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate promotion", func(t *testing.T) {
		engine, svc := setupPromotionHandler()
		svc.On("Promote", mock.Anything, testSchoolID, mock.Anything, shared.SystemActor).
			Return(nil, shared.NewDomainErrorOfKind(shared.KindConflict, "DUPLICATE_PROMOTION", "Student already promoted"))

		w := performRequest(t, engine, http.MethodPost, "/api/v1/promotions", map[string]any{
			"student_id":            uuid.New(),
			"from_class_id":         uuid.New(),
			"to_class_id":           uuid.New(),
			"from_academic_year_id": uuid.New(),
			"to_academic_year_id":   uuid.New(),
		})

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestPromotionHandler_BulkPromote(t *testing.T) {
	engine, svc := setupPromotionHandler()
	students := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	svc.On("BulkPromote", mock.Anything, testSchoolID, mock.MatchedBy(func(req ledgerapp.BulkPromoteRequest) bool {
		return len(req.StudentIDs) == 3
	}), shared.SystemActor).Return(&ledgerapp.BulkPromotionResult{
		Processed: 3,
		Created:   students[:2],
		Completed: 2,
		Failed:    []ledgerapp.UnitFailure{{StudentID: students[2], Code: "DUPLICATE_PROMOTION"}},
	}, nil)

	w := performRequest(t, engine, http.MethodPost, "/api/v1/promotions/bulk", map[string]any{
		"from_class_id":         uuid.New(),
		"to_class_id":           uuid.New(),
		"from_academic_year_id": uuid.New(),
		"to_academic_year_id":   uuid.New(),
		"student_ids":           students,
		"process_immediately":   true,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	result := decodeData[ledgerapp.BulkPromotionResult](t, decodeResponse(t, w))
	assert.Equal(t, 2, result.Completed)
	assert.Len(t, result.Failed, 1)
	svc.AssertExpectations(t)
}

func TestPromotionHandler_ProcessAndRollback(t *testing.T) {
	t.Run("process", func(t *testing.T) {
		engine, svc := setupPromotionHandler()
		p := samplePromotion("completed")
		svc.On("ProcessPromotion", mock.Anything, testSchoolID, p.ID, shared.SystemActor).Return(p, nil)

		w := performRequest(t, engine, http.MethodPost, "/api/v1/promotions/"+p.ID.String()+"/process", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rollback", func(t *testing.T) {
		engine, svc := setupPromotionHandler()
		p := samplePromotion("rolled_back")
		svc.On("RollbackPromotion", mock.Anything, testSchoolID, p.ID,
			ledgerapp.ReasonRequest{Reason: "wrong section"}, shared.UserActor(testUserID)).Return(p, nil)

		w := performRequest(t, engine, http.MethodPost, "/api/v1/promotions/"+p.ID.String()+"/rollback", map[string]any{
			"reason": "wrong section",
		}, asUser(testUserID))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "rolled_back", decodeData[ledgerapp.PromotionResponse](t, decodeResponse(t, w)).Status)
		svc.AssertExpectations(t)
	})

	t.Run("rollback of pending promotion", func(t *testing.T) {
		engine, svc := setupPromotionHandler()
		id := uuid.New()
		svc.On("RollbackPromotion", mock.Anything, testSchoolID, id, mock.Anything, shared.SystemActor).
			Return(nil, shared.NewDomainError("INVALID_TRANSITION", "Only completed promotions can be rolled back"))

		w := performRequest(t, engine, http.MethodPost, "/api/v1/promotions/"+id.String()+"/rollback", map[string]any{
			"reason": "oops",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestPromotionHandler_GetPromotion(t *testing.T) {
	engine, svc := setupPromotionHandler()
	p := samplePromotion("pending")
	svc.On("GetPromotion", mock.Anything, testSchoolID, p.ID).Return(p, nil)

	w := performRequest(t, engine, http.MethodGet, "/api/v1/promotions/"+p.ID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPromotionHandler_Statistics(t *testing.T) {
	t.Run("counts", func(t *testing.T) {
		engine, svc := setupPromotionHandler()
		fromID := uuid.New()
		toID := uuid.New()
		svc.On("Statistics", mock.Anything, testSchoolID, fromID, toID).Return(&ledger.PromotionStatistics{
			FromAcademicYearID: fromID,
			ToAcademicYearID:   toID,
			Total:              30,
			Completed:          27,
			Failed:             1,
			RolledBack:         2,
		}, nil)

		w := performRequest(t, engine, http.MethodGet,
			"/api/v1/promotions/statistics?from_academic_year_id="+fromID.String()+"&to_academic_year_id="+toID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		stats := decodeData[ledger.PromotionStatistics](t, decodeResponse(t, w))
		assert.Equal(t, int64(30), stats.Total)
		assert.Equal(t, int64(27), stats.Completed)
		svc.AssertExpectations(t)
	})

	t.Run("both years required", func(t *testing.T) {
		engine, svc := setupPromotionHandler()

		w := performRequest(t, engine, http.MethodGet,
			"/api/v1/promotions/statistics?from_academic_year_id="+uuid.NewString(), nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, "to_academic_year_id", resp.Error.Fields[0].Field)
		svc.AssertNotCalled(t, "Statistics", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
