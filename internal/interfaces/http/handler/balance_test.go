package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/schoolledger/backend/internal/application/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupBalanceHandler() (*gin.Engine, *MockCarryForwardService) {
	svc := new(MockCarryForwardService)
	h := NewBalanceHandler(svc)
	engine := newTestEngine(func(api *gin.RouterGroup) {
		api.POST("/balances/carry-forward", h.CarryForward)
		api.POST("/balances/carry-forward/bulk", h.BulkCarryForward)
		api.GET("/balances", h.ListBalances)
		api.GET("/balances/:id", h.GetBalance)
		api.POST("/balances/:id/adjust", h.AdjustBalance)
		api.POST("/balances/:id/clear", h.ClearBalance)
		api.GET("/reconciliation", h.Reconcile)
	})
	return engine, svc
}

func sampleBalance(status string, amount int64) *ledgerapp.BalanceResponse {
	return &ledgerapp.BalanceResponse{
		ID:                     uuid.New(),
		SchoolID:               testSchoolID,
		StudentID:              uuid.New(),
		AcademicYearID:         uuid.New(),
		PreviousAcademicYearID: uuid.New(),
		BalanceAmount:          decimal.NewFromInt(amount),
		FinalBalance:           decimal.NewFromInt(amount),
		Status:                 status,
	}
}

func TestBalanceHandler_CarryForward(t *testing.T) {
	t.Run("creates balance", func(t *testing.T) {
		engine, svc := setupBalanceHandler()
		studentID := uuid.New()
		fromID := uuid.New()
		toID := uuid.New()
		svc.On("ComputeCarryForward", mock.Anything, testSchoolID, ledgerapp.CarryForwardRequest{
			StudentID:  studentID,
			FromYearID: fromID,
			ToYearID:   toID,
		}, shared.SystemActor).Return(sampleBalance("pending", 1500), nil)

		w := performRequest(t, engine, http.MethodPost, "/api/v1/balances/carry-forward", map[string]any{
			"student_id":            studentID,
			"from_academic_year_id": fromID,
			"to_academic_year_id":   toID,
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		balance := decodeData[ledgerapp.BalanceResponse](t, decodeResponse(t, w))
		assert.True(t, balance.FinalBalance.Equal(decimal.NewFromInt(1500)))
		svc.AssertExpectations(t)
	})

	t.Run("already carried", func(t *testing.T) {
		engine, svc := setupBalanceHandler()
		svc.On("ComputeCarryForward", mock.Anything, testSchoolID, mock.Anything, shared.SystemActor).
			Return(nil, shared.NewDomainErrorOfKind(shared.KindConflict, "DUPLICATE_CARRY_FORWARD", "Balance already carried forward"))

		w := performRequest(t, engine, http.MethodPost, "/api/v1/balances/carry-forward", map[string]any{
			"student_id":            uuid.New(),
			"from_academic_year_id": uuid.New(),
			"to_academic_year_id":   uuid.New(),
		})

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestBalanceHandler_BulkCarryForward(t *testing.T) {
	engine, svc := setupBalanceHandler()
	failedStudent := uuid.New()
	svc.On("BulkCarryForward", mock.Anything, testSchoolID, mock.MatchedBy(func(req ledgerapp.BulkCarryForwardRequest) bool {
		return len(req.StudentIDs) == 0 && req.Threshold != nil && req.Threshold.Equal(decimal.NewFromInt(10))
	}), shared.UserActor(testUserID)).Return(&ledgerapp.BulkCarryForwardResult{
		Processed:         4,
		Created:           []uuid.UUID{uuid.New(), uuid.New()},
		SkippedDuplicates: 1,
		Failed: []ledgerapp.UnitFailure{
			{StudentID: failedStudent, Code: "CONCURRENCY_CONFLICT", Message: "retry"},
		},
	}, nil)

	w := performRequest(t, engine, http.MethodPost, "/api/v1/balances/carry-forward/bulk", map[string]any{
		"from_academic_year_id": uuid.New(),
		"to_academic_year_id":   uuid.New(),
		"threshold":             "10",
	}, asUser(testUserID))

	assert.Equal(t, http.StatusOK, w.Code)
	result := decodeData[ledgerapp.BulkCarryForwardResult](t, decodeResponse(t, w))
	assert.Equal(t, 4, result.Processed)
	assert.Len(t, result.Created, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, failedStudent, result.Failed[0].StudentID)
	svc.AssertExpectations(t)
}

func TestBalanceHandler_AdjustBalance(t *testing.T) {
	t.Run("adjusts", func(t *testing.T) {
		engine, svc := setupBalanceHandler()
		balance := sampleBalance("pending", 1500)
		balance.AdjustmentAmount = decimal.NewFromInt(-200)
		balance.FinalBalance = decimal.NewFromInt(1300)
		svc.On("AdjustBalance", mock.Anything, testSchoolID, balance.ID, mock.MatchedBy(func(req ledgerapp.AdjustBalanceRequest) bool {
			return req.Adjustment.Equal(decimal.NewFromInt(-200)) && req.Reason == "scholarship"
		}), shared.SystemActor).Return(balance, nil)

		w := performRequest(t, engine, http.MethodPost, "/api/v1/balances/"+balance.ID.String()+"/adjust", map[string]any{
			"adjustment_amount": "-200",
			"reason":            "scholarship",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("reason required", func(t *testing.T) {
		engine, svc := setupBalanceHandler()

		w := performRequest(t, engine, http.MethodPost, "/api/v1/balances/"+uuid.NewString()+"/adjust", map[string]any{
			"adjustment_amount": "-200",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "AdjustBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBalanceHandler_ClearBalance(t *testing.T) {
	t.Run("without body", func(t *testing.T) {
		engine, svc := setupBalanceHandler()
		balance := sampleBalance("cleared", 0)
		svc.On("ClearBalance", mock.Anything, testSchoolID, balance.ID, ledgerapp.ClearBalanceRequest{}, shared.SystemActor).
			Return(balance, nil)

		w := performRequest(t, engine, http.MethodPost, "/api/v1/balances/"+balance.ID.String()+"/clear", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("with remarks", func(t *testing.T) {
		engine, svc := setupBalanceHandler()
		balance := sampleBalance("cleared", 0)
		svc.On("ClearBalance", mock.Anything, testSchoolID, balance.ID,
			ledgerapp.ClearBalanceRequest{Remarks: "settled in cash"}, shared.SystemActor).Return(balance, nil)

		w := performRequest(t, engine, http.MethodPost, "/api/v1/balances/"+balance.ID.String()+"/clear", map[string]any{
			"remarks": "settled in cash",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("outstanding balance", func(t *testing.T) {
		engine, svc := setupBalanceHandler()
		id := uuid.New()
		svc.On("ClearBalance", mock.Anything, testSchoolID, id, mock.Anything, shared.SystemActor).
			Return(nil, shared.NewDomainError("INVALID_STATE", "Balance still has an outstanding amount"))

		w := performRequest(t, engine, http.MethodPost, "/api/v1/balances/"+id.String()+"/clear", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestBalanceHandler_GetAndList(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		engine, svc := setupBalanceHandler()
		balance := sampleBalance("pending", 300)
		svc.On("GetBalance", mock.Anything, testSchoolID, balance.ID).Return(balance, nil)

		w := performRequest(t, engine, http.MethodGet, "/api/v1/balances/"+balance.ID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("list by year", func(t *testing.T) {
		engine, svc := setupBalanceHandler()
		yearID := uuid.New()
		svc.On("ListBalances", mock.Anything, testSchoolID, yearID).
			Return([]ledgerapp.BalanceResponse{*sampleBalance("pending", 300)}, nil)

		w := performRequest(t, engine, http.MethodGet, "/api/v1/balances?academic_year_id="+yearID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeData[[]ledgerapp.BalanceResponse](t, decodeResponse(t, w)), 1)
	})

	t.Run("list requires year", func(t *testing.T) {
		engine, svc := setupBalanceHandler()

		w := performRequest(t, engine, http.MethodGet, "/api/v1/balances", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w).Error.Code)
		svc.AssertNotCalled(t, "ListBalances", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBalanceHandler_Reconcile(t *testing.T) {
	t.Run("repair flag", func(t *testing.T) {
		engine, svc := setupBalanceHandler()
		yearID := uuid.New()
		feeID := uuid.New()
		svc.On("Reconcile", mock.Anything, testSchoolID, ledgerapp.ReconcileRequest{AcademicYearID: yearID, Repair: true}).
			Return(&ledgerapp.ReconciliationSummary{
				AcademicYearID: yearID,
				TotalStudents:  12,
				TotalBilled:    decimal.NewFromInt(12000),
				TotalCollected: decimal.NewFromInt(9000),
				TotalBalance:   decimal.NewFromInt(3000),
				Discrepancies: []ledgerapp.Discrepancy{
					{FeeRecordID: feeID, StoredPaid: decimal.NewFromInt(500), PaymentsPaid: decimal.NewFromInt(400), Repaired: true},
				},
			}, nil)

		w := performRequest(t, engine, http.MethodGet, "/api/v1/reconciliation?academic_year_id="+yearID.String()+"&repair=true", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		summary := decodeData[ledgerapp.ReconciliationSummary](t, decodeResponse(t, w))
		assert.Equal(t, 12, summary.TotalStudents)
		assert.True(t, summary.TotalBalance.Equal(decimal.NewFromInt(3000)))
		require.Len(t, summary.Discrepancies, 1)
		assert.True(t, summary.Discrepancies[0].Repaired)
		svc.AssertExpectations(t)
	})

	t.Run("read only by default", func(t *testing.T) {
		engine, svc := setupBalanceHandler()
		yearID := uuid.New()
		svc.On("Reconcile", mock.Anything, testSchoolID, ledgerapp.ReconcileRequest{AcademicYearID: yearID}).
			Return(&ledgerapp.ReconciliationSummary{AcademicYearID: yearID}, nil)

		w := performRequest(t, engine, http.MethodGet, "/api/v1/reconciliation?academic_year_id="+yearID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("malformed year", func(t *testing.T) {
		engine, _ := setupBalanceHandler()

		w := performRequest(t, engine, http.MethodGet, "/api/v1/reconciliation?academic_year_id=2025", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeResponse(t, w).Error.Code)
	})
}
