package handler

import (
	"github.com/gin-gonic/gin"
	ledgerapp "github.com/schoolledger/backend/internal/application/ledger"
)

// BalanceHandler handles carry-forward and reconciliation API endpoints
type BalanceHandler struct {
	BaseHandler
	carryForwardService CarryForwardService
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(carryForwardService CarryForwardService) *BalanceHandler {
	return &BalanceHandler{
		carryForwardService: carryForwardService,
	}
}

// CarryForward godoc
//
//	@ID				carryForwardBalance
//	@Summary		Carry forward balance
//	@Description	Carry one student's outstanding balance from an academic year into the next
//	@Tags			balances
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string							true	"School ID"
//	@Param			request		body		ledgerapp.CarryForwardRequest	true	"Carry-forward"
//	@Success		201			{object}	APIResponse[ledgerapp.BalanceResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Router			/balances/carry-forward [post]
func (h *BalanceHandler) CarryForward(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}

	var req ledgerapp.CarryForwardRequest
	if !h.bindJSON(c, &req) {
		return
	}

	balance, err := h.carryForwardService.ComputeCarryForward(c.Request.Context(), schoolID, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, balance)
}

// BulkCarryForward godoc
//
//	@ID				bulkCarryForward
//	@Summary		Bulk carry forward
//	@Description	Carry balances forward for many students. Each student succeeds or fails on its own;
//	@Description	failures are reported in the result.
//	@Tags			balances
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string								true	"School ID"
//	@Param			request		body		ledgerapp.BulkCarryForwardRequest	true	"Bulk carry-forward"
//	@Success		200			{object}	APIResponse[ledgerapp.BulkCarryForwardResult]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		429			{object}	ErrorResponse
//	@Router			/balances/carry-forward/bulk [post]
func (h *BalanceHandler) BulkCarryForward(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}

	var req ledgerapp.BulkCarryForwardRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.carryForwardService.BulkCarryForward(c.Request.Context(), schoolID, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// AdjustBalance godoc
//
//	@ID				adjustBalance
//	@Summary		Adjust balance
//	@Tags			balances
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string							true	"School ID"
//	@Param			id			path		string							true	"Balance ID"	format(uuid)
//	@Param			request		body		ledgerapp.AdjustBalanceRequest	true	"Adjustment"
//	@Success		200			{object}	APIResponse[ledgerapp.BalanceResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/balances/{id}/adjust [post]
func (h *BalanceHandler) AdjustBalance(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req ledgerapp.AdjustBalanceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	balance, err := h.carryForwardService.AdjustBalance(c.Request.Context(), schoolID, id, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}

// ClearBalance godoc
//
//	@ID				clearBalance
//	@Summary		Clear balance
//	@Description	Mark a settled carried-forward balance as cleared
//	@Tags			balances
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string							true	"School ID"
//	@Param			id			path		string							true	"Balance ID"	format(uuid)
//	@Param			request		body		ledgerapp.ClearBalanceRequest	false	"Remarks"
//	@Success		200			{object}	APIResponse[ledgerapp.BalanceResponse]
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/balances/{id}/clear [post]
func (h *BalanceHandler) ClearBalance(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req ledgerapp.ClearBalanceRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	balance, err := h.carryForwardService.ClearBalance(c.Request.Context(), schoolID, id, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}

// GetBalance godoc
//
//	@ID				getBalance
//	@Summary		Get balance
//	@Tags			balances
//	@Produce		json
//	@Param			X-School-ID	header		string	true	"School ID"
//	@Param			id			path		string	true	"Balance ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ledgerapp.BalanceResponse]
//	@Failure		404			{object}	ErrorResponse
//	@Router			/balances/{id} [get]
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	balance, err := h.carryForwardService.GetBalance(c.Request.Context(), schoolID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}

// ListBalances godoc
//
//	@ID				listBalances
//	@Summary		List balances of a year
//	@Description	List the balances carried into an academic year
//	@Tags			balances
//	@Produce		json
//	@Param			X-School-ID			header		string	true	"School ID"
//	@Param			academic_year_id	query		string	true	"Target academic year ID"	format(uuid)
//	@Success		200					{object}	APIResponse[[]ledgerapp.BalanceResponse]
//	@Failure		400					{object}	ErrorResponse
//	@Router			/balances [get]
func (h *BalanceHandler) ListBalances(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}
	yearID, ok := h.requiredQueryUUID(c, "academic_year_id")
	if !ok {
		return
	}

	balances, err := h.carryForwardService.ListBalances(c.Request.Context(), schoolID, yearID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balances)
}

// Reconcile godoc
//
//	@ID				reconcileYear
//	@Summary		Reconcile academic year
//	@Description	Summarize billed, collected and outstanding amounts of an academic year and list fee
//	@Description	records whose paid amount disagrees with their completed payments. With repair=true
//	@Description	the paid amount is rewritten from the payments.
//	@Tags			balances
//	@Produce		json
//	@Param			X-School-ID			header		string	true	"School ID"
//	@Param			academic_year_id	query		string	true	"Academic year ID"	format(uuid)
//	@Param			repair				query		bool	false	"Repair discrepancies"	default(false)
//	@Success		200					{object}	APIResponse[ledgerapp.ReconciliationSummary]
//	@Failure		400					{object}	ErrorResponse
//	@Router			/reconciliation [get]
func (h *BalanceHandler) Reconcile(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}
	yearID, ok := h.requiredQueryUUID(c, "academic_year_id")
	if !ok {
		return
	}

	var query struct {
		Repair bool `form:"repair"`
	}
	if !h.bindQuery(c, &query) {
		return
	}

	summary, err := h.carryForwardService.Reconcile(c.Request.Context(), schoolID, ledgerapp.ReconcileRequest{
		AcademicYearID: yearID,
		Repair:         query.Repair,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}
