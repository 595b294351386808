package handler

import (
	"github.com/gin-gonic/gin"
	ledgerapp "github.com/schoolledger/backend/internal/application/ledger"
)

// PromotionHandler handles student promotion API endpoints
type PromotionHandler struct {
	BaseHandler
	promotionService PromotionService
}

// NewPromotionHandler creates a new PromotionHandler
func NewPromotionHandler(promotionService PromotionService) *PromotionHandler {
	return &PromotionHandler{
		promotionService: promotionService,
	}
}

// Promote godoc
//
//	@ID				promoteStudent
//	@Summary		Promote student
//	@Description	Record a promotion from one class and academic year to the next.
//	@Description	With process_immediately the student's placement is moved in the same request.
//	@Tags			promotions
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string						true	"School ID"
//	@Param			request		body		ledgerapp.PromoteRequest	true	"Promotion"
//	@Success		201			{object}	APIResponse[ledgerapp.PromotionResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Router			/promotions [post]
func (h *PromotionHandler) Promote(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}

	var req ledgerapp.PromoteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	promotion, err := h.promotionService.Promote(c.Request.Context(), schoolID, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, promotion)
}

// BulkPromote godoc
//
//	@ID				bulkPromote
//	@Summary		Bulk promote
//	@Description	Promote a whole class. Each student succeeds or fails on its own.
//	@Tags			promotions
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string							true	"School ID"
//	@Param			request		body		ledgerapp.BulkPromoteRequest	true	"Bulk promotion"
//	@Success		200			{object}	APIResponse[ledgerapp.BulkPromotionResult]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		429			{object}	ErrorResponse
//	@Router			/promotions/bulk [post]
func (h *PromotionHandler) BulkPromote(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}

	var req ledgerapp.BulkPromoteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.promotionService.BulkPromote(c.Request.Context(), schoolID, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ProcessPromotion godoc
//
//	@ID				processPromotion
//	@Summary		Process promotion
//	@Description	Move the student's placement for a pending promotion
//	@Tags			promotions
//	@Produce		json
//	@Param			X-School-ID	header		string	true	"School ID"
//	@Param			id			path		string	true	"Promotion ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ledgerapp.PromotionResponse]
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/promotions/{id}/process [post]
func (h *PromotionHandler) ProcessPromotion(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	promotion, err := h.promotionService.ProcessPromotion(c.Request.Context(), schoolID, id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, promotion)
}

// RollbackPromotion godoc
//
//	@ID				rollbackPromotion
//	@Summary		Roll back promotion
//	@Tags			promotions
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string					true	"School ID"
//	@Param			id			path		string					true	"Promotion ID"	format(uuid)
//	@Param			request		body		ledgerapp.ReasonRequest	true	"Reason"
//	@Success		200			{object}	APIResponse[ledgerapp.PromotionResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/promotions/{id}/rollback [post]
func (h *PromotionHandler) RollbackPromotion(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req ledgerapp.ReasonRequest
	if !h.bindJSON(c, &req) {
		return
	}

	promotion, err := h.promotionService.RollbackPromotion(c.Request.Context(), schoolID, id, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, promotion)
}

// GetPromotion godoc
//
//	@ID				getPromotion
//	@Summary		Get promotion
//	@Tags			promotions
//	@Produce		json
//	@Param			X-School-ID	header		string	true	"School ID"
//	@Param			id			path		string	true	"Promotion ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ledgerapp.PromotionResponse]
//	@Failure		404			{object}	ErrorResponse
//	@Router			/promotions/{id} [get]
func (h *PromotionHandler) GetPromotion(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	promotion, err := h.promotionService.GetPromotion(c.Request.Context(), schoolID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, promotion)
}

// Statistics godoc
//
//	@ID				promotionStatistics
//	@Summary		Promotion statistics
//	@Description	Count promotions by status for a pair of academic years
//	@Tags			promotions
//	@Produce		json
//	@Param			X-School-ID				header		string	true	"School ID"
//	@Param			from_academic_year_id	query		string	true	"Source academic year ID"	format(uuid)
//	@Param			to_academic_year_id		query		string	true	"Target academic year ID"	format(uuid)
//	@Success		200						{object}	APIResponse[ledger.PromotionStatistics]
//	@Failure		400						{object}	ErrorResponse
//	@Router			/promotions/statistics [get]
func (h *PromotionHandler) Statistics(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}
	fromYearID, ok := h.requiredQueryUUID(c, "from_academic_year_id")
	if !ok {
		return
	}
	toYearID, ok := h.requiredQueryUUID(c, "to_academic_year_id")
	if !ok {
		return
	}

	stats, err := h.promotionService.Statistics(c.Request.Context(), schoolID, fromYearID, toYearID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}
