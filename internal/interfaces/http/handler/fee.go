package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/schoolledger/backend/internal/application/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
)

// FeeHandler handles fee record API endpoints
type FeeHandler struct {
	BaseHandler
	feeService FeeService
}

// NewFeeHandler creates a new FeeHandler
func NewFeeHandler(feeService FeeService) *FeeHandler {
	return &FeeHandler{
		feeService: feeService,
	}
}

// FeeRecordListQuery holds the query parameters of the fee record list
//
//	@Description	Query parameters for listing fee records
type FeeRecordListQuery struct {
	StudentID      string `form:"student_id" binding:"omitempty,uuid"`
	AcademicYearID string `form:"academic_year_id" binding:"omitempty,uuid"`
	ClassID        string `form:"class_id" binding:"omitempty,uuid"`
	Category       string `form:"fee_category"`
	Status         string `form:"status"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string `form:"order_by" binding:"omitempty,oneof=created_at due_date remaining_amount"`
	OrderDir       string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (q FeeRecordListQuery) toFilter() ledgerapp.FeeRecordListFilter {
	return ledgerapp.FeeRecordListFilter{
		StudentID:      optionalUUID(q.StudentID),
		AcademicYearID: optionalUUID(q.AcademicYearID),
		ClassID:        optionalUUID(q.ClassID),
		Category:       q.Category,
		Status:         q.Status,
		Page:           q.Page,
		PageSize:       q.PageSize,
		OrderBy:        q.OrderBy,
		OrderDir:       q.OrderDir,
	}
}

// optionalUUID parses an already validated uuid query value
func optionalUUID(raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// CreateFeeRecord godoc
//
//	@ID				createFeeRecord
//	@Summary		Create fee record
//	@Description	Assign an explicit fee to a student. Status starts as pending.
//	@Tags			fees
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string								true	"School ID"
//	@Param			request		body		ledgerapp.CreateFeeRecordRequest	true	"Fee record"
//	@Success		201			{object}	APIResponse[ledgerapp.FeeRecordResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Router			/fees [post]
func (h *FeeHandler) CreateFeeRecord(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}

	var req ledgerapp.CreateFeeRecordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	record, err := h.feeService.CreateFeeRecord(c.Request.Context(), schoolID, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, record)
}

// AssignFromStructure godoc
//
//	@ID				assignFeesFromStructure
//	@Summary		Assign fees from structure
//	@Description	Create fee records for a student from the active fee structures of a class
//	@Tags			fees
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string						true	"School ID"
//	@Param			request		body		ledgerapp.AssignFeeRequest	true	"Assignment"
//	@Success		201			{object}	APIResponse[[]ledgerapp.FeeRecordResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Router			/fees/assign [post]
func (h *FeeHandler) AssignFromStructure(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}

	var req ledgerapp.AssignFeeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	records, err := h.feeService.AssignFromStructure(c.Request.Context(), schoolID, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, records)
}

// GetFeeRecord godoc
//
//	@ID				getFeeRecord
//	@Summary		Get fee record
//	@Tags			fees
//	@Produce		json
//	@Param			X-School-ID	header		string	true	"School ID"
//	@Param			id			path		string	true	"Fee record ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ledgerapp.FeeRecordResponse]
//	@Failure		404			{object}	ErrorResponse
//	@Router			/fees/{id} [get]
func (h *FeeHandler) GetFeeRecord(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	record, err := h.feeService.GetFeeRecord(c.Request.Context(), schoolID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}

// ListFeeRecords godoc
//
//	@ID				listFeeRecords
//	@Summary		List fee records
//	@Description	List fee records of the school with filtering and pagination
//	@Tags			fees
//	@Produce		json
//	@Param			X-School-ID			header		string	true	"School ID"
//	@Param			student_id			query		string	false	"Student ID"	format(uuid)
//	@Param			academic_year_id	query		string	false	"Academic year ID"	format(uuid)
//	@Param			class_id			query		string	false	"Class ID"	format(uuid)
//	@Param			fee_category		query		string	false	"Fee category"
//	@Param			status				query		string	false	"Fee status"	Enums(pending, partially_paid, paid, overdue, waived, cancelled, voided)
//	@Param			page				query		int		false	"Page number"	default(1)
//	@Param			page_size			query		int		false	"Page size"		default(20)	maximum(100)
//	@Success		200					{object}	APIResponse[[]ledgerapp.FeeRecordResponse]
//	@Failure		400					{object}	ErrorResponse
//	@Router			/fees [get]
func (h *FeeHandler) ListFeeRecords(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}

	var query FeeRecordListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	filter := query.toFilter()

	records, total, err := h.feeService.ListFeeRecords(c.Request.Context(), schoolID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, pageSize := pageOrDefault(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, records, total, page, pageSize)
}

// ApplyFine godoc
//
//	@ID				applyFine
//	@Summary		Apply fine
//	@Description	Add a late fine to an open fee record
//	@Tags			fees
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string					true	"School ID"
//	@Param			id			path		string					true	"Fee record ID"	format(uuid)
//	@Param			request		body		ledgerapp.AmountRequest	true	"Fine"
//	@Success		200			{object}	APIResponse[ledgerapp.FeeRecordResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/fees/{id}/fine [post]
func (h *FeeHandler) ApplyFine(c *gin.Context) {
	h.amountAction(c, h.feeService.ApplyFine)
}

// ReverseFine godoc
//
//	@ID				reverseFine
//	@Summary		Reverse fine
//	@Description	Reduce the fine of a fee record, never below zero
//	@Tags			fees
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string					true	"School ID"
//	@Param			id			path		string					true	"Fee record ID"	format(uuid)
//	@Param			request		body		ledgerapp.AmountRequest	true	"Fine reversal"
//	@Success		200			{object}	APIResponse[ledgerapp.FeeRecordResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/fees/{id}/fine/reverse [post]
func (h *FeeHandler) ReverseFine(c *gin.Context) {
	h.amountAction(c, h.feeService.ReverseFine)
}

// ApplyDiscount godoc
//
//	@ID				applyDiscount
//	@Summary		Apply discount
//	@Tags			fees
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string					true	"School ID"
//	@Param			id			path		string					true	"Fee record ID"	format(uuid)
//	@Param			request		body		ledgerapp.AmountRequest	true	"Discount"
//	@Success		200			{object}	APIResponse[ledgerapp.FeeRecordResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/fees/{id}/discount [post]
func (h *FeeHandler) ApplyDiscount(c *gin.Context) {
	h.amountAction(c, h.feeService.ApplyDiscount)
}

// ApplyWaiver godoc
//
//	@ID				applyWaiver
//	@Summary		Apply partial waiver
//	@Tags			fees
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string					true	"School ID"
//	@Param			id			path		string					true	"Fee record ID"	format(uuid)
//	@Param			request		body		ledgerapp.AmountRequest	true	"Waiver"
//	@Success		200			{object}	APIResponse[ledgerapp.FeeRecordResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/fees/{id}/waiver [post]
func (h *FeeHandler) ApplyWaiver(c *gin.Context) {
	h.amountAction(c, h.feeService.ApplyWaiver)
}

// Cancel godoc
//
//	@ID				cancelFeeRecord
//	@Summary		Cancel fee record
//	@Description	Cancel a fee record with no money received
//	@Tags			fees
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string					true	"School ID"
//	@Param			id			path		string					true	"Fee record ID"	format(uuid)
//	@Param			request		body		ledgerapp.ReasonRequest	true	"Reason"
//	@Success		200			{object}	APIResponse[ledgerapp.FeeRecordResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/fees/{id}/cancel [post]
func (h *FeeHandler) Cancel(c *gin.Context) {
	h.reasonAction(c, h.feeService.Cancel)
}

// WaiveAll godoc
//
//	@ID				waiveFeeRecord
//	@Summary		Waive fee record
//	@Description	Waive the whole remaining amount of a fee record
//	@Tags			fees
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string					true	"School ID"
//	@Param			id			path		string					true	"Fee record ID"	format(uuid)
//	@Param			request		body		ledgerapp.ReasonRequest	true	"Reason"
//	@Success		200			{object}	APIResponse[ledgerapp.FeeRecordResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/fees/{id}/waive [post]
func (h *FeeHandler) WaiveAll(c *gin.Context) {
	h.reasonAction(c, h.feeService.WaiveAll)
}

// Void godoc
//
//	@ID				voidFeeRecord
//	@Summary		Void fee record
//	@Description	Void a fee record created in error
//	@Tags			fees
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string					true	"School ID"
//	@Param			id			path		string					true	"Fee record ID"	format(uuid)
//	@Param			request		body		ledgerapp.ReasonRequest	true	"Reason"
//	@Success		200			{object}	APIResponse[ledgerapp.FeeRecordResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/fees/{id}/void [post]
func (h *FeeHandler) Void(c *gin.Context) {
	h.reasonAction(c, h.feeService.Void)
}

// RecomputeStatus godoc
//
//	@ID				recomputeFeeStatus
//	@Summary		Recompute status
//	@Description	Re-derive the status of a fee record from its amounts and due date
//	@Tags			fees
//	@Produce		json
//	@Param			X-School-ID	header		string	true	"School ID"
//	@Param			id			path		string	true	"Fee record ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ledgerapp.FeeRecordResponse]
//	@Failure		404			{object}	ErrorResponse
//	@Router			/fees/{id}/recompute [post]
func (h *FeeHandler) RecomputeStatus(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	record, err := h.feeService.RecomputeStatus(c.Request.Context(), schoolID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}

// RefreshOverdue godoc
//
//	@ID				refreshOverdue
//	@Summary		Refresh overdue statuses
//	@Description	Recompute the status of every open fee record of the school
//	@Tags			fees
//	@Produce		json
//	@Param			X-School-ID	header		string	true	"School ID"
//	@Success		200			{object}	APIResponse[ledgerapp.RefreshOverdueResult]
//	@Failure		429			{object}	ErrorResponse
//	@Router			/fees/refresh-overdue [post]
func (h *FeeHandler) RefreshOverdue(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}

	result, err := h.feeService.RefreshOverdue(c.Request.Context(), schoolID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

type amountFunc func(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.AmountRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error)

type reasonFunc func(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.ReasonRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error)

func (h *FeeHandler) amountAction(c *gin.Context, fn amountFunc) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req ledgerapp.AmountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	record, err := fn(c.Request.Context(), schoolID, id, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}

func (h *FeeHandler) reasonAction(c *gin.Context, fn reasonFunc) {
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

	record, err := fn(c.Request.Context(), schoolID, id, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}
