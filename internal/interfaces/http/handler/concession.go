package handler

import (
	"github.com/gin-gonic/gin"
	ledgerapp "github.com/schoolledger/backend/internal/application/ledger"
)

// ConcessionHandler handles concession API endpoints
type ConcessionHandler struct {
	BaseHandler
	concessionService ConcessionService
}

// NewConcessionHandler creates a new ConcessionHandler
func NewConcessionHandler(concessionService ConcessionService) *ConcessionHandler {
	return &ConcessionHandler{
		concessionService: concessionService,
	}
}

// ConcessionListQuery holds the query parameters of the concession list
//
//	@Description	Query parameters for listing concessions
type ConcessionListQuery struct {
	StudentID      string `form:"student_id" binding:"omitempty,uuid"`
	AcademicYearID string `form:"academic_year_id" binding:"omitempty,uuid"`
	Status         string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// CreateConcession godoc
//
//	@ID				createConcession
//	@Summary		Request concession
//	@Description	Request a percentage or fixed concession for one student, fee category and academic year
//	@Tags			concessions
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string								true	"School ID"
//	@Param			request		body		ledgerapp.CreateConcessionRequest	true	"Concession"
//	@Success		201			{object}	APIResponse[ledgerapp.ConcessionResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Router			/concessions [post]
func (h *ConcessionHandler) CreateConcession(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}

	var req ledgerapp.CreateConcessionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	concession, err := h.concessionService.CreateConcession(c.Request.Context(), schoolID, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, concession)
}

// GetConcession godoc
//
//	@ID				getConcession
//	@Summary		Get concession
//	@Tags			concessions
//	@Produce		json
//	@Param			X-School-ID	header		string	true	"School ID"
//	@Param			id			path		string	true	"Concession ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ledgerapp.ConcessionResponse]
//	@Failure		404			{object}	ErrorResponse
//	@Router			/concessions/{id} [get]
func (h *ConcessionHandler) GetConcession(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	concession, err := h.concessionService.GetConcession(c.Request.Context(), schoolID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, concession)
}

// ListConcessions godoc
//
//	@ID				listConcessions
//	@Summary		List concessions
//	@Tags			concessions
//	@Produce		json
//	@Param			X-School-ID			header		string	true	"School ID"
//	@Param			student_id			query		string	false	"Student ID"	format(uuid)
//	@Param			academic_year_id	query		string	false	"Academic year ID"	format(uuid)
//	@Param			status				query		string	false	"Status"	Enums(pending, approved, rejected)
//	@Param			page				query		int		false	"Page number"	default(1)
//	@Param			page_size			query		int		false	"Page size"		default(20)	maximum(100)
//	@Success		200					{object}	APIResponse[[]ledgerapp.ConcessionResponse]
//	@Failure		400					{object}	ErrorResponse
//	@Router			/concessions [get]
func (h *ConcessionHandler) ListConcessions(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}

	var query ConcessionListQuery
	if !h.bindQuery(c, &query) {
		return
	}

	concessions, err := h.concessionService.ListConcessions(c.Request.Context(), schoolID, ledgerapp.ConcessionListFilter{
		StudentID:      optionalUUID(query.StudentID),
		AcademicYearID: optionalUUID(query.AcademicYearID),
		Status:         query.Status,
		Page:           query.Page,
		PageSize:       query.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, concessions)
}

// ApproveConcession godoc
//
//	@ID				approveConcession
//	@Summary		Approve concession
//	@Description	Approve a pending concession and apply it to every open fee record in its scope
//	@Tags			concessions
//	@Produce		json
//	@Param			X-School-ID	header		string	true	"School ID"
//	@Param			X-Actor-ID	header		string	false	"Approving user ID"
//	@Param			id			path		string	true	"Concession ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ledgerapp.ConcessionResponse]
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/concessions/{id}/approve [post]
func (h *ConcessionHandler) ApproveConcession(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	concession, err := h.concessionService.ApproveConcession(c.Request.Context(), schoolID, id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, concession)
}

// RejectConcession godoc
//
//	@ID				rejectConcession
//	@Summary		Reject concession
//	@Tags			concessions
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string					true	"School ID"
//	@Param			id			path		string					true	"Concession ID"	format(uuid)
//	@Param			request		body		ledgerapp.ReasonRequest	true	"Reason"
//	@Success		200			{object}	APIResponse[ledgerapp.ConcessionResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/concessions/{id}/reject [post]
func (h *ConcessionHandler) RejectConcession(c *gin.Context) {
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

	concession, err := h.concessionService.RejectConcession(c.Request.Context(), schoolID, id, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, concession)
}

// ResolveAmount godoc
//
//	@ID				resolveConcessionAmount
//	@Summary		Preview concession amount
//	@Description	Compute what a concession would contribute to one fee record without changing it
//	@Tags			concessions
//	@Produce		json
//	@Param			X-School-ID		header		string	true	"School ID"
//	@Param			id				path		string	true	"Concession ID"	format(uuid)
//	@Param			fee_record_id	query		string	true	"Fee record ID"	format(uuid)
//	@Success		200				{object}	APIResponse[ledgerapp.ResolvedConcession]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Router			/concessions/{id}/resolve [get]
func (h *ConcessionHandler) ResolveAmount(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	feeRecordID, ok := h.requiredQueryUUID(c, "fee_record_id")
	if !ok {
		return
	}

	resolved, err := h.concessionService.ResolveAmount(c.Request.Context(), schoolID, id, feeRecordID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resolved)
}

// ApplyToFeeRecord godoc
//
//	@ID				applyConcessionsToFeeRecord
//	@Summary		Apply concession to a fee record
//	@Description	Apply the active concession covering the fee record, if any. Used for records
//	@Description	created before the concession was approved or became valid.
//	@Tags			concessions
//	@Produce		json
//	@Param			X-School-ID	header		string	true	"School ID"
//	@Param			id			path		string	true	"Fee record ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ledgerapp.FeeRecordResponse]
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/fees/{id}/concessions/apply [post]
func (h *ConcessionHandler) ApplyToFeeRecord(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}
	feeRecordID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	record, err := h.concessionService.ApplyToFeeRecord(c.Request.Context(), schoolID, feeRecordID, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}
