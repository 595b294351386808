package handler

import (
	"github.com/gin-gonic/gin"
	ledgerapp "github.com/schoolledger/backend/internal/application/ledger"
)

// PaymentHandler handles payment API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// RecordPayment godoc
//
//	@ID				recordPayment
//	@Summary		Record payment
//	@Description	Record funds received against a fee record. A receipt number that was already
//	@Description	recorded for the same fee record and amount returns the original payment.
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID		header		string							true	"School ID"
//	@Param			X-Actor-ID		header		string							false	"Collecting user ID"
//	@Param			request			body		ledgerapp.RecordPaymentRequest	true	"Payment"
//	@Success		201				{object}	APIResponse[ledgerapp.PaymentResult]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		409				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Router			/payments [post]
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}

	var req ledgerapp.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.paymentService.RecordPayment(c.Request.Context(), schoolID, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// CancelPayment godoc
//
//	@ID				cancelPayment
//	@Summary		Cancel payment
//	@Description	Cancel a completed payment and reverse its amount on the fee record.
//	@Description	Paid records are only reopened when allow_reversal is set.
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			X-School-ID	header		string							true	"School ID"
//	@Param			id			path		string							true	"Payment ID"	format(uuid)
//	@Param			request		body		ledgerapp.CancelPaymentRequest	true	"Cancellation"
//	@Success		200			{object}	APIResponse[ledgerapp.PaymentResult]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/payments/{id}/cancel [post]
func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	schoolID, actor, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req ledgerapp.CancelPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.paymentService.CancelPayment(c.Request.Context(), schoolID, id, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetPayment godoc
//
//	@ID				getPayment
//	@Summary		Get payment
//	@Tags			payments
//	@Produce		json
//	@Param			X-School-ID	header		string	true	"School ID"
//	@Param			id			path		string	true	"Payment ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ledgerapp.PaymentResponse]
//	@Failure		404			{object}	ErrorResponse
//	@Router			/payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), schoolID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// GetPaymentByReceipt godoc
//
//	@ID				getPaymentByReceipt
//	@Summary		Find payment by receipt
//	@Tags			payments
//	@Produce		json
//	@Param			X-School-ID		header		string	true	"School ID"
//	@Param			receipt_number	query		string	true	"Receipt number"
//	@Success		200				{object}	APIResponse[ledgerapp.PaymentResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Router			/payments [get]
func (h *PaymentHandler) GetPaymentByReceipt(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}

	var query struct {
		ReceiptNumber string `form:"receipt_number" binding:"required,max=50"`
	}
	if !h.bindQuery(c, &query) {
		return
	}

	payment, err := h.paymentService.GetPaymentByReceipt(c.Request.Context(), schoolID, query.ReceiptNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// ListPaymentsForFee godoc
//
//	@ID				listPaymentsForFee
//	@Summary		List payments of a fee record
//	@Tags			payments
//	@Produce		json
//	@Param			X-School-ID	header		string	true	"School ID"
//	@Param			id			path		string	true	"Fee record ID"	format(uuid)
//	@Success		200			{object}	APIResponse[[]ledgerapp.PaymentResponse]
//	@Failure		404			{object}	ErrorResponse
//	@Router			/fees/{id}/payments [get]
func (h *PaymentHandler) ListPaymentsForFee(c *gin.Context) {
	schoolID, _, ok := h.scope(c)
	if !ok {
		return
	}
	feeRecordID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	payments, err := h.paymentService.ListPaymentsForFee(c.Request.Context(), schoolID, feeRecordID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payments)
}
