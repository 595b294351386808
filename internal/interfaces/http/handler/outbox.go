package handler

import (
	"github.com/gin-gonic/gin"
)

// OutboxHandler exposes event delivery state to operators. Outbox entries of
// every school are visible, so these routes are not school scoped.
type OutboxHandler struct {
	BaseHandler
	outboxService OutboxService
}

// NewOutboxHandler creates a new OutboxHandler
func NewOutboxHandler(outboxService OutboxService) *OutboxHandler {
	return &OutboxHandler{
		outboxService: outboxService,
	}
}

// DeadLetterQuery pages the dead letter list
type DeadLetterQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetStats godoc
//
//	@ID				getOutboxStats
//	@Summary		Outbox statistics
//	@Description	Count outbox entries per delivery status
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	APIResponse[eventapp.OutboxStatsDTO]
//	@Failure		500	{object}	ErrorResponse
//	@Router			/system/outbox/stats [get]
func (h *OutboxHandler) GetStats(c *gin.Context) {
	stats, err := h.outboxService.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// ListDeadLetters godoc
//
//	@ID				listOutboxDeadLetters
//	@Summary		List dead letters
//	@Description	List events whose delivery exhausted every retry
//	@Tags			system
//	@Produce		json
//	@Param			page		query		int	false	"Page number"	minimum(1)
//	@Param			page_size	query		int	false	"Page size"		minimum(1)	maximum(100)
//	@Success		200			{object}	APIResponse[[]eventapp.OutboxEntryDTO]
//	@Failure		400			{object}	ErrorResponse
//	@Router			/system/outbox/dead-letters [get]
func (h *OutboxHandler) ListDeadLetters(c *gin.Context) {
	var query DeadLetterQuery
	if !h.bindQuery(c, &query) {
		return
	}

	result, err := h.outboxService.ListDeadLetters(c.Request.Context(), query.Page, query.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Entries, result.Total, result.Page, result.PageSize)
}

// GetEntry godoc
//
//	@ID				getOutboxEntry
//	@Summary		Get outbox entry
//	@Tags			system
//	@Produce		json
//	@Param			id	path		string	true	"Outbox entry ID"	format(uuid)
//	@Success		200	{object}	APIResponse[eventapp.OutboxEntryDTO]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/system/outbox/{id} [get]
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	entry, err := h.outboxService.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryDeadLetter godoc
//
//	@ID				retryOutboxDeadLetter
//	@Summary		Retry dead letter
//	@Description	Move one dead letter back to pending for redelivery
//	@Tags			system
//	@Produce		json
//	@Param			id	path		string	true	"Outbox entry ID"	format(uuid)
//	@Success		200	{object}	APIResponse[eventapp.OutboxEntryDTO]
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Router			/system/outbox/{id}/retry [post]
func (h *OutboxHandler) RetryDeadLetter(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	entry, err := h.outboxService.RetryDeadLetter(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAllDeadLetters godoc
//
//	@ID				retryAllOutboxDeadLetters
//	@Summary		Retry all dead letters
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	APIResponse[eventapp.RetryAllResult]
//	@Failure		500	{object}	ErrorResponse
//	@Router			/system/outbox/dead-letters/retry [post]
func (h *OutboxHandler) RetryAllDeadLetters(c *gin.Context) {
	result, err := h.outboxService.RetryAllDeadLetters(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
