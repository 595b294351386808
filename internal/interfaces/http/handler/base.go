package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/infrastructure/logger"
	"github.com/schoolledger/backend/internal/interfaces/http/dto"
	"github.com/schoolledger/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID returns the id set by the RequestID middleware
func getRequestID(c *gin.Context) string {
	return c.GetString(logger.GinRequestIDKey)
}

// scope returns the school and actor resolved by middleware.SchoolScope.
// ok is false, and a 400 has been written, when the route is not scoped.
func (h *BaseHandler) scope(c *gin.Context) (uuid.UUID, shared.ActorRef, bool) {
	schoolID, ok := middleware.GetSchoolID(c)
	if !ok {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeSchoolRequired, "A valid X-School-ID header is required")
		return uuid.Nil, shared.ActorRef{}, false
	}
	return schoolID, middleware.GetActor(c), true
}

// pathUUID parses a UUID path parameter, writing a 400 when malformed
func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter
func (h *BaseHandler) queryUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return nil, false
	}
	return &id, true
}

// requiredQueryUUID parses a mandatory UUID query parameter
func (h *BaseHandler) requiredQueryUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, ok := h.queryUUID(c, name)
	if !ok {
		return uuid.Nil, false
	}
	if id == nil {
		h.ValidationError(c, []dto.ValidationDetail{{Field: name, Message: "This field is required"}})
		return uuid.Nil, false
	}
	return *id, true
}

// bindJSON binds the request body, writing a 400 on failure
func (h *BaseHandler) bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// bindQuery binds query parameters, writing a 400 on failure
func (h *BaseHandler) bindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// pageOrDefault mirrors the defaults the list services apply
func pageOrDefault(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.Set(middleware.ErrorCodeKey, code)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.Set(middleware.ErrorCodeKey, dto.ErrCodeValidation)
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		getRequestID(c),
		details,
	))
}

// HandleError writes err as a response. Domain errors keep their code and
// details; anything else is a 500 that is attached to the context for the
// error reporter and logged.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := statusForDomainError(domainErr)
		if status >= http.StatusInternalServerError {
			h.internalError(c, err, domainErr.Code)
			return
		}
		resp := dto.NewErrorResponseWithRequestID(domainErr.Code, domainErr.Message, getRequestID(c))
		if len(domainErr.Details) > 0 {
			resp.Error.Details = domainErr.Details
		}
		c.Set(middleware.ErrorCodeKey, domainErr.Code)
		c.JSON(status, resp)
		return
	}

	h.internalError(c, err, dto.ErrCodeInternal)
}

func (h *BaseHandler) internalError(c *gin.Context, err error, code string) {
	_ = c.Error(err)
	logger.GetGinLogger(c).Error("Request failed", zap.String("error_code", code), zap.Error(err))
	h.Error(c, http.StatusInternalServerError, code, "An unexpected error occurred")
}

// statusForDomainError prefers the per-code table and falls back to the error kind
func statusForDomainError(err *shared.DomainError) int {
	if status, ok := dto.GetHTTPStatus(err.Code); ok {
		return status
	}
	switch err.Kind {
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindConflict:
		return http.StatusConflict
	case shared.KindSystem:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
