package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/infrastructure/logger"
	"github.com/schoolledger/backend/internal/interfaces/http/dto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Gin context keys set by SchoolScope.
const (
	SchoolIDKey = logger.GinSchoolIDKey
	ActorKey    = logger.GinActorKey
)

// SchoolScope requires X-School-ID on every request it guards and resolves
// the acting party from X-Actor-ID / X-Actor-Kind. Without an actor header
// the request acts as the system actor; a bare X-Actor-ID means a staff user.
func SchoolScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		schoolID, err := uuid.Parse(strings.TrimSpace(c.GetHeader(HeaderSchoolID)))
		if err != nil || schoolID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeSchoolRequired,
				"A valid X-School-ID header is required",
				getRequestID(c),
			))
			return
		}

		actor, err := actorFromHeaders(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInvalidActor,
				err.Error(),
				getRequestID(c),
			))
			return
		}

		c.Set(SchoolIDKey, schoolID)
		c.Set(ActorKey, actor)

		ctx, reqLogger := logger.WithSchoolID(c.Request.Context(), logger.GetGinLogger(c), schoolID.String())
		ctx, reqLogger = logger.WithActor(ctx, reqLogger, actor.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(logger.GinLoggerKey, reqLogger)

		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(
				attribute.String("school_id", schoolID.String()),
				attribute.String("actor", actor.String()),
			)
		}

		c.Next()
	}
}

func actorFromHeaders(c *gin.Context) (shared.ActorRef, error) {
	rawID := strings.TrimSpace(c.GetHeader(HeaderActorID))
	kind := shared.ActorKind(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderActorKind))))

	if kind == shared.ActorKindSystem || (rawID == "" && kind == "") {
		return shared.SystemActor, nil
	}
	if kind == "" {
		kind = shared.ActorKindUser
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return shared.ActorRef{}, shared.NewDomainError(dto.ErrCodeInvalidActor, "X-Actor-ID must be a UUID")
	}
	actor := shared.ActorRef{Kind: kind, ID: id}
	if err := actor.Validate(); err != nil {
		return shared.ActorRef{}, err
	}
	return actor, nil
}

// GetSchoolID returns the school set by SchoolScope.
func GetSchoolID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(SchoolIDKey); exists {
		if id, ok := v.(uuid.UUID); ok && id != uuid.Nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

// GetActor returns the actor set by SchoolScope, or the system actor.
func GetActor(c *gin.Context) shared.ActorRef {
	if v, exists := c.Get(ActorKey); exists {
		if actor, ok := v.(shared.ActorRef); ok {
			return actor
		}
	}
	return shared.SystemActor
}
