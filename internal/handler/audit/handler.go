package audit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/meditrack/hospital-api/internal/handler"
	"github.com/meditrack/hospital-api/internal/middleware"
	"github.com/meditrack/hospital-api/internal/model"
	"github.com/meditrack/hospital-api/internal/repository"
)

type Handler struct {
	audit repository.AuditRepository
}

func NewHandler(audit repository.AuditRepository) *Handler {
	return &Handler{audit: audit}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.GET("/audit/:entityType/:entityId", auth.RequireRole(model.RoleAdmin), h.ListForEntity)
}

// ListForEntity returns the audit trail for one entity, newest first.
func (h *Handler) ListForEntity(c *gin.Context) {
	entityID, err := uuid.Parse(c.Param("entityId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid entity ID"))
		return
	}

	logs, err := h.audit.List(c.Request.Context(), c.Param("entityType"), entityID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewListResponse(logs, len(logs)))
}
