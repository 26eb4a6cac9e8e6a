package handlers

import (
	"log"
	"net/http"

	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuditHandler struct {
	db           *gorm.DB
	auditService services.AuditService
}

func NewAuditHandler(db *gorm.DB, auditService services.AuditService) *AuditHandler {
	return &AuditHandler{db: db, auditService: auditService}
}

// GetAuditLogs returns the full trail, newest first. The route sits behind
// the admin-only middleware; the role is re-checked here so the store is
// never queried for a non-admin even if the route wiring changes.
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}
	if !actor.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"message": "Admin access required"})
		return
	}

	logs, err := h.auditService.ListLogs(h.db)
	if err != nil {
		log.Printf("audit log listing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch audit logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
