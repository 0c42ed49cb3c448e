package handler

import (
	"net/http"

	"stockreport/internal/middleware"
	"stockreport/internal/model"
	"stockreport/internal/service"
	"stockreport/pkg/pagination"
	"stockreport/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	requireAuth  gin.HandlerFunc
}

func NewAuditHandler(auditService service.AuditService, requireAuth gin.HandlerFunc) *AuditHandler {
	return &AuditHandler{auditService: auditService, requireAuth: requireAuth}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs")
	group.Use(h.requireAuth, middleware.RequireRole(model.RoleOfficial))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs handles GET /api/audit-logs
// @Summary      Get audit logs
// @Description  Product additions and removals and report deletions, newest first
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	page := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), page)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  page.Page,
		"limit": page.Limit,
	}))
}
