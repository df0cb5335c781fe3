package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/topmuch/qrsell-sub001/internal/api/middleware"
	"github.com/topmuch/qrsell-sub001/internal/api/response"
	"github.com/topmuch/qrsell-sub001/internal/service"
)

type AuditHandler struct {
	auditService *service.AuditService
}

func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func RegisterAuditRoutes(seller *gin.RouterGroup, auditService *service.AuditService) {
	if auditService == nil {
		return
	}

	handler := NewAuditHandler(auditService)
	seller.GET("/audit-logs", handler.List)
	seller.GET("/promotions/:id/audit-logs", handler.RuleHistory)
}

// List returns the caller's own audit trail.
func (h *AuditHandler) List(c *gin.Context) {
	sellerID := middleware.SellerID(c)
	if sellerID == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)

	filter := service.AuditFilter{
		Resource:   strings.TrimSpace(c.Query("resource_type")),
		ResourceID: strings.TrimSpace(c.Query("resource_id")),
	}

	from, err := parseQueryTime(c.Query("from"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest, "invalid from")
		return
	}
	if !from.IsZero() {
		filter.From = &from
	}
	to, err := parseQueryTime(c.Query("to"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest, "invalid to")
		return
	}
	if !to.IsZero() {
		filter.To = &to
	}

	items, err := h.auditService.List(c.Request.Context(), sellerID, filter, page, pageSize)
	if err != nil {
		handlePromotionServiceError(c, err)
		return
	}

	response.Success(c, items)
}

// RuleHistory returns the trail of one of the caller's promotion rules.
func (h *AuditHandler) RuleHistory(c *gin.Context) {
	sellerID := middleware.SellerID(c)
	if sellerID == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)

	items, err := h.auditService.RuleHistory(c.Request.Context(), sellerID, c.Param("id"), page, pageSize)
	if err != nil {
		handlePromotionServiceError(c, err)
		return
	}

	response.Success(c, items)
}
