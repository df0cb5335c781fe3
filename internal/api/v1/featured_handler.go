package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/topmuch/qrsell-sub001/internal/api/middleware"
	"github.com/topmuch/qrsell-sub001/internal/api/response"
	"github.com/topmuch/qrsell-sub001/internal/service"
)

type FeaturedHandler struct {
	featuredService *service.FeaturedService
}

type setFeaturedRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

func NewFeaturedHandler(featuredService *service.FeaturedService) *FeaturedHandler {
	return &FeaturedHandler{featuredService: featuredService}
}

func RegisterFeaturedRoutes(group, seller *gin.RouterGroup, featuredService *service.FeaturedService) {
	if featuredService == nil {
		return
	}

	handler := NewFeaturedHandler(featuredService)
	group.GET("/bio/:seller_id/featured", middleware.RateLimit(middleware.RateLimitKeyIP, 120, time.Minute), handler.Get)
	if seller != nil {
		seller.PUT("/featured", handler.Pin)
		seller.DELETE("/featured", handler.Clear)
	}
}

// Get resolves the bio-link product. A seller without products yields
// success with no data.
func (h *FeaturedHandler) Get(c *gin.Context) {
	view, err := h.featuredService.Resolve(c.Request.Context(), c.Param("seller_id"))
	if err != nil {
		handlePromotionServiceError(c, err)
		return
	}
	if view == nil {
		response.Success(c, nil)
		return
	}
	response.Success(c, view)
}

func (h *FeaturedHandler) Pin(c *gin.Context) {
	var req setFeaturedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest, "invalid request")
		return
	}

	if err := h.featuredService.SetManualPin(c.Request.Context(), middleware.SellerID(c), req.ProductID); err != nil {
		handlePromotionServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"featured_product_id": req.ProductID})
}

func (h *FeaturedHandler) Clear(c *gin.Context) {
	if err := h.featuredService.ClearManualPin(c.Request.Context(), middleware.SellerID(c)); err != nil {
		handlePromotionServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"cleared": true})
}
