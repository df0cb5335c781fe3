package v1

import (
	"crypto/rsa"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/topmuch/qrsell-sub001/internal/api/middleware"
	"github.com/topmuch/qrsell-sub001/internal/api/response"
	inputsanitize "github.com/topmuch/qrsell-sub001/internal/api/sanitize"
	"github.com/topmuch/qrsell-sub001/internal/service"
	jwtutil "github.com/topmuch/qrsell-sub001/pkg/jwt"
)

type PromotionHandler struct {
	ruleService *service.PromotionRuleService
}

type createPromotionRequest struct {
	ProductID       string  `json:"product_id" binding:"required"`
	DiscountPercent int     `json:"discount_percent"`
	WindowMinutes   int     `json:"window_minutes"`
	Headline        *string `json:"headline"`
}

type updatePromotionStatusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func NewPromotionHandler(ruleService *service.PromotionRuleService) *PromotionHandler {
	return &PromotionHandler{ruleService: ruleService}
}

// SellerGroup returns the authenticated seller route group.
func SellerGroup(group *gin.RouterGroup, publicKey *rsa.PublicKey) *gin.RouterGroup {
	seller := group.Group("/seller")
	seller.Use(middleware.JWTAuth(publicKey), middleware.RequireRole(jwtutil.RoleSeller))
	return seller
}

func RegisterPromotionRoutes(seller *gin.RouterGroup, ruleService *service.PromotionRuleService) {
	if ruleService == nil {
		return
	}

	handler := NewPromotionHandler(ruleService)
	promotions := seller.Group("/promotions")
	promotions.GET("", handler.List)
	promotions.POST("", middleware.RateLimit(middleware.RateLimitKeySeller, 30, time.Minute), handler.Create)
	promotions.PATCH("/:id/status", handler.UpdateStatus)
}

func (h *PromotionHandler) Create(c *gin.Context) {
	var req createPromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest, "invalid request")
		return
	}

	rule, err := h.ruleService.Create(c.Request.Context(), middleware.SellerID(c), service.CreateRuleRequest{
		ProductID:       req.ProductID,
		DiscountPercent: req.DiscountPercent,
		WindowMinutes:   req.WindowMinutes,
		Headline:        inputsanitize.HeadlinePtr(req.Headline),
	})
	if err != nil {
		handlePromotionServiceError(c, err)
		return
	}

	response.Created(c, rule)
}

func (h *PromotionHandler) List(c *gin.Context) {
	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)

	rules, err := h.ruleService.ListBySeller(c.Request.Context(), middleware.SellerID(c), page, pageSize)
	if err != nil {
		handlePromotionServiceError(c, err)
		return
	}

	response.Success(c, rules)
}

func (h *PromotionHandler) UpdateStatus(c *gin.Context) {
	var req updatePromotionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest, "invalid request")
		return
	}

	rule, err := h.ruleService.SetActive(c.Request.Context(), middleware.SellerID(c), c.Param("id"), *req.Active)
	if err != nil {
		handlePromotionServiceError(c, err)
		return
	}

	response.Success(c, rule)
}
