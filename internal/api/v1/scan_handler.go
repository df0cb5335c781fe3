package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/topmuch/qrsell-sub001/internal/api/middleware"
	"github.com/topmuch/qrsell-sub001/internal/api/response"
	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/service"
	cryptoutil "github.com/topmuch/qrsell-sub001/pkg/crypto"
)

const (
	visitorCookieName   = "qrsell_visitor"
	visitorCookieMaxAge = 365 * 24 * 60 * 60
)

type ScanHandler struct {
	sessionService *service.PromotionSessionService
	visitorSecret  string
}

// ScanRouteConfig tunes the public scan endpoints.
type ScanRouteConfig struct {
	PerMinute int
	// VisitorSecret keys the visitor cookie digest. Scans are recorded
	// anonymously when it is empty.
	VisitorSecret string
}

type offerProduct struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	ImageURL *string   `json:"image_url,omitempty"`
}

type offerResponse struct {
	SessionID        *uuid.UUID         `json:"session_id,omitempty"`
	State            model.SessionState `json:"state"`
	SecondsRemaining int64              `json:"seconds_remaining"`
	FirstScanAt      *time.Time         `json:"first_scan_at,omitempty"`
	ExpiresAt        *time.Time         `json:"expires_at,omitempty"`
	Headline         *string            `json:"headline,omitempty"`
	Product          offerProduct       `json:"product"`
	BasePrice        int64              `json:"base_price"`
	DiscountPercent  int                `json:"discount_percent"`
	FinalPrice       int64              `json:"final_price"`
	Savings          int64              `json:"savings"`
}

func NewScanHandler(sessionService *service.PromotionSessionService, visitorSecret string) *ScanHandler {
	return &ScanHandler{sessionService: sessionService, visitorSecret: visitorSecret}
}

// RegisterScanRoutes mounts the public shopper endpoints. They are reached
// from a printed QR code, so no auth is applied.
func RegisterScanRoutes(group *gin.RouterGroup, sessionService *service.PromotionSessionService, cfg ScanRouteConfig) {
	if sessionService == nil {
		return
	}

	perMinute := cfg.PerMinute
	handler := NewScanHandler(sessionService, cfg.VisitorSecret)
	offers := group.Group("/p")
	offers.GET("/:token", middleware.RateLimit(middleware.RateLimitKeyIP, perMinute, time.Minute), handler.Scan)
	offers.GET("/:token/status", middleware.RateLimit(middleware.RateLimitKeyIP, perMinute*4, time.Minute), handler.Status)
}

// Scan opens or joins the countdown window for the scanned code.
func (h *ScanHandler) Scan(c *gin.Context) {
	view, err := h.sessionService.Scan(c.Request.Context(), service.ScanRequest{
		Token:      c.Param("token"),
		VisitorRef: h.visitorRef(c),
	})
	if err != nil {
		handlePromotionServiceError(c, err)
		return
	}

	response.Success(c, toOfferResponse(view))
}

// visitorRef returns the keyed digest of the visitor cookie, issuing the
// cookie on first contact.
func (h *ScanHandler) visitorRef(c *gin.Context) *string {
	raw, err := c.Cookie(visitorCookieName)
	if err != nil || strings.TrimSpace(raw) == "" {
		raw = uuid.NewString()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(visitorCookieName, raw, visitorCookieMaxAge, "/", "", c.Request.TLS != nil, true)
	}

	digest := cryptoutil.PseudonymizeVisitor(raw, h.visitorSecret)
	if digest == "" {
		return nil
	}
	return &digest
}

// Status is the polling endpoint used by the countdown; it never starts a
// window.
func (h *ScanHandler) Status(c *gin.Context) {
	view, err := h.sessionService.Quote(c.Request.Context(), c.Param("token"))
	if err != nil {
		handlePromotionServiceError(c, err)
		return
	}

	response.Success(c, toOfferResponse(view))
}

func toOfferResponse(view *service.PriceView) offerResponse {
	out := offerResponse{
		State:            view.State,
		SecondsRemaining: view.SecondsRemaining,
		Headline:         view.Rule.Headline,
		BasePrice:        view.Quote.BasePrice,
		DiscountPercent:  view.Quote.DiscountPercent,
		FinalPrice:       view.Quote.FinalPrice,
		Savings:          view.Quote.Savings,
	}
	if view.Product != nil {
		out.Product = offerProduct{
			ID:       view.Product.ID,
			Name:     view.Product.Name,
			ImageURL: view.Product.ImageURL,
		}
	}
	if view.Session != nil {
		sessionID := view.Session.ID
		firstScanAt := view.Session.FirstScanAt
		expiresAt := view.Session.ExpiresAt
		out.SessionID = &sessionID
		out.FirstScanAt = &firstScanAt
		out.ExpiresAt = &expiresAt
	}
	return out
}
