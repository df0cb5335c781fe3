package api

import (
	"crypto/rsa"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/topmuch/qrsell-sub001/internal/api/middleware"
	v1 "github.com/topmuch/qrsell-sub001/internal/api/v1"
	"github.com/topmuch/qrsell-sub001/internal/service"
)

// Services bundles the handlers' collaborators. Nil services leave their
// routes unregistered.
type Services struct {
	Sessions *service.PromotionSessionService
	Rules    *service.PromotionRuleService
	Featured *service.FeaturedService
	Audit    *service.AuditService
	Ops      *v1.OpsHandler
}

type Options struct {
	JWTPublicKey       *rsa.PublicKey
	Internal           middleware.InternalAuthConfig
	ScanRateLimitPerIP int
	VisitorHashSecret  string
}

func RegisterRoutes(router *gin.Engine, services Services, opts Options) {
	if services.Ops != nil {
		v1.RegisterHealthRoutes(router, services.Ops)
	}

	apiV1 := router.Group("/api/v1")
	if services.Ops != nil {
		v1.RegisterHealthRoutes(apiV1, services.Ops)
	}

	seller := v1.SellerGroup(apiV1, opts.JWTPublicKey)
	v1.RegisterScanRoutes(apiV1, services.Sessions, v1.ScanRouteConfig{
		PerMinute:     opts.ScanRateLimitPerIP,
		VisitorSecret: opts.VisitorHashSecret,
	})
	v1.RegisterPromotionRoutes(seller, services.Rules)
	v1.RegisterFeaturedRoutes(apiV1, seller, services.Featured)
	v1.RegisterAuditRoutes(seller, services.Audit)

	RegisterInternalRoutes(router, services.Ops, opts.Internal)
}

// RegisterInternalRoutes exposes metrics and the log buffer to operators.
func RegisterInternalRoutes(router *gin.Engine, ops *v1.OpsHandler, auth middleware.InternalAuthConfig) {
	internal := router.Group("/internal")
	internal.Use(middleware.InternalTokenAuth(auth))
	internal.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if ops != nil {
		v1.RegisterOpsRoutes(internal, ops)
	}
}
