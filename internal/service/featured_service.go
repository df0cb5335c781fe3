package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/topmuch/qrsell-sub001/internal/clock"
	"github.com/topmuch/qrsell-sub001/internal/event"
	"github.com/topmuch/qrsell-sub001/internal/featured"
	"github.com/topmuch/qrsell-sub001/internal/metrics"
	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

const (
	defaultTrendingWindow    = 24 * time.Hour
	featuredPinAuditAction   = "featured.pin"
	featuredClearAuditAction = "featured.clear"
)

type FeaturedView struct {
	Product *model.Product  `json:"product"`
	Reason  featured.Reason `json:"reason"`
}

type FeaturedService struct {
	sellerRepo     repository.SellerRepository
	productRepo    repository.ProductRepository
	ruleRepo       repository.PromotionRuleRepository
	scanRepo       repository.ScanEventRepository
	auditSvc       *AuditService
	bus            *event.Bus
	clock          clock.Clock
	trendingWindow time.Duration
	logger         *zap.Logger
}

func NewFeaturedService(
	sellerRepo repository.SellerRepository,
	productRepo repository.ProductRepository,
	ruleRepo repository.PromotionRuleRepository,
	scanRepo repository.ScanEventRepository,
	auditSvc *AuditService,
	bus *event.Bus,
	clk clock.Clock,
	trendingWindow time.Duration,
	logger *zap.Logger,
) *FeaturedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if trendingWindow <= 0 {
		trendingWindow = defaultTrendingWindow
	}

	return &FeaturedService{
		sellerRepo:     sellerRepo,
		productRepo:    productRepo,
		ruleRepo:       ruleRepo,
		scanRepo:       scanRepo,
		auditSvc:       auditSvc,
		bus:            bus,
		clock:          clock.OrSystem(clk),
		trendingWindow: trendingWindow,
		logger:         logger,
	}
}

// Resolve picks the product shown on the seller's bio page. It returns nil
// when the seller has no products.
func (s *FeaturedService) Resolve(ctx context.Context, sellerID string) (*FeaturedView, error) {
	sellerUUID, err := uuid.Parse(strings.TrimSpace(sellerID))
	if err != nil {
		return nil, ErrInvalidSellerID
	}

	seller, err := s.sellerRepo.FindByID(ctx, sellerUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSellerNotFound
		}
		return nil, fmt.Errorf("load seller: %w", err)
	}

	products, err := s.productRepo.ListBySeller(ctx, sellerUUID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		metrics.IncFeaturedSelection("")
		return nil, nil
	}

	rules, err := s.ruleRepo.ListActiveBySeller(ctx, sellerUUID)
	if err != nil {
		return nil, fmt.Errorf("list active promotions: %w", err)
	}

	var counts map[uuid.UUID]int64
	if s.scanRepo != nil {
		since := s.clock.Now().Add(-s.trendingWindow)
		counts, err = s.scanRepo.CountByProductSince(ctx, sellerUUID, since)
		if err != nil {
			return nil, fmt.Errorf("count recent scans: %w", err)
		}
	}

	in := featured.Input{
		ManualOverride:   seller.FeaturedProductID,
		ActivePromotions: make([]featured.Promotion, 0, len(rules)),
		RecentScanCounts: counts,
		AllProducts:      make([]featured.Product, 0, len(products)),
	}
	for _, rule := range rules {
		in.ActivePromotions = append(in.ActivePromotions, featured.Promotion{
			RuleID:    rule.ID,
			ProductID: rule.ProductID,
			CreatedAt: rule.CreatedAt,
		})
	}
	byID := make(map[uuid.UUID]*model.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
		in.AllProducts = append(in.AllProducts, featured.Product{ID: product.ID, CreatedAt: product.CreatedAt})
	}

	result := featured.Select(in)
	if result == nil {
		metrics.IncFeaturedSelection("")
		return nil, nil
	}

	metrics.IncFeaturedSelection(string(result.Reason))
	return &FeaturedView{Product: byID[result.ProductID], Reason: result.Reason}, nil
}

func (s *FeaturedService) SetManualPin(ctx context.Context, sellerID, productID string) error {
	sellerUUID, err := uuid.Parse(strings.TrimSpace(sellerID))
	if err != nil {
		return ErrInvalidSellerID
	}
	productUUID, err := uuid.Parse(strings.TrimSpace(productID))
	if err != nil {
		return ErrProductNotFound
	}

	product, err := s.productRepo.FindByID(ctx, productUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("load product: %w", err)
	}
	if product.SellerID != sellerUUID {
		return ErrProductNotFound
	}

	return s.updatePin(ctx, sellerUUID, &productUUID)
}

func (s *FeaturedService) ClearManualPin(ctx context.Context, sellerID string) error {
	sellerUUID, err := uuid.Parse(strings.TrimSpace(sellerID))
	if err != nil {
		return ErrInvalidSellerID
	}
	return s.updatePin(ctx, sellerUUID, nil)
}

func (s *FeaturedService) updatePin(ctx context.Context, sellerID uuid.UUID, productID *uuid.UUID) error {
	seller, err := s.sellerRepo.FindByID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSellerNotFound
		}
		return fmt.Errorf("load seller: %w", err)
	}

	if err := s.sellerRepo.SetFeaturedProduct(ctx, sellerID, productID, s.clock.Now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSellerNotFound
		}
		return fmt.Errorf("update featured product: %w", err)
	}

	action := featuredClearAuditAction
	change := model.AuditChange{}
	var pinned *string
	if productID != nil {
		action = featuredPinAuditAction
		text := productID.String()
		pinned = &text
		change.To = text
	}
	if seller.FeaturedProductID != nil {
		change.From = seller.FeaturedProductID.String()
	}

	if s.auditSvc != nil {
		if err := s.auditSvc.Log(ctx, AuditEntry{
			SellerID:   sellerID,
			Actor:      model.AuditActorSeller,
			Action:     action,
			Resource:   model.AuditResourceSeller,
			ResourceID: sellerID,
			Changes:    map[string]model.AuditChange{"featured_product_id": change},
			At:         s.clock.Now(),
		}); err != nil {
			s.logger.Warn("write featured audit log failed", zap.Error(err))
		}
	}
	if s.bus != nil {
		s.bus.Publish(event.EventFeaturedPinChanged, event.FeaturedPinPayload{
			SellerID:  sellerID.String(),
			ProductID: pinned,
		})
	}
	return nil
}
