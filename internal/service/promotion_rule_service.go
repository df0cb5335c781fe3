package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/topmuch/qrsell-sub001/internal/clock"
	"github.com/topmuch/qrsell-sub001/internal/event"
	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/pricing"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

const (
	ruleHeadlineMaxLength   = 140
	defaultMaxWindowMinutes = 7 * 24 * 60
	ruleTokenCreateAttempts = 3
)

type CreateRuleRequest struct {
	ProductID       string  `json:"product_id"`
	DiscountPercent int     `json:"discount_percent"`
	WindowMinutes   int     `json:"window_minutes"`
	Headline        *string `json:"headline"`
}

type PromotionRuleService struct {
	ruleRepo         repository.PromotionRuleRepository
	productRepo      repository.ProductRepository
	auditSvc         *AuditService
	bus              *event.Bus
	clock            clock.Clock
	maxWindowMinutes int
	logger           *zap.Logger
}

func NewPromotionRuleService(
	ruleRepo repository.PromotionRuleRepository,
	productRepo repository.ProductRepository,
	auditSvc *AuditService,
	bus *event.Bus,
	clk clock.Clock,
	maxWindowMinutes int,
	logger *zap.Logger,
) *PromotionRuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxWindowMinutes <= 0 {
		maxWindowMinutes = defaultMaxWindowMinutes
	}

	return &PromotionRuleService{
		ruleRepo:         ruleRepo,
		productRepo:      productRepo,
		auditSvc:         auditSvc,
		bus:              bus,
		clock:            clock.OrSystem(clk),
		maxWindowMinutes: maxWindowMinutes,
		logger:           logger,
	}
}

// Create registers a new rule for one of the seller's products. The headline
// is expected to be sanitised by the caller.
func (s *PromotionRuleService) Create(ctx context.Context, sellerID string, req CreateRuleRequest) (*model.PromotionRule, error) {
	sellerUUID, err := uuid.Parse(strings.TrimSpace(sellerID))
	if err != nil {
		return nil, ErrInvalidSellerID
	}
	if err := pricing.ValidateRuleDiscount(req.DiscountPercent); err != nil {
		return nil, err
	}
	if req.WindowMinutes <= 0 || req.WindowMinutes > s.maxWindowMinutes {
		return nil, ErrInvalidRuleInput
	}

	productID, err := uuid.Parse(strings.TrimSpace(req.ProductID))
	if err != nil {
		return nil, ErrInvalidRuleInput
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	if product.SellerID != sellerUUID {
		return nil, ErrProductNotFound
	}

	headline := trimStringPtr(req.Headline)
	if headline != nil && utf8.RuneCountInString(*headline) > ruleHeadlineMaxLength {
		return nil, ErrInvalidRuleInput
	}

	now := s.clock.Now()
	rule := &model.PromotionRule{
		SellerID:        sellerUUID,
		ProductID:       productID,
		DiscountPercent: req.DiscountPercent,
		WindowMinutes:   req.WindowMinutes,
		IsActive:        true,
		Headline:        headline,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for attempt := 0; attempt < ruleTokenCreateAttempts; attempt++ {
		rule.ID = uuid.New()
		rule.Token = newRuleToken()
		err = s.ruleRepo.Create(ctx, rule)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("create promotion rule: %w", err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create promotion rule: %w", err)
	}

	s.audit(ctx, sellerUUID, auditActionRuleCreate, rule.ID, map[string]model.AuditChange{
		"product_id":       {To: productID.String()},
		"discount_percent": {To: rule.DiscountPercent},
		"window_minutes":   {To: rule.WindowMinutes},
		"token":            {To: rule.Token},
	})

	return rule, nil
}

// SetActive toggles a rule. Deactivation stops new windows from opening but
// leaves any in-flight window untouched.
func (s *PromotionRuleService) SetActive(ctx context.Context, sellerID, ruleID string, active bool) (*model.PromotionRule, error) {
	sellerUUID, err := uuid.Parse(strings.TrimSpace(sellerID))
	if err != nil {
		return nil, ErrInvalidSellerID
	}
	ruleUUID, err := uuid.Parse(strings.TrimSpace(ruleID))
	if err != nil {
		return nil, ErrInvalidRuleID
	}

	rule, err := s.ruleRepo.FindByID(ctx, ruleUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("load promotion rule: %w", err)
	}
	if rule.SellerID != sellerUUID {
		return nil, ErrNotRuleOwner
	}
	if rule.IsActive == active {
		return rule, nil
	}

	now := s.clock.Now()
	if err := s.ruleRepo.SetActive(ctx, ruleUUID, active, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("update promotion rule: %w", err)
	}

	previous := rule.IsActive
	rule.IsActive = active
	rule.UpdatedAt = now

	s.audit(ctx, sellerUUID, auditActionRuleSetActive, rule.ID, map[string]model.AuditChange{
		"is_active": {From: previous, To: active},
	})
	if s.bus != nil {
		s.bus.Publish(event.EventPromotionRuleToggled, event.RuleToggledPayload{
			RuleID:   rule.ID.String(),
			SellerID: sellerUUID.String(),
			Active:   active,
		})
	}

	return rule, nil
}

func (s *PromotionRuleService) ListBySeller(ctx context.Context, sellerID string, page, pageSize int) ([]*model.PromotionRule, error) {
	sellerUUID, err := uuid.Parse(strings.TrimSpace(sellerID))
	if err != nil {
		return nil, ErrInvalidSellerID
	}

	return s.ruleRepo.ListBySeller(ctx, sellerUUID, pageWindow(page, pageSize))
}

func (s *PromotionRuleService) audit(
	ctx context.Context,
	sellerID uuid.UUID,
	action string,
	ruleID uuid.UUID,
	changes map[string]model.AuditChange,
) {
	if s.auditSvc == nil {
		return
	}

	if err := s.auditSvc.Log(ctx, AuditEntry{
		SellerID:   sellerID,
		Actor:      model.AuditActorSeller,
		Action:     action,
		Resource:   model.AuditResourceRule,
		ResourceID: ruleID,
		Changes:    changes,
		At:         s.clock.Now(),
	}); err != nil {
		s.logger.Warn("write promotion rule audit log failed",
			zap.String("rule_id", ruleID.String()),
			zap.Error(err),
		)
	}
}

// newRuleToken returns the opaque identifier printed into the QR code.
func newRuleToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
