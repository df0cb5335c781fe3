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
	"github.com/topmuch/qrsell-sub001/internal/metrics"
	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/pricing"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

const (
	activationMaxAttempts = 5
	scanOutcomeActivated  = "activated"
	scanOutcomeJoined     = "joined"
	scanOutcomeNotFound   = "not_found"
	scanOutcomeError      = "error"
)

type SessionView struct {
	Session          *model.ScanSession   `json:"session,omitempty"`
	Rule             *model.PromotionRule `json:"rule"`
	State            model.SessionState   `json:"state"`
	SecondsRemaining int64                `json:"seconds_remaining"`
	// Created is true only for the caller whose insert opened the window.
	Created bool `json:"-"`
}

type PriceView struct {
	SessionView
	Product *model.Product `json:"product"`
	Quote   pricing.Quote  `json:"quote"`
}

type ScanRequest struct {
	Token      string
	VisitorRef *string
}

type PromotionSessionService struct {
	ruleRepo    repository.PromotionRuleRepository
	sessionRepo repository.ScanSessionRepository
	productRepo repository.ProductRepository
	scanRepo    repository.ScanEventRepository
	bus         *event.Bus
	clock       clock.Clock
	logger      *zap.Logger
}

func NewPromotionSessionService(
	ruleRepo repository.PromotionRuleRepository,
	sessionRepo repository.ScanSessionRepository,
	productRepo repository.ProductRepository,
	scanRepo repository.ScanEventRepository,
	bus *event.Bus,
	clk clock.Clock,
	logger *zap.Logger,
) *PromotionSessionService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PromotionSessionService{
		ruleRepo:    ruleRepo,
		sessionRepo: sessionRepo,
		productRepo: productRepo,
		scanRepo:    scanRepo,
		bus:         bus,
		clock:       clock.OrSystem(clk),
		logger:      logger,
	}
}

// ResolveOrCreate returns the open window for token, opening a new one when
// there is none. Concurrent callers for the same token converge on a single
// session.
func (s *PromotionSessionService) ResolveOrCreate(ctx context.Context, token string) (*SessionView, error) {
	started := time.Now()
	defer func() {
		metrics.ObserveResolveDuration(time.Since(started))
	}()

	rule, err := s.findRule(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	latest, err := s.findLatest(ctx, rule.Token)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.StateAt(now) == model.SessionStateActive {
		return newSessionView(rule, latest, now, false), nil
	}
	if !rule.IsActive {
		return nil, ErrRuleNotFound
	}

	nextSeq := int64(1)
	if latest != nil {
		nextSeq = latest.ActivationSeq + 1
	}

	for attempt := 0; attempt < activationMaxAttempts; attempt++ {
		candidate := &model.ScanSession{
			ID:            uuid.New(),
			Token:         rule.Token,
			RuleID:        rule.ID,
			ActivationSeq: nextSeq,
			FirstScanAt:   now,
			ExpiresAt:     now.Add(rule.Window()),
			CreatedAt:     now,
		}

		err := s.sessionRepo.Create(ctx, candidate)
		if err == nil {
			metrics.IncActivation()
			s.publishActivated(rule, candidate)
			return newSessionView(rule, candidate, now, true), nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("create scan session: %w", err)
		}

		metrics.IncActivationConflict()
		winner, findErr := s.sessionRepo.FindByActivation(ctx, rule.Token, nextSeq)
		if findErr != nil && !errors.Is(findErr, repository.ErrNotFound) {
			return nil, fmt.Errorf("load winning scan session: %w", findErr)
		}
		if winner != nil {
			// A winner that has already expired means the clock moved past a
			// whole window while we raced; open the next one instead.
			if winner.StateAt(now) == model.SessionStateActive {
				return newSessionView(rule, winner, now, false), nil
			}
			nextSeq = winner.ActivationSeq + 1
		}
	}

	// Every attempt lost to another writer, so someone opened a window.
	latest, err = s.findLatest(ctx, rule.Token)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.StateAt(now) == model.SessionStateActive {
		return newSessionView(rule, latest, now, false), nil
	}

	s.logger.Warn("activation retries exhausted",
		zap.String("rule_id", rule.ID.String()),
		zap.Int64("activation_seq", nextSeq),
	)
	return nil, ErrActivationRetry
}

// Status reports the current window without ever opening one.
func (s *PromotionSessionService) Status(ctx context.Context, token string) (*SessionView, error) {
	rule, err := s.findRule(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	latest, err := s.findLatest(ctx, rule.Token)
	if err != nil {
		return nil, err
	}

	switch {
	case latest != nil && latest.StateAt(now) == model.SessionStateActive:
		return newSessionView(rule, latest, now, false), nil
	case !rule.IsActive:
		return nil, ErrRuleNotFound
	case latest == nil:
		return newSessionView(rule, nil, now, false), nil
	default:
		return nil, ErrWindowExpired
	}
}

// Quote prices the rule's product against the current window. It never
// opens a window, so a token without an active window yields the same errors
// as Status.
func (s *PromotionSessionService) Quote(ctx context.Context, token string) (*PriceView, error) {
	view, err := s.Status(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.priceView(ctx, view)
}

// Scan is the landing flow for a physical QR scan.
func (s *PromotionSessionService) Scan(ctx context.Context, req ScanRequest) (*PriceView, error) {
	view, err := s.ResolveOrCreate(ctx, req.Token)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			metrics.IncScan(scanOutcomeNotFound)
		} else {
			metrics.IncScan(scanOutcomeError)
		}
		return nil, err
	}

	if view.Created {
		metrics.IncScan(scanOutcomeActivated)
	} else {
		metrics.IncScan(scanOutcomeJoined)
	}
	s.recordScan(ctx, view, req.VisitorRef)

	return s.priceView(ctx, view)
}

func (s *PromotionSessionService) priceView(ctx context.Context, view *SessionView) (*PriceView, error) {
	product, err := s.productRepo.FindByID(ctx, view.Rule.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	quote, err := pricing.NewQuote(product.Price, view.Rule.DiscountPercent)
	if err != nil {
		return nil, err
	}

	return &PriceView{SessionView: *view, Product: product, Quote: quote}, nil
}

func (s *PromotionSessionService) recordScan(ctx context.Context, view *SessionView, visitorRef *string) {
	if s.scanRepo == nil {
		return
	}

	item := &model.ScanEvent{
		SellerID:   view.Rule.SellerID,
		ProductID:  view.Rule.ProductID,
		Token:      view.Rule.Token,
		VisitorRef: trimStringPtr(visitorRef),
		ScannedAt:  s.clock.Now(),
	}
	if view.Session != nil {
		sessionID := view.Session.ID
		item.SessionID = &sessionID
	}

	if err := s.scanRepo.Record(ctx, item); err != nil {
		s.logger.Warn("record scan event failed",
			zap.String("token", view.Rule.Token),
			zap.Error(err),
		)
	}
}

func (s *PromotionSessionService) publishActivated(rule *model.PromotionRule, session *model.ScanSession) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.EventPromotionActivated, event.PromotionActivatedPayload{
		SessionID:     session.ID.String(),
		RuleID:        rule.ID.String(),
		SellerID:      rule.SellerID.String(),
		Token:         rule.Token,
		ActivationSeq: session.ActivationSeq,
		FirstScanAt:   session.FirstScanAt,
		ExpiresAt:     session.ExpiresAt,
	})
}

func (s *PromotionSessionService) findRule(ctx context.Context, token string) (*model.PromotionRule, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, ErrRuleNotFound
	}

	rule, err := s.ruleRepo.FindByToken(ctx, trimmed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("load promotion rule: %w", err)
	}
	return rule, nil
}

func (s *PromotionSessionService) findLatest(ctx context.Context, token string) (*model.ScanSession, error) {
	latest, err := s.sessionRepo.FindLatestByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest scan session: %w", err)
	}
	return latest, nil
}

func newSessionView(rule *model.PromotionRule, session *model.ScanSession, now time.Time, created bool) *SessionView {
	return &SessionView{
		Session:          session,
		Rule:             rule,
		State:            session.StateAt(now),
		SecondsRemaining: session.SecondsRemainingAt(now),
		Created:          created,
	}
}

func trimStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
