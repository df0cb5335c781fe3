package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/topmuch/qrsell-sub001/internal/event"
	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

const (
	auditActionRuleCreate    = "promotion_rule.create"
	auditActionRuleSetActive = "promotion_rule.set_active"
)

var (
	ErrInvalidAuditInput = errors.New("invalid audit input")
)

// AuditEntry is one change to a seller-owned resource.
type AuditEntry struct {
	SellerID   uuid.UUID
	Actor      model.AuditActor
	Action     string
	Resource   model.AuditResource
	ResourceID uuid.UUID
	Changes    map[string]model.AuditChange
	At         time.Time
}

// AuditFilter narrows a seller's trail. Resource and ResourceID are raw query
// values; an empty string means no filter.
type AuditFilter struct {
	Resource   string
	ResourceID string
	From       *time.Time
	To         *time.Time
}

type AuditService struct {
	auditRepo repository.AuditRepository
	logger    *zap.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	if s.auditRepo == nil {
		return errors.New("audit repository is nil")
	}

	action := strings.TrimSpace(entry.Action)
	if action == "" || entry.SellerID == uuid.Nil || entry.ResourceID == uuid.Nil || !entry.Resource.Valid() {
		return ErrInvalidAuditInput
	}

	actor := entry.Actor
	if actor == "" {
		actor = model.AuditActorSeller
	}
	at := entry.At.UTC()
	if at.IsZero() {
		at = time.Now().UTC()
	}

	return s.auditRepo.Create(ctx, &model.AuditLog{
		SellerID:   entry.SellerID,
		Actor:      actor,
		Action:     action,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
		Changes:    entry.Changes,
		CreatedAt:  at,
	})
}

// List returns sellerID's audit trail, newest first.
func (s *AuditService) List(
	ctx context.Context,
	sellerID string,
	filter AuditFilter,
	page, pageSize int,
) ([]*model.AuditLog, error) {
	if s.auditRepo == nil {
		return nil, errors.New("audit repository is nil")
	}

	sellerUUID, err := uuid.Parse(strings.TrimSpace(sellerID))
	if err != nil {
		return nil, ErrInvalidSellerID
	}

	repoFilter := repository.AuditListFilter{
		SellerID:   sellerUUID,
		Since:      filter.From,
		Until:      filter.To,
		Pagination: pageWindow(page, pageSize),
	}
	if resource := strings.TrimSpace(filter.Resource); resource != "" {
		repoFilter.Resource = model.AuditResource(resource)
		if !repoFilter.Resource.Valid() {
			return nil, ErrInvalidAuditInput
		}
	}
	if resourceID := strings.TrimSpace(filter.ResourceID); resourceID != "" {
		parsed, err := uuid.Parse(resourceID)
		if err != nil {
			return nil, ErrInvalidAuditInput
		}
		repoFilter.ResourceID = &parsed
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, ErrInvalidAuditInput
	}

	return s.auditRepo.List(ctx, repoFilter)
}

// RuleHistory returns the changes made to one promotion rule.
func (s *AuditService) RuleHistory(ctx context.Context, sellerID, ruleID string, page, pageSize int) ([]*model.AuditLog, error) {
	if _, err := uuid.Parse(strings.TrimSpace(ruleID)); err != nil {
		return nil, ErrInvalidRuleID
	}
	return s.List(ctx, sellerID, AuditFilter{
		Resource:   string(model.AuditResourceRule),
		ResourceID: ruleID,
	}, page, pageSize)
}

// Subscribe records activations published on bus. Activations are made by
// shoppers, so they land in the owning seller's trail under the session.
func (s *AuditService) Subscribe(bus *event.Bus) {
	if bus == nil {
		return
	}

	bus.Subscribe(event.EventPromotionActivated, func(payload any) {
		activated, ok := payload.(event.PromotionActivatedPayload)
		if !ok {
			return
		}
		sellerID, errSeller := uuid.Parse(activated.SellerID)
		sessionID, errSession := uuid.Parse(activated.SessionID)
		if errSeller != nil || errSession != nil {
			s.logger.Warn("skip activation audit with malformed ids",
				zap.String("seller_id", activated.SellerID),
				zap.String("session_id", activated.SessionID),
			)
			return
		}
		err := s.Log(context.Background(), AuditEntry{
			SellerID:   sellerID,
			Actor:      model.AuditActorShopper,
			Action:     event.EventPromotionActivated,
			Resource:   model.AuditResourceSession,
			ResourceID: sessionID,
			Changes: map[string]model.AuditChange{
				"rule_id":        {To: activated.RuleID},
				"activation_seq": {To: activated.ActivationSeq},
				"expires_at":     {To: activated.ExpiresAt.UTC()},
			},
			At: activated.FirstScanAt,
		})
		if err != nil {
			s.logger.Warn("audit promotion activation failed", zap.Error(err))
		}
	})
}
