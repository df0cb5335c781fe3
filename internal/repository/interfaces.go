package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/topmuch/qrsell-sub001/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict reports that an insert lost a uniqueness race.
	ErrConflict = errors.New("record already exists")
)

type Pagination struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

// AuditListFilter always scopes to one seller. An empty Resource or nil
// ResourceID matches any.
type AuditListFilter struct {
	SellerID   uuid.UUID           `json:"seller_id"`
	Resource   model.AuditResource `json:"resource_type,omitempty"`
	ResourceID *uuid.UUID          `json:"resource_id,omitempty"`
	Since      *time.Time          `json:"since,omitempty"`
	Until      *time.Time          `json:"until,omitempty"`
	Pagination Pagination          `json:"pagination"`
}

type PromotionRuleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.PromotionRule, error)
	FindByToken(ctx context.Context, token string) (*model.PromotionRule, error)
	Create(ctx context.Context, rule *model.PromotionRule) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, updatedAt time.Time) error
	ListBySeller(ctx context.Context, sellerID uuid.UUID, page Pagination) ([]*model.PromotionRule, error)
	// ListActiveBySeller returns active rules, newest first.
	ListActiveBySeller(ctx context.Context, sellerID uuid.UUID) ([]*model.PromotionRule, error)
}

type ScanSessionRepository interface {
	FindLatestByToken(ctx context.Context, token string) (*model.ScanSession, error)
	FindByActivation(ctx context.Context, token string, seq int64) (*model.ScanSession, error)
	// Create inserts the session only if its (token, activation_seq) key is
	// free and returns ErrConflict otherwise.
	Create(ctx context.Context, session *model.ScanSession) error
	CountActive(ctx context.Context, now time.Time) (int64, error)
}

type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// ListBySeller returns the seller's catalog oldest first.
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*model.Product, error)
}

type SellerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Seller, error)
	SetFeaturedProduct(ctx context.Context, id uuid.UUID, productID *uuid.UUID, updatedAt time.Time) error
}

type ScanEventRepository interface {
	Record(ctx context.Context, event *model.ScanEvent) error
	CountByProductSince(ctx context.Context, sellerID uuid.UUID, since time.Time) (map[uuid.UUID]int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	List(ctx context.Context, filter AuditListFilter) ([]*model.AuditLog, error)
}
