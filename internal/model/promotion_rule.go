package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinRuleDiscountPercent = 5
	MaxRuleDiscountPercent = 90
)

type PromotionRule struct {
	ID              uuid.UUID `db:"id" json:"id"`
	SellerID        uuid.UUID `db:"seller_id" json:"seller_id"`
	Token           string    `db:"token" json:"token"`
	ProductID       uuid.UUID `db:"product_id" json:"product_id"`
	DiscountPercent int       `db:"discount_percent" json:"discount_percent"`
	WindowMinutes   int       `db:"window_minutes" json:"window_minutes"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	Headline        *string   `db:"headline" json:"headline,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Window is the countdown length granted to each activation of the rule.
func (r *PromotionRule) Window() time.Duration {
	if r == nil || r.WindowMinutes <= 0 {
		return 0
	}
	return time.Duration(r.WindowMinutes) * time.Minute
}
