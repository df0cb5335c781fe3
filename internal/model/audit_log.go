package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditResource names what an audit entry is about.
type AuditResource string

const (
	AuditResourceRule    AuditResource = "promotion_rule"
	AuditResourceSession AuditResource = "scan_session"
	AuditResourceSeller  AuditResource = "seller"
)

func (r AuditResource) Valid() bool {
	switch r {
	case AuditResourceRule, AuditResourceSession, AuditResourceSeller:
		return true
	default:
		return false
	}
}

// AuditActor tells a seller's own change apart from a window opened by a
// shopper's scan.
type AuditActor string

const (
	AuditActorSeller  AuditActor = "seller"
	AuditActorShopper AuditActor = "shopper"
)

// AuditChange is one field's transition. From is nil for creations.
type AuditChange struct {
	From any `json:"from,omitempty"`
	To   any `json:"to,omitempty"`
}

// AuditLog is one entry in a seller's promotion history. Every entry belongs
// to exactly one seller.
type AuditLog struct {
	ID         int64                  `db:"id" json:"id"`
	SellerID   uuid.UUID              `db:"seller_id" json:"seller_id"`
	Actor      AuditActor             `db:"actor" json:"actor"`
	Action     string                 `db:"action" json:"action"`
	Resource   AuditResource          `db:"resource_type" json:"resource_type"`
	ResourceID uuid.UUID              `db:"resource_id" json:"resource_id"`
	Changes    map[string]AuditChange `db:"changes" json:"changes,omitempty"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
}
