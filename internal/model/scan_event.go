package model

import (
	"time"

	"github.com/google/uuid"
)

type ScanEvent struct {
	ID         int64      `db:"id" json:"id"`
	SellerID   uuid.UUID  `db:"seller_id" json:"seller_id"`
	ProductID  uuid.UUID  `db:"product_id" json:"product_id"`
	Token      string     `db:"token" json:"token"`
	SessionID  *uuid.UUID `db:"session_id" json:"session_id,omitempty"`
	VisitorRef *string    `db:"visitor_ref" json:"visitor_ref,omitempty"`
	ScannedAt  time.Time  `db:"scanned_at" json:"scanned_at"`
}
