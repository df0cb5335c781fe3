package model

import (
	"time"

	"github.com/google/uuid"
)

type Seller struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	DisplayName       string     `db:"display_name" json:"display_name"`
	WhatsAppNumber    *string    `db:"whatsapp_number" json:"whatsapp_number,omitempty"`
	FeaturedProductID *uuid.UUID `db:"featured_product_id" json:"featured_product_id,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}
