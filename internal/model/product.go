package model

import (
	"time"

	"github.com/google/uuid"
)

// Product is owned by the catalog service; only the fields the promotion core
// reads are mapped here.
type Product struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SellerID  uuid.UUID `db:"seller_id" json:"seller_id"`
	Name      string    `db:"name" json:"name"`
	Price     int64     `db:"price" json:"price"`
	ImageURL  *string   `db:"image_url" json:"image_url,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
