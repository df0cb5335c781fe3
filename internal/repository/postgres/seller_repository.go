package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

type sellerRepository struct {
	pool *pgxpool.Pool
}

func NewSellerRepository(pool *pgxpool.Pool) repository.SellerRepository {
	return &sellerRepository{pool: pool}
}

var _ repository.SellerRepository = (*sellerRepository)(nil)

const sellerColumns = `
	id,
	display_name,
	whatsapp_number,
	featured_product_id,
	created_at,
	updated_at
`

func (r *sellerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Seller, error) {
	seller := &model.Seller{}
	err := r.pool.QueryRow(
		ctx,
		`SELECT `+sellerColumns+` FROM sellers WHERE id = $1`,
		id,
	).Scan(
		&seller.ID,
		&seller.DisplayName,
		&seller.WhatsAppNumber,
		&seller.FeaturedProductID,
		&seller.CreatedAt,
		&seller.UpdatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return seller, nil
}

func (r *sellerRepository) SetFeaturedProduct(
	ctx context.Context,
	id uuid.UUID,
	productID *uuid.UUID,
	updatedAt time.Time,
) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE sellers
		    SET featured_product_id = $2,
		        updated_at = $3
		  WHERE id = $1`,
		id,
		productID,
		updatedAt,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}
