package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

type productRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) repository.ProductRepository {
	return &productRepository{pool: pool}
}

var _ repository.ProductRepository = (*productRepository)(nil)

const productColumns = `
	id,
	seller_id,
	name,
	price,
	image_url,
	created_at
`

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return product, nil
}

func (r *productRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*model.Product, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+productColumns+`
		   FROM products
		  WHERE seller_id = $1
		  ORDER BY created_at ASC, id ASC`,
		sellerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]*model.Product, 0)
	for rows.Next() {
		item, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func scanProduct(src scanTarget) (*model.Product, error) {
	product := &model.Product{}
	err := src.Scan(
		&product.ID,
		&product.SellerID,
		&product.Name,
		&product.Price,
		&product.ImageURL,
		&product.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}
