package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

// Catalog data (sellers and products) is owned by an external service in
// production. PutSeller and PutProduct let development setups and tests seed it.

func (s *Store) PutSeller(seller model.Seller) error {
	if seller.ID == uuid.Nil {
		seller.ID = uuid.New()
	}
	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableSellers, &sellerRecord{Key: seller.ID.String(), Seller: seller}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (s *Store) PutProduct(product model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableProducts, &productRecord{
		Key:       product.ID.String(),
		SellerKey: product.SellerID.String(),
		Product:   product,
	}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

type productRepository struct {
	store *Store
}

func NewProductRepository(store *Store) repository.ProductRepository {
	return &productRepository{store: store}
}

var _ repository.ProductRepository = (*productRepository)(nil)

func (r *productRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableProducts, "id", id.String())
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	product := raw.(*productRecord).Product
	return &product, nil
}

func (r *productRepository) ListBySeller(_ context.Context, sellerID uuid.UUID) ([]*model.Product, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableProducts, "seller", sellerID.String())
	if err != nil {
		return nil, err
	}

	products := make([]*model.Product, 0)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		product := raw.(*productRecord).Product
		products = append(products, &product)
	}
	sort.Slice(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.Before(products[j].CreatedAt)
		}
		return products[i].ID.String() < products[j].ID.String()
	})
	return products, nil
}

type sellerRepository struct {
	store *Store
}

func NewSellerRepository(store *Store) repository.SellerRepository {
	return &sellerRepository{store: store}
}

var _ repository.SellerRepository = (*sellerRepository)(nil)

func (r *sellerRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Seller, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableSellers, "id", id.String())
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	seller := raw.(*sellerRecord).Seller
	return &seller, nil
}

func (r *sellerRepository) SetFeaturedProduct(
	_ context.Context,
	id uuid.UUID,
	productID *uuid.UUID,
	updatedAt time.Time,
) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableSellers, "id", id.String())
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrNotFound
	}

	seller := raw.(*sellerRecord).Seller
	if productID != nil {
		pinned := *productID
		seller.FeaturedProductID = &pinned
	} else {
		seller.FeaturedProductID = nil
	}
	seller.UpdatedAt = updatedAt
	if err := txn.Insert(tableSellers, &sellerRecord{Key: seller.ID.String(), Seller: seller}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}
