package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
	"github.com/topmuch/qrsell-sub001/internal/repository/memory"
	"github.com/topmuch/qrsell-sub001/internal/repository/postgres"
)

type repositories struct {
	rules    repository.PromotionRuleRepository
	sessions repository.ScanSessionRepository
	products repository.ProductRepository
	sellers  repository.SellerRepository
	scans    repository.ScanEventRepository
	audit    repository.AuditRepository

	ready func(ctx context.Context) error
	close func()
}

func openRepositories(ctx context.Context, cfg Config, logger *zap.Logger) (*repositories, error) {
	switch cfg.Store.Driver {
	case storeDriverMemory:
		store, err := memory.NewStore()
		if err != nil {
			return nil, err
		}
		if cfg.Store.SeedDemo {
			if err := seedDemoCatalog(ctx, store, logger); err != nil {
				return nil, fmt.Errorf("seed demo catalog failed: %w", err)
			}
		}
		logger.Warn("using in-memory store, data is lost on restart")
		return &repositories{
			rules:    memory.NewPromotionRuleRepository(store),
			sessions: memory.NewScanSessionRepository(store),
			products: memory.NewProductRepository(store),
			sellers:  memory.NewSellerRepository(store),
			scans:    memory.NewScanEventRepository(store),
			audit:    memory.NewAuditRepository(store),
			ready:    func(context.Context) error { return nil },
			close:    func() {},
		}, nil
	default:
		pool, err := newDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &repositories{
			rules:    postgres.NewPromotionRuleRepository(pool),
			sessions: postgres.NewScanSessionRepository(pool),
			products: postgres.NewProductRepository(pool),
			sellers:  postgres.NewSellerRepository(pool),
			scans:    postgres.NewScanEventRepository(pool),
			audit:    postgres.NewAuditRepository(pool),
			ready:    pool.Ping,
			close:    pool.Close,
		}, nil
	}
}

func newDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database.url failed: %w", err)
	}

	const maxInt32 = int(^uint32(0) >> 1)
	if cfg.Database.MaxConns > maxInt32 {
		return nil, fmt.Errorf("database.max_conns must be <= %d", maxInt32)
	}

	poolCfg.MaxConns = int32(cfg.Database.MaxConns) // #nosec G115 -- validated upper bound above.

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.PingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database failed: %w", err)
	}

	return pool, nil
}

// seedDemoCatalog loads one seller, one product and a rule with the token
// "demo" so a local memory run has something to scan.
func seedDemoCatalog(ctx context.Context, store *memory.Store, logger *zap.Logger) error {
	now := time.Now().UTC()
	sellerID := uuid.New()
	productID := uuid.New()

	if err := store.PutSeller(model.Seller{
		ID:          sellerID,
		DisplayName: "Demo boutique",
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return err
	}
	if err := store.PutProduct(model.Product{
		ID:        productID,
		SellerID:  sellerID,
		Name:      "Demo product",
		Price:     10000,
		CreatedAt: now,
	}); err != nil {
		return err
	}

	rule := &model.PromotionRule{
		ID:              uuid.New(),
		SellerID:        sellerID,
		Token:           "demo",
		ProductID:       productID,
		DiscountPercent: 20,
		WindowMinutes:   30,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := memory.NewPromotionRuleRepository(store).Create(ctx, rule); err != nil {
		return err
	}

	logger.Info("demo catalog seeded",
		zap.String("seller_id", sellerID.String()),
		zap.String("product_id", productID.String()),
		zap.String("promo_code", rule.Token),
	)
	return nil
}
