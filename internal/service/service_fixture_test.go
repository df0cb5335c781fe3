package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/topmuch/qrsell-sub001/internal/clock"
	"github.com/topmuch/qrsell-sub001/internal/event"
	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
	"github.com/topmuch/qrsell-sub001/internal/repository/memory"
)

type fixture struct {
	store       *memory.Store
	clock       *clock.Manual
	bus         *event.Bus
	rules       repository.PromotionRuleRepository
	sessions    repository.ScanSessionRepository
	products    repository.ProductRepository
	sellers     repository.SellerRepository
	scans       repository.ScanEventRepository
	audits      repository.AuditRepository
	sessionSvc  *PromotionSessionService
	ruleSvc     *PromotionRuleService
	featuredSvc *FeaturedService
	auditSvc    *AuditService
}

func newFixture(t *testing.T, start time.Time) *fixture {
	t.Helper()

	store, err := memory.NewStore()
	if err != nil {
		t.Fatalf("memory.NewStore: %v", err)
	}

	f := &fixture{
		store:    store,
		clock:    clock.NewManual(start),
		bus:      event.NewBus(),
		rules:    memory.NewPromotionRuleRepository(store),
		sessions: memory.NewScanSessionRepository(store),
		products: memory.NewProductRepository(store),
		sellers:  memory.NewSellerRepository(store),
		scans:    memory.NewScanEventRepository(store),
		audits:   memory.NewAuditRepository(store),
	}
	f.auditSvc = NewAuditService(f.audits, nil)
	f.sessionSvc = NewPromotionSessionService(f.rules, f.sessions, f.products, f.scans, f.bus, f.clock, nil)
	f.ruleSvc = NewPromotionRuleService(f.rules, f.products, f.auditSvc, f.bus, f.clock, 0, nil)
	f.featuredSvc = NewFeaturedService(f.sellers, f.products, f.rules, f.scans, f.auditSvc, f.bus, f.clock, 0, nil)
	return f
}

func (f *fixture) seedSeller(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := f.clock.Now()
	if err := f.store.PutSeller(model.Seller{ID: id, DisplayName: "Boutique Awa", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("PutSeller: %v", err)
	}
	return id
}

func (f *fixture) seedProduct(t *testing.T, sellerID uuid.UUID, price int64, createdAt time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if err := f.store.PutProduct(model.Product{
		ID:        id,
		SellerID:  sellerID,
		Name:      "Wax dress",
		Price:     price,
		CreatedAt: createdAt,
	}); err != nil {
		t.Fatalf("PutProduct: %v", err)
	}
	return id
}

func (f *fixture) seedRule(t *testing.T, sellerID, productID uuid.UUID, token string, pct, minutes int) *model.PromotionRule {
	t.Helper()
	now := f.clock.Now()
	rule := &model.PromotionRule{
		SellerID:        sellerID,
		Token:           token,
		ProductID:       productID,
		DiscountPercent: pct,
		WindowMinutes:   minutes,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := f.rules.Create(context.Background(), rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}
	return rule
}
