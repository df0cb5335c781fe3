package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestScanSessionCreateConcurrentSingleWinner(t *testing.T) {
	store := newTestStore(t)
	repo := NewScanSessionRepository(store)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ruleID := uuid.New()

	const workers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, &model.ScanSession{
				Token:         "tok-race",
				RuleID:        ruleID,
				ActivationSeq: 1,
				FirstScanAt:   base,
				ExpiresAt:     base.Add(30 * time.Minute),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, repository.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected create error: %v", err)
			}
		}()
	}
	wg.Wait()

	if winners != 1 || conflicts != workers-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d and %d", workers-1, winners, conflicts)
	}
}

func TestScanSessionLatestAndActivation(t *testing.T) {
	store := newTestStore(t)
	repo := NewScanSessionRepository(store)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := repo.FindLatestByToken(ctx, "tok"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	first := &model.ScanSession{Token: "tok", ActivationSeq: 1, FirstScanAt: base, ExpiresAt: base.Add(time.Minute)}
	second := &model.ScanSession{Token: "tok", ActivationSeq: 2, FirstScanAt: base.Add(2 * time.Minute), ExpiresAt: base.Add(3 * time.Minute)}
	for _, s := range []*model.ScanSession{first, second} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create seq %d: %v", s.ActivationSeq, err)
		}
	}

	latest, err := repo.FindLatestByToken(ctx, "tok")
	if err != nil {
		t.Fatalf("FindLatestByToken: %v", err)
	}
	if latest.ID != second.ID || latest.ActivationSeq != 2 {
		t.Fatalf("expected latest seq 2 (%s), got seq %d (%s)", second.ID, latest.ActivationSeq, latest.ID)
	}

	got, err := repo.FindByActivation(ctx, "tok", 1)
	if err != nil {
		t.Fatalf("FindByActivation: %v", err)
	}
	if got.ID != first.ID {
		t.Fatalf("expected session %s, got %s", first.ID, got.ID)
	}
	if !got.FirstScanAt.Equal(base) {
		t.Fatalf("first_scan_at changed: %s", got.FirstScanAt)
	}

	active, err := repo.CountActive(ctx, base.Add(150*time.Second))
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected 1 active session, got %d", active)
	}
}

func TestPromotionRuleTokenUnique(t *testing.T) {
	store := newTestStore(t)
	repo := NewPromotionRuleRepository(store)
	ctx := context.Background()
	seller := uuid.New()

	rule := &model.PromotionRule{SellerID: seller, Token: "same", ProductID: uuid.New(), DiscountPercent: 20, WindowMinutes: 30, IsActive: true}
	if err := repo.Create(ctx, rule); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := &model.PromotionRule{SellerID: seller, Token: "same", ProductID: uuid.New(), DiscountPercent: 10, WindowMinutes: 5, IsActive: true}
	if err := repo.Create(ctx, dup); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := repo.SetActive(ctx, rule.ID, false, time.Now().UTC()); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	active, err := repo.ListActiveBySeller(ctx, seller)
	if err != nil {
		t.Fatalf("ListActiveBySeller: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active rules, got %d", len(active))
	}
	found, err := repo.FindByToken(ctx, "same")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if found.IsActive {
		t.Fatalf("expected rule to be inactive")
	}
}

func TestScanEventCountsAndPrune(t *testing.T) {
	store := newTestStore(t)
	repo := NewScanEventRepository(store)
	ctx := context.Background()
	seller := uuid.New()
	other := uuid.New()
	productA := uuid.New()
	productB := uuid.New()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	events := []model.ScanEvent{
		{SellerID: seller, ProductID: productA, Token: "a", ScannedAt: now.Add(-time.Hour)},
		{SellerID: seller, ProductID: productA, Token: "a", ScannedAt: now.Add(-2 * time.Hour)},
		{SellerID: seller, ProductID: productB, Token: "b", ScannedAt: now.Add(-30 * time.Hour)},
		{SellerID: other, ProductID: productB, Token: "c", ScannedAt: now.Add(-time.Hour)},
	}
	for i := range events {
		if err := repo.Record(ctx, &events[i]); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	counts, err := repo.CountByProductSince(ctx, seller, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("CountByProductSince: %v", err)
	}
	if counts[productA] != 2 || counts[productB] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	deleted, err := repo.DeleteBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 pruned event, got %d", deleted)
	}
}

func TestSellerFeaturedPin(t *testing.T) {
	store := newTestStore(t)
	repo := NewSellerRepository(store)
	ctx := context.Background()
	sellerID := uuid.New()
	productID := uuid.New()

	if err := store.PutSeller(model.Seller{ID: sellerID, DisplayName: "Awa"}); err != nil {
		t.Fatalf("PutSeller: %v", err)
	}
	if err := repo.SetFeaturedProduct(ctx, sellerID, &productID, time.Now().UTC()); err != nil {
		t.Fatalf("SetFeaturedProduct: %v", err)
	}
	seller, err := repo.FindByID(ctx, sellerID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if seller.FeaturedProductID == nil || *seller.FeaturedProductID != productID {
		t.Fatalf("expected pin %s, got %v", productID, seller.FeaturedProductID)
	}

	if err := repo.SetFeaturedProduct(ctx, sellerID, nil, time.Now().UTC()); err != nil {
		t.Fatalf("clear pin: %v", err)
	}
	seller, _ = repo.FindByID(ctx, sellerID)
	if seller.FeaturedProductID != nil {
		t.Fatalf("expected pin cleared")
	}

	if err := repo.SetFeaturedProduct(ctx, uuid.New(), nil, time.Now().UTC()); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuditListScopedToSellerAndResource(t *testing.T) {
	store := newTestStore(t)
	repo := NewAuditRepository(store)
	ctx := context.Background()

	sellerID := uuid.New()
	otherSeller := uuid.New()
	ruleA := uuid.New()
	ruleB := uuid.New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []*model.AuditLog{
		{SellerID: sellerID, Actor: model.AuditActorSeller, Action: "promotion_rule.create", Resource: model.AuditResourceRule, ResourceID: ruleA, CreatedAt: base},
		{SellerID: sellerID, Actor: model.AuditActorSeller, Action: "promotion_rule.create", Resource: model.AuditResourceRule, ResourceID: ruleB, CreatedAt: base.Add(time.Minute)},
		{SellerID: sellerID, Actor: model.AuditActorSeller, Action: "promotion_rule.set_active", Resource: model.AuditResourceRule, ResourceID: ruleA, CreatedAt: base.Add(2 * time.Minute)},
		{SellerID: sellerID, Actor: model.AuditActorShopper, Action: "promotion.activated", Resource: model.AuditResourceSession, ResourceID: uuid.New(), CreatedAt: base.Add(3 * time.Minute)},
		{SellerID: otherSeller, Actor: model.AuditActorSeller, Action: "promotion_rule.create", Resource: model.AuditResourceRule, ResourceID: ruleA, CreatedAt: base.Add(4 * time.Minute)},
	}
	for _, entry := range entries {
		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := repo.List(ctx, repository.AuditListFilter{SellerID: sellerID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 entries for seller, got %d", len(all))
	}
	if all[0].Resource != model.AuditResourceSession {
		t.Fatalf("expected newest entry first, got %+v", all[0])
	}

	trail, err := repo.List(ctx, repository.AuditListFilter{
		SellerID:   sellerID,
		Resource:   model.AuditResourceRule,
		ResourceID: &ruleA,
	})
	if err != nil {
		t.Fatalf("List rule trail: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("expected 2 entries for rule, got %d", len(trail))
	}
	for _, entry := range trail {
		if entry.SellerID != sellerID || entry.ResourceID != ruleA {
			t.Fatalf("entry leaked into rule trail: %+v", entry)
		}
	}
	if trail[0].Action != "promotion_rule.set_active" {
		t.Fatalf("expected set_active first, got %s", trail[0].Action)
	}

	since := base.Add(90 * time.Second)
	recent, err := repo.List(ctx, repository.AuditListFilter{
		SellerID: sellerID,
		Resource: model.AuditResourceRule,
		Since:    &since,
	})
	if err != nil {
		t.Fatalf("List since: %v", err)
	}
	if len(recent) != 1 || recent[0].ResourceID != ruleA {
		t.Fatalf("unexpected entries since %s: %+v", since, recent)
	}
}
