package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

func TestAuditList_FiltersByResourceWithinSeller(t *testing.T) {
	pool := startPostgresForTest(t)
	ctx := context.Background()
	rule := seedPromotionRule(t, ctx, pool, 30)
	foreign := seedPromotionRule(t, ctx, pool, 30)
	repo := NewAuditRepository(pool)

	base := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	entries := []*model.AuditLog{
		{SellerID: rule.SellerID, Actor: model.AuditActorSeller, Action: "promotion_rule.create", Resource: model.AuditResourceRule, ResourceID: rule.ID, CreatedAt: base},
		{
			SellerID:   rule.SellerID,
			Actor:      model.AuditActorSeller,
			Action:     "promotion_rule.set_active",
			Resource:   model.AuditResourceRule,
			ResourceID: rule.ID,
			Changes:    map[string]model.AuditChange{"is_active": {From: true, To: false}},
			CreatedAt:  base.Add(time.Minute),
		},
		{SellerID: rule.SellerID, Actor: model.AuditActorSeller, Action: "featured.pin", Resource: model.AuditResourceSeller, ResourceID: rule.SellerID, CreatedAt: base.Add(2 * time.Minute)},
		{SellerID: foreign.SellerID, Actor: model.AuditActorSeller, Action: "promotion_rule.create", Resource: model.AuditResourceRule, ResourceID: rule.ID, CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, entry := range entries {
		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if entry.ID == 0 {
			t.Fatalf("expected generated id")
		}
	}

	trail, err := repo.List(ctx, repository.AuditListFilter{
		SellerID:   rule.SellerID,
		Resource:   model.AuditResourceRule,
		ResourceID: &rule.ID,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("expected 2 entries in rule trail, got %d", len(trail))
	}
	if trail[0].Action != "promotion_rule.set_active" || trail[0].SellerID != rule.SellerID {
		t.Fatalf("unexpected newest entry: %+v", trail[0])
	}
	if change := trail[0].Changes["is_active"]; change.From != true || change.To != false {
		t.Fatalf("changes did not round-trip: %+v", change)
	}

	missing := uuid.New()
	none, err := repo.List(ctx, repository.AuditListFilter{SellerID: rule.SellerID, ResourceID: &missing})
	if err != nil {
		t.Fatalf("List missing: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no entries, got %d", len(none))
	}
}
