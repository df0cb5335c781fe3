package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

func TestPromotionRuleCreateValidation(t *testing.T) {
	t0 := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, t0)
	seller := f.seedSeller(t)
	otherSeller := f.seedSeller(t)
	product := f.seedProduct(t, seller, 7500, t0)
	foreignProduct := f.seedProduct(t, otherSeller, 7500, t0)
	longHeadline := strings.Repeat("x", 141)

	tests := []struct {
		name    string
		seller  string
		req     CreateRuleRequest
		wantErr error
	}{
		{name: "discount below range", seller: seller.String(), req: CreateRuleRequest{ProductID: product.String(), DiscountPercent: 4, WindowMinutes: 30}, wantErr: ErrInvalidDiscount},
		{name: "discount above range", seller: seller.String(), req: CreateRuleRequest{ProductID: product.String(), DiscountPercent: 91, WindowMinutes: 30}, wantErr: ErrInvalidDiscount},
		{name: "zero window", seller: seller.String(), req: CreateRuleRequest{ProductID: product.String(), DiscountPercent: 20, WindowMinutes: 0}, wantErr: ErrInvalidRuleInput},
		{name: "window too long", seller: seller.String(), req: CreateRuleRequest{ProductID: product.String(), DiscountPercent: 20, WindowMinutes: 7*24*60 + 1}, wantErr: ErrInvalidRuleInput},
		{name: "bad product id", seller: seller.String(), req: CreateRuleRequest{ProductID: "nope", DiscountPercent: 20, WindowMinutes: 30}, wantErr: ErrInvalidRuleInput},
		{name: "unknown product", seller: seller.String(), req: CreateRuleRequest{ProductID: uuid.NewString(), DiscountPercent: 20, WindowMinutes: 30}, wantErr: ErrProductNotFound},
		{name: "product of another seller", seller: seller.String(), req: CreateRuleRequest{ProductID: foreignProduct.String(), DiscountPercent: 20, WindowMinutes: 30}, wantErr: ErrProductNotFound},
		{name: "headline too long", seller: seller.String(), req: CreateRuleRequest{ProductID: product.String(), DiscountPercent: 20, WindowMinutes: 30, Headline: &longHeadline}, wantErr: ErrInvalidRuleInput},
		{name: "bad seller id", seller: "seller", req: CreateRuleRequest{ProductID: product.String(), DiscountPercent: 20, WindowMinutes: 30}, wantErr: ErrInvalidSellerID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ruleSvc.Create(context.Background(), tt.seller, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPromotionRuleCreateAndToggle(t *testing.T) {
	t0 := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, t0)
	seller := f.seedSeller(t)
	product := f.seedProduct(t, seller, 7500, t0)
	headline := "  Flash -20%  "

	rule, err := f.ruleSvc.Create(context.Background(), seller.String(), CreateRuleRequest{
		ProductID:       product.String(),
		DiscountPercent: 20,
		WindowMinutes:   45,
		Headline:        &headline,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !rule.IsActive || len(rule.Token) != 32 {
		t.Fatalf("unexpected rule: %+v", rule)
	}
	if rule.Headline == nil || *rule.Headline != "Flash -20%" {
		t.Fatalf("expected trimmed headline, got %v", rule.Headline)
	}

	stored, err := f.rules.FindByToken(context.Background(), rule.Token)
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if stored.ID != rule.ID {
		t.Fatalf("expected stored rule %s, got %s", rule.ID, stored.ID)
	}

	if _, err := f.ruleSvc.SetActive(context.Background(), uuid.NewString(), rule.ID.String(), false); !errors.Is(err, ErrNotRuleOwner) {
		t.Fatalf("expected ErrNotRuleOwner, got %v", err)
	}
	if _, err := f.ruleSvc.SetActive(context.Background(), seller.String(), uuid.NewString(), false); !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("expected ErrRuleNotFound, got %v", err)
	}

	f.clock.Advance(time.Minute)
	toggled, err := f.ruleSvc.SetActive(context.Background(), seller.String(), rule.ID.String(), false)
	if err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if toggled.IsActive || !toggled.UpdatedAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("unexpected toggled rule: %+v", toggled)
	}

	logs, err := f.audits.List(context.Background(), repository.AuditListFilter{SellerID: seller})
	if err != nil {
		t.Fatalf("audit List: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(logs))
	}
	if logs[0].Action != "promotion_rule.set_active" {
		t.Fatalf("expected newest audit entry first, got %s", logs[0].Action)
	}
	if logs[0].Resource != model.AuditResourceRule || logs[0].ResourceID != rule.ID {
		t.Fatalf("expected entry on the rule, got %+v", logs[0])
	}
	if change := logs[0].Changes["is_active"]; change.From != true || change.To != false {
		t.Fatalf("unexpected is_active change: %+v", change)
	}
	if token := logs[1].Changes["token"]; token.To != rule.Token {
		t.Fatalf("expected create entry to carry token, got %+v", token)
	}

	listed, err := f.ruleSvc.ListBySeller(context.Background(), seller.String(), 1, 10)
	if err != nil {
		t.Fatalf("ListBySeller: %v", err)
	}
	if len(listed) != 1 || listed[0].IsActive {
		t.Fatalf("expected one inactive rule, got %+v", listed)
	}
}

func TestListBySellerClampsHugePage(t *testing.T) {
	t0 := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, t0)
	seller := f.seedSeller(t)
	product := f.seedProduct(t, seller, 7500, t0)
	if _, err := f.ruleSvc.Create(context.Background(), seller.String(), CreateRuleRequest{
		ProductID: product.String(), DiscountPercent: 20, WindowMinutes: 30,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	listed, err := f.ruleSvc.ListBySeller(context.Background(), seller.String(), math.MaxInt, 10)
	if err != nil {
		t.Fatalf("ListBySeller: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected an empty far page, got %d rules", len(listed))
	}
}

func TestPageWindowFitsInt32(t *testing.T) {
	tests := []struct {
		name       string
		page, size int
		want       repository.Pagination
	}{
		{name: "defaults", page: 0, size: 0, want: repository.Pagination{Limit: 20, Offset: 0}},
		{name: "second page", page: 2, size: 50, want: repository.Pagination{Limit: 50, Offset: 50}},
		{name: "size capped", page: 1, size: 10_000, want: repository.Pagination{Limit: 200, Offset: 0}},
		{name: "max int page", page: math.MaxInt, size: 20, want: repository.Pagination{Limit: 20, Offset: listMaxOffset}},
		{name: "page past int32", page: math.MaxInt32 + 10, size: 200, want: repository.Pagination{Limit: 200, Offset: listMaxOffset}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pageWindow(tt.page, tt.size)
			if got != tt.want {
				t.Fatalf("pageWindow(%d, %d) = %+v, want %+v", tt.page, tt.size, got, tt.want)
			}
			if got.Offset < 0 {
				t.Fatalf("negative offset %d", got.Offset)
			}
		})
	}
}
