package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

type promotionRuleRepository struct {
	store *Store
}

func NewPromotionRuleRepository(store *Store) repository.PromotionRuleRepository {
	return &promotionRuleRepository{store: store}
}

var _ repository.PromotionRuleRepository = (*promotionRuleRepository)(nil)

func (r *promotionRuleRepository) FindByID(_ context.Context, id uuid.UUID) (*model.PromotionRule, error) {
	return r.first("id", id.String())
}

func (r *promotionRuleRepository) FindByToken(_ context.Context, token string) (*model.PromotionRule, error) {
	return r.first("token", token)
}

func (r *promotionRuleRepository) first(index, value string) (*model.PromotionRule, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableRules, index, value)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	rule := raw.(*ruleRecord).Rule
	return &rule, nil
}

func (r *promotionRuleRepository) Create(_ context.Context, rule *model.PromotionRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = rule.CreatedAt
	}

	txn := r.store.db.Txn(true)
	defer txn.Abort()

	for _, lookup := range [][2]string{{"id", rule.ID.String()}, {"token", rule.Token}} {
		existing, err := txn.First(tableRules, lookup[0], lookup[1])
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrConflict
		}
	}

	if err := txn.Insert(tableRules, newRuleRecord(*rule)); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *promotionRuleRepository) SetActive(_ context.Context, id uuid.UUID, active bool, updatedAt time.Time) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableRules, "id", id.String())
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrNotFound
	}

	rule := raw.(*ruleRecord).Rule
	rule.IsActive = active
	rule.UpdatedAt = updatedAt
	if err := txn.Insert(tableRules, newRuleRecord(rule)); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *promotionRuleRepository) ListBySeller(
	_ context.Context,
	sellerID uuid.UUID,
	page repository.Pagination,
) ([]*model.PromotionRule, error) {
	rules, err := r.listBySeller(sellerID, false)
	if err != nil {
		return nil, err
	}

	limit, offset := normalizePagination(page)
	if int(offset) >= len(rules) {
		return []*model.PromotionRule{}, nil
	}
	end := int(offset + limit)
	if end > len(rules) {
		end = len(rules)
	}
	return rules[offset:end], nil
}

func (r *promotionRuleRepository) ListActiveBySeller(_ context.Context, sellerID uuid.UUID) ([]*model.PromotionRule, error) {
	return r.listBySeller(sellerID, true)
}

func (r *promotionRuleRepository) listBySeller(sellerID uuid.UUID, activeOnly bool) ([]*model.PromotionRule, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableRules, "seller", sellerID.String())
	if err != nil {
		return nil, err
	}

	rules := make([]*model.PromotionRule, 0)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		rule := raw.(*ruleRecord).Rule
		if activeOnly && !rule.IsActive {
			continue
		}
		rules = append(rules, &rule)
	}

	sort.Slice(rules, func(i, j int) bool {
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.After(rules[j].CreatedAt)
		}
		return rules[i].ID.String() > rules[j].ID.String()
	})
	return rules, nil
}

func newRuleRecord(rule model.PromotionRule) *ruleRecord {
	return &ruleRecord{
		Key:       rule.ID.String(),
		Token:     rule.Token,
		SellerKey: rule.SellerID.String(),
		Rule:      rule,
	}
}

func normalizePagination(page repository.Pagination) (int32, int32) {
	limit := page.Limit
	offset := page.Offset

	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
