package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

type promotionRuleRepository struct {
	pool *pgxpool.Pool
}

func NewPromotionRuleRepository(pool *pgxpool.Pool) repository.PromotionRuleRepository {
	return &promotionRuleRepository{pool: pool}
}

var _ repository.PromotionRuleRepository = (*promotionRuleRepository)(nil)

const promotionRuleColumns = `
	id,
	seller_id,
	token,
	product_id,
	discount_percent,
	window_minutes,
	is_active,
	headline,
	created_at,
	updated_at
`

func (r *promotionRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PromotionRule, error) {
	query := `SELECT ` + promotionRuleColumns + ` FROM promotion_rules WHERE id = $1`
	rule, err := scanPromotionRule(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return rule, nil
}

func (r *promotionRuleRepository) FindByToken(ctx context.Context, token string) (*model.PromotionRule, error) {
	query := `SELECT ` + promotionRuleColumns + ` FROM promotion_rules WHERE token = $1`
	rule, err := scanPromotionRule(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return rule, nil
}

func (r *promotionRuleRepository) Create(ctx context.Context, rule *model.PromotionRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = rule.CreatedAt
	}

	query := `
		INSERT INTO promotion_rules (
			id, seller_id, token, product_id, discount_percent,
			window_minutes, is_active, headline, created_at, updated_at
		)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		rule.ID,
		rule.SellerID,
		rule.Token,
		rule.ProductID,
		rule.DiscountPercent,
		rule.WindowMinutes,
		rule.IsActive,
		rule.Headline,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *promotionRuleRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, updatedAt time.Time) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE promotion_rules
		    SET is_active = $2,
		        updated_at = $3
		  WHERE id = $1`,
		id,
		active,
		updatedAt,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *promotionRuleRepository) ListBySeller(
	ctx context.Context,
	sellerID uuid.UUID,
	page repository.Pagination,
) ([]*model.PromotionRule, error) {
	limit, offset := normalizePagination(page)
	query := `SELECT ` + promotionRuleColumns + `
		   FROM promotion_rules
		  WHERE seller_id = $1
		  ORDER BY created_at DESC, id DESC
		  LIMIT $2 OFFSET $3`
	return r.queryRules(ctx, query, sellerID, limit, offset)
}

func (r *promotionRuleRepository) ListActiveBySeller(ctx context.Context, sellerID uuid.UUID) ([]*model.PromotionRule, error) {
	query := `SELECT ` + promotionRuleColumns + `
		   FROM promotion_rules
		  WHERE seller_id = $1
		    AND is_active = TRUE
		  ORDER BY created_at DESC, id DESC`
	return r.queryRules(ctx, query, sellerID)
}

func (r *promotionRuleRepository) queryRules(ctx context.Context, query string, args ...any) ([]*model.PromotionRule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]*model.PromotionRule, 0)
	for rows.Next() {
		item, err := scanPromotionRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

func scanPromotionRule(src scanTarget) (*model.PromotionRule, error) {
	rule := &model.PromotionRule{}
	var discount int16
	err := src.Scan(
		&rule.ID,
		&rule.SellerID,
		&rule.Token,
		&rule.ProductID,
		&discount,
		&rule.WindowMinutes,
		&rule.IsActive,
		&rule.Headline,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.DiscountPercent = int(discount)
	return rule, nil
}
