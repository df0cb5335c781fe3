package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

type auditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) repository.AuditRepository {
	return &auditRepository{pool: pool}
}

var _ repository.AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var changes []byte
	if len(entry.Changes) > 0 {
		raw, err := json.Marshal(entry.Changes)
		if err != nil {
			return fmt.Errorf("encode audit changes: %w", err)
		}
		changes = raw
	}

	return r.pool.QueryRow(ctx, `
		INSERT INTO audit_logs (seller_id, actor, action, resource_type, resource_id, changes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		entry.SellerID,
		string(entry.Actor),
		entry.Action,
		string(entry.Resource),
		entry.ResourceID,
		changes,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

// List returns one seller's entries, newest first. The seller predicate is
// always present so the (seller_id, ...) indexes serve every shape of filter.
func (r *auditRepository) List(ctx context.Context, filter repository.AuditListFilter) ([]*model.AuditLog, error) {
	limit, offset := normalizePagination(filter.Pagination)

	args := []any{filter.SellerID}
	where := []string{"seller_id = $1"}
	bind := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.Resource != "" {
		bind("resource_type = $%d", string(filter.Resource))
	}
	if filter.ResourceID != nil {
		bind("resource_id = $%d", *filter.ResourceID)
	}
	if filter.Since != nil {
		bind("created_at >= $%d", *filter.Since)
	}
	if filter.Until != nil {
		bind("created_at <= $%d", *filter.Until)
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT id, seller_id, actor, action, resource_type, resource_id, changes, created_at
		  FROM audit_logs
		 WHERE %s
		 ORDER BY created_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`,
		strings.Join(where, " AND "), len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*model.AuditLog, 0, limit)
	for rows.Next() {
		var (
			entry    model.AuditLog
			actor    string
			resource string
			changes  []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.SellerID,
			&actor,
			&entry.Action,
			&resource,
			&entry.ResourceID,
			&changes,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Actor = model.AuditActor(actor)
		entry.Resource = model.AuditResource(resource)
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &entry.Changes); err != nil {
				return nil, fmt.Errorf("decode audit changes %d: %w", entry.ID, err)
			}
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
