package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

type scanEventRepository struct {
	pool *pgxpool.Pool
}

func NewScanEventRepository(pool *pgxpool.Pool) repository.ScanEventRepository {
	return &scanEventRepository{pool: pool}
}

var _ repository.ScanEventRepository = (*scanEventRepository)(nil)

func (r *scanEventRepository) Record(ctx context.Context, event *model.ScanEvent) error {
	if event.ScannedAt.IsZero() {
		event.ScannedAt = time.Now().UTC()
	}

	return r.pool.QueryRow(
		ctx,
		`INSERT INTO scan_events (
			seller_id, product_id, token, session_id, visitor_ref, scanned_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		event.SellerID,
		event.ProductID,
		event.Token,
		event.SessionID,
		event.VisitorRef,
		event.ScannedAt,
	).Scan(&event.ID)
}

func (r *scanEventRepository) CountByProductSince(
	ctx context.Context,
	sellerID uuid.UUID,
	since time.Time,
) (map[uuid.UUID]int64, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT product_id, COUNT(*)
		   FROM scan_events
		  WHERE seller_id = $1
		    AND scanned_at >= $2
		  GROUP BY product_id`,
		sellerID,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int64)
	for rows.Next() {
		var (
			productID uuid.UUID
			total     int64
		)
		if err := rows.Scan(&productID, &total); err != nil {
			return nil, err
		}
		counts[productID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *scanEventRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM scan_events WHERE scanned_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
