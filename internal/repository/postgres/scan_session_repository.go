package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

type scanSessionRepository struct {
	pool *pgxpool.Pool
}

func NewScanSessionRepository(pool *pgxpool.Pool) repository.ScanSessionRepository {
	return &scanSessionRepository{pool: pool}
}

var _ repository.ScanSessionRepository = (*scanSessionRepository)(nil)

const scanSessionColumns = `
	id,
	token,
	rule_id,
	activation_seq,
	first_scan_at,
	expires_at,
	created_at
`

func (r *scanSessionRepository) FindLatestByToken(ctx context.Context, token string) (*model.ScanSession, error) {
	query := `SELECT ` + scanSessionColumns + `
		   FROM scan_sessions
		  WHERE token = $1
		  ORDER BY activation_seq DESC
		  LIMIT 1`
	session, err := scanScanSession(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return session, nil
}

func (r *scanSessionRepository) FindByActivation(ctx context.Context, token string, seq int64) (*model.ScanSession, error) {
	query := `SELECT ` + scanSessionColumns + `
		   FROM scan_sessions
		  WHERE token = $1
		    AND activation_seq = $2`
	session, err := scanScanSession(r.pool.QueryRow(ctx, query, token, seq))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return session, nil
}

// Create relies on uq_scan_sessions_activation: when two scanners race on the
// same activation key exactly one INSERT returns a row.
func (r *scanSessionRepository) Create(ctx context.Context, session *model.ScanSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.FirstScanAt
	}

	query := `
		INSERT INTO scan_sessions (
			id, token, rule_id, activation_seq,
			first_scan_at, expires_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT uq_scan_sessions_activation DO NOTHING
		RETURNING id
	`

	var insertedID uuid.UUID
	err := r.pool.QueryRow(
		ctx,
		query,
		session.ID,
		session.Token,
		session.RuleID,
		session.ActivationSeq,
		session.FirstScanAt,
		session.ExpiresAt,
		session.CreatedAt,
	).Scan(&insertedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (r *scanSessionRepository) CountActive(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*)
		   FROM scan_sessions
		  WHERE first_scan_at <= $1
		    AND expires_at > $1`,
		now,
	).Scan(&total)
	return total, err
}

func scanScanSession(src scanTarget) (*model.ScanSession, error) {
	session := &model.ScanSession{}
	err := src.Scan(
		&session.ID,
		&session.Token,
		&session.RuleID,
		&session.ActivationSeq,
		&session.FirstScanAt,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	session.FirstScanAt = session.FirstScanAt.UTC()
	session.ExpiresAt = session.ExpiresAt.UTC()
	session.CreatedAt = session.CreatedAt.UTC()
	return session, nil
}
