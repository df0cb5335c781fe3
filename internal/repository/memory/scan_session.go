package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

type scanSessionRepository struct {
	store *Store
}

func NewScanSessionRepository(store *Store) repository.ScanSessionRepository {
	return &scanSessionRepository{store: store}
}

var _ repository.ScanSessionRepository = (*scanSessionRepository)(nil)

func (r *scanSessionRepository) FindLatestByToken(_ context.Context, token string) (*model.ScanSession, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableSessions, "token", token)
	if err != nil {
		return nil, err
	}

	var latest *sessionRecord
	for raw := it.Next(); raw != nil; raw = it.Next() {
		record := raw.(*sessionRecord)
		if latest == nil || record.Seq > latest.Seq {
			latest = record
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}

	session := latest.Session
	return &session, nil
}

func (r *scanSessionRepository) FindByActivation(_ context.Context, token string, seq int64) (*model.ScanSession, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableSessions, "activation", token, seq)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}

	session := raw.(*sessionRecord).Session
	return &session, nil
}

// Create checks and inserts inside one write transaction; memdb admits a
// single writer at a time, so the activation key cannot be claimed twice.
func (r *scanSessionRepository) Create(_ context.Context, session *model.ScanSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.FirstScanAt
	}

	txn := r.store.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tableSessions, "activation", session.Token, session.ActivationSeq)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrConflict
	}

	if err := txn.Insert(tableSessions, &sessionRecord{
		Key:     session.ID.String(),
		Token:   session.Token,
		Seq:     session.ActivationSeq,
		Session: *session,
	}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *scanSessionRepository) CountActive(_ context.Context, now time.Time) (int64, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableSessions, "id")
	if err != nil {
		return 0, err
	}

	var total int64
	for raw := it.Next(); raw != nil; raw = it.Next() {
		session := raw.(*sessionRecord).Session
		if !session.FirstScanAt.After(now) && session.StateAt(now) == model.SessionStateActive {
			total++
		}
	}
	return total, nil
}
