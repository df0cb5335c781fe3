package memory

import (
	"context"
	"sort"
	"time"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

type auditRepository struct {
	store *Store
}

func NewAuditRepository(store *Store) repository.AuditRepository {
	return &auditRepository{store: store}
}

var _ repository.AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) Create(_ context.Context, entry *model.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.ID = r.store.auditSeq.Add(1)

	txn := r.store.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableAuditLogs, &auditRecord{
		Seq:       entry.ID,
		SellerKey: entry.SellerID.String(),
		Log:       *entry,
	}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *auditRepository) List(_ context.Context, filter repository.AuditListFilter) ([]*model.AuditLog, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableAuditLogs, "seller", filter.SellerID.String())
	if err != nil {
		return nil, err
	}

	entries := make([]*model.AuditLog, 0)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		entry := raw.(*auditRecord).Log
		if auditMatches(entry, filter) {
			entries = append(entries, &entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})

	limit, offset := normalizePagination(filter.Pagination)
	if int(offset) >= len(entries) {
		return []*model.AuditLog{}, nil
	}
	end := int(offset) + int(limit)
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end], nil
}

func auditMatches(entry model.AuditLog, filter repository.AuditListFilter) bool {
	switch {
	case filter.Resource != "" && entry.Resource != filter.Resource:
		return false
	case filter.ResourceID != nil && entry.ResourceID != *filter.ResourceID:
		return false
	case filter.Since != nil && entry.CreatedAt.Before(*filter.Since):
		return false
	case filter.Until != nil && entry.CreatedAt.After(*filter.Until):
		return false
	default:
		return true
	}
}
