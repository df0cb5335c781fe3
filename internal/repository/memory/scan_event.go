package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/topmuch/qrsell-sub001/internal/model"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

type scanEventRepository struct {
	store *Store
}

func NewScanEventRepository(store *Store) repository.ScanEventRepository {
	return &scanEventRepository{store: store}
}

var _ repository.ScanEventRepository = (*scanEventRepository)(nil)

func (r *scanEventRepository) Record(_ context.Context, event *model.ScanEvent) error {
	if event.ScannedAt.IsZero() {
		event.ScannedAt = time.Now().UTC()
	}
	event.ID = r.store.eventSeq.Add(1)

	txn := r.store.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableScanEvents, &scanEventRecord{
		Seq:       event.ID,
		SellerKey: event.SellerID.String(),
		Event:     *event,
	}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *scanEventRepository) CountByProductSince(
	_ context.Context,
	sellerID uuid.UUID,
	since time.Time,
) (map[uuid.UUID]int64, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableScanEvents, "seller", sellerID.String())
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int64)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		event := raw.(*scanEventRecord).Event
		if event.ScannedAt.Before(since) {
			continue
		}
		counts[event.ProductID]++
	}
	return counts, nil
}

func (r *scanEventRepository) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get(tableScanEvents, "id")
	if err != nil {
		return 0, err
	}

	stale := make([]*scanEventRecord, 0)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		record := raw.(*scanEventRecord)
		if record.Event.ScannedAt.Before(cutoff) {
			stale = append(stale, record)
		}
	}
	for _, record := range stale {
		if err := txn.Delete(tableScanEvents, record); err != nil {
			return 0, err
		}
	}
	txn.Commit()
	return int64(len(stale)), nil
}
