// Package memory is an in-process implementation of the repository
// interfaces backed by go-memdb. Write transactions are serialised by memdb,
// which is what makes ScanSession creation an atomic insert-if-absent.
package memory

import (
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"

	"github.com/topmuch/qrsell-sub001/internal/repository"
)

const (
	tableRules      = "promotion_rules"
	tableSessions   = "scan_sessions"
	tableProducts   = "products"
	tableSellers    = "sellers"
	tableScanEvents = "scan_events"
	tableAuditLogs  = "audit_logs"
)

var (
	ErrNotFound = repository.ErrNotFound
	ErrConflict = repository.ErrConflict
)

type Store struct {
	db       *memdb.MemDB
	eventSeq atomic.Int64
	auditSeq atomic.Int64
}

func NewStore() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("create memdb failed: %w", err)
	}
	return &Store{db: db}, nil
}

func schema() *memdb.DBSchema {
	id := func() *memdb.IndexSchema {
		return &memdb.IndexSchema{Name: "id", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Key"}}
	}
	bySeller := func() *memdb.IndexSchema {
		return &memdb.IndexSchema{Name: "seller", Indexer: &memdb.StringFieldIndex{Field: "SellerKey"}}
	}

	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableRules: {
				Name: tableRules,
				Indexes: map[string]*memdb.IndexSchema{
					"id":     id(),
					"token":  {Name: "token", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Token"}},
					"seller": bySeller(),
				},
			},
			tableSessions: {
				Name: tableSessions,
				Indexes: map[string]*memdb.IndexSchema{
					"id":    id(),
					"token": {Name: "token", Indexer: &memdb.StringFieldIndex{Field: "Token"}},
					"activation": {
						Name:   "activation",
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "Token"},
								&memdb.IntFieldIndex{Field: "Seq"},
							},
						},
					},
				},
			},
			tableProducts: {
				Name: tableProducts,
				Indexes: map[string]*memdb.IndexSchema{
					"id":     id(),
					"seller": bySeller(),
				},
			},
			tableSellers: {
				Name:    tableSellers,
				Indexes: map[string]*memdb.IndexSchema{"id": id()},
			},
			tableScanEvents: {
				Name: tableScanEvents,
				Indexes: map[string]*memdb.IndexSchema{
					"id":     {Name: "id", Unique: true, Indexer: &memdb.IntFieldIndex{Field: "Seq"}},
					"seller": bySeller(),
				},
			},
			tableAuditLogs: {
				Name: tableAuditLogs,
				Indexes: map[string]*memdb.IndexSchema{
					"id":     {Name: "id", Unique: true, Indexer: &memdb.IntFieldIndex{Field: "Seq"}},
					"seller": bySeller(),
				},
			},
		},
	}
}
