// Package featured decides which single product a seller's bio link shows.
//
// Selection is a pure function of its input: the same input always yields the
// same result, so callers recompute it on every render instead of caching.
package featured

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

type Reason string

const (
	ReasonManual   Reason = "manual"
	ReasonPromo    Reason = "promo"
	ReasonTrending Reason = "trending"
	ReasonLatest   Reason = "latest"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonManual, ReasonPromo, ReasonTrending, ReasonLatest:
		return true
	default:
		return false
	}
}

type Product struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

type Promotion struct {
	RuleID    uuid.UUID
	ProductID uuid.UUID
	CreatedAt time.Time
}

type Input struct {
	ManualOverride *uuid.UUID
	// ActivePromotions must already be ordered newest first.
	ActivePromotions []Promotion
	RecentScanCounts map[uuid.UUID]int64
	AllProducts      []Product
}

type Result struct {
	ProductID uuid.UUID `json:"product_id"`
	Reason    Reason    `json:"reason"`
}

// Select applies manual > promo > trending > latest, first match wins.
// It returns nil only when there is no product to show.
func Select(in Input) *Result {
	if len(in.AllProducts) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]Product, len(in.AllProducts))
	for _, p := range in.AllProducts {
		byID[p.ID] = p
	}

	if in.ManualOverride != nil {
		if _, ok := byID[*in.ManualOverride]; ok {
			return &Result{ProductID: *in.ManualOverride, Reason: ReasonManual}
		}
	}

	for _, promo := range in.ActivePromotions {
		if _, ok := byID[promo.ProductID]; ok {
			return &Result{ProductID: promo.ProductID, Reason: ReasonPromo}
		}
	}

	if best, ok := mostScanned(in.RecentScanCounts, byID); ok {
		return &Result{ProductID: best, Reason: ReasonTrending}
	}

	latest := in.AllProducts[0]
	for _, p := range in.AllProducts[1:] {
		if newer(p, latest) {
			latest = p
		}
	}
	return &Result{ProductID: latest.ID, Reason: ReasonLatest}
}

func mostScanned(counts map[uuid.UUID]int64, byID map[uuid.UUID]Product) (uuid.UUID, bool) {
	var (
		best      Product
		bestCount int64
		found     bool
	)
	for id, count := range counts {
		if count <= 0 {
			continue
		}
		p, ok := byID[id]
		if !ok {
			continue
		}
		if !found || count > bestCount || (count == bestCount && newer(p, best)) {
			best, bestCount, found = p, count, true
		}
	}
	return best.ID, found
}

// newer orders by creation time, then by ID so map iteration order never
// leaks into the result.
func newer(a, b Product) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) > 0
}
