// Package pricing computes the price a shopper sees once a promotion discount
// applies. Amounts are whole units of a single implicit currency.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/topmuch/qrsell-sub001/internal/model"
)

var (
	ErrInvalidDiscount = errors.New("invalid discount percent")
	ErrInvalidPrice    = errors.New("invalid base price")
)

var hundred = decimal.NewFromInt(100)

type Quote struct {
	BasePrice       int64 `json:"base_price"`
	DiscountPercent int   `json:"discount_percent"`
	FinalPrice      int64 `json:"final_price"`
	Savings         int64 `json:"savings"`
}

// ComputeDiscountedPrice returns round(basePrice * (1 - discountPercent/100)),
// rounding half away from zero. Any percent in [0,100] is accepted here; the
// narrower range sellers may configure is checked by ValidateRuleDiscount.
func ComputeDiscountedPrice(basePrice int64, discountPercent int) (int64, error) {
	if discountPercent < 0 || discountPercent > 100 {
		return 0, ErrInvalidDiscount
	}
	if basePrice < 0 {
		return 0, ErrInvalidPrice
	}

	keep := hundred.Sub(decimal.NewFromInt(int64(discountPercent)))
	final := decimal.NewFromInt(basePrice).Mul(keep).Div(hundred).Round(0)
	return final.IntPart(), nil
}

func ValidateRuleDiscount(discountPercent int) error {
	if discountPercent < model.MinRuleDiscountPercent || discountPercent > model.MaxRuleDiscountPercent {
		return ErrInvalidDiscount
	}
	return nil
}

func NewQuote(basePrice int64, discountPercent int) (Quote, error) {
	final, err := ComputeDiscountedPrice(basePrice, discountPercent)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		BasePrice:       basePrice,
		DiscountPercent: discountPercent,
		FinalPrice:      final,
		Savings:         basePrice - final,
	}, nil
}
