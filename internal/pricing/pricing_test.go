package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeDiscountedPrice_Table(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		base    int64
		percent int
		want    int64
	}{
		{name: "twenty percent of 10000", base: 10000, percent: 20, want: 8000},
		{name: "half rounds away from zero", base: 25, percent: 50, want: 13},
		{name: "13.5 rounds up", base: 15, percent: 10, want: 14},
		{name: "below half rounds down", base: 99, percent: 33, want: 66},
		{name: "zero percent keeps price", base: 4321, percent: 0, want: 4321},
		{name: "hundred percent is free", base: 4321, percent: 100, want: 0},
		{name: "zero base", base: 0, percent: 40, want: 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ComputeDiscountedPrice(tc.base, tc.percent)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestComputeDiscountedPrice_RejectsOutOfRangePercent(t *testing.T) {
	t.Parallel()

	for _, percent := range []int{-1, 101, 250} {
		_, err := ComputeDiscountedPrice(1000, percent)
		if !errors.Is(err, ErrInvalidDiscount) {
			t.Fatalf("percent %d: expected ErrInvalidDiscount, got %v", percent, err)
		}
	}
}

func TestComputeDiscountedPrice_RejectsNegativeBase(t *testing.T) {
	t.Parallel()

	_, err := ComputeDiscountedPrice(-10, 10)
	require.ErrorIs(t, err, ErrInvalidPrice)
}

func TestComputeDiscountedPrice_StaysStrictlyInsideBase(t *testing.T) {
	t.Parallel()

	for base := int64(20); base <= 2000; base += 7 {
		for percent := 5; percent <= 90; percent++ {
			first, err := ComputeDiscountedPrice(base, percent)
			require.NoError(t, err)
			if first <= 0 || first >= base {
				t.Fatalf("base=%d percent=%d: %d not in (0,%d)", base, percent, first, base)
			}
			second, _ := ComputeDiscountedPrice(base, percent)
			require.Equal(t, first, second, "result must be deterministic")
		}
	}
}

func TestValidateRuleDiscount(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateRuleDiscount(5))
	require.NoError(t, ValidateRuleDiscount(90))
	require.ErrorIs(t, ValidateRuleDiscount(4), ErrInvalidDiscount)
	require.ErrorIs(t, ValidateRuleDiscount(91), ErrInvalidDiscount)
}

func TestNewQuote_Savings(t *testing.T) {
	t.Parallel()

	q, err := NewQuote(10000, 20)
	require.NoError(t, err)
	require.Equal(t, Quote{BasePrice: 10000, DiscountPercent: 20, FinalPrice: 8000, Savings: 2000}, q)
}
