package service

import (
	"errors"

	"github.com/topmuch/qrsell-sub001/internal/pricing"
)

var (
	ErrRuleNotFound     = errors.New("promotion rule not found")
	ErrWindowExpired    = errors.New("promotion window expired")
	ErrInvalidRuleInput = errors.New("invalid promotion rule input")
	ErrInvalidRuleID    = errors.New("invalid promotion rule id")
	ErrInvalidSellerID  = errors.New("invalid seller id")
	ErrSellerNotFound   = errors.New("seller not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrNotRuleOwner     = errors.New("promotion rule belongs to another seller")
	ErrInvalidDiscount  = pricing.ErrInvalidDiscount
	ErrActivationRetry  = errors.New("activation did not converge")
)
