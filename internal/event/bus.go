package event

import (
	"strings"
	"sync"
	"time"
)

const (
	EventPromotionActivated   = "promotion.activated"
	EventPromotionRuleToggled = "promotion.rule.toggled"
	EventFeaturedPinChanged   = "featured.pin.changed"
)

// PromotionActivatedPayload is published once per new activation window,
// by the caller that won the activation key.
type PromotionActivatedPayload struct {
	SessionID     string    `json:"session_id"`
	RuleID        string    `json:"rule_id"`
	SellerID      string    `json:"seller_id"`
	Token         string    `json:"token"`
	ActivationSeq int64     `json:"activation_seq"`
	FirstScanAt   time.Time `json:"first_scan_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type RuleToggledPayload struct {
	RuleID   string `json:"rule_id"`
	SellerID string `json:"seller_id"`
	Active   bool   `json:"active"`
}

type FeaturedPinPayload struct {
	SellerID  string  `json:"seller_id"`
	ProductID *string `json:"product_id,omitempty"`
}

type Bus struct {
	handlers sync.Map
	mu       sync.Mutex
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(event string, handler func(payload any)) {
	if b == nil || handler == nil {
		return
	}

	eventName := strings.TrimSpace(event)
	if eventName == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := make([]func(payload any), 0, 1)
	if current, ok := b.handlers.Load(eventName); ok {
		if casted, valid := current.([]func(payload any)); valid {
			handlers = append(handlers, casted...)
		}
	}
	handlers = append(handlers, handler)
	b.handlers.Store(eventName, handlers)
}

func (b *Bus) Publish(event string, payload any) {
	if b == nil {
		return
	}

	eventName := strings.TrimSpace(event)
	if eventName == "" {
		return
	}

	current, ok := b.handlers.Load(eventName)
	if !ok {
		return
	}

	handlers, ok := current.([]func(payload any))
	if !ok || len(handlers) == 0 {
		return
	}

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		go handler(payload)
	}
}
