package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionState string

const (
	SessionStateNone    SessionState = "no_session"
	SessionStateActive  SessionState = "active"
	SessionStateExpired SessionState = "expired"
)

func (s SessionState) Valid() bool {
	switch s {
	case SessionStateNone, SessionStateActive, SessionStateExpired:
		return true
	default:
		return false
	}
}

// ScanSession is one activation window of a promotion token. FirstScanAt is
// written once at insert; ActivationSeq together with Token forms the
// activation key that the store keeps unique.
type ScanSession struct {
	ID            uuid.UUID `db:"id" json:"session_id"`
	Token         string    `db:"token" json:"token"`
	RuleID        uuid.UUID `db:"rule_id" json:"rule_id"`
	ActivationSeq int64     `db:"activation_seq" json:"activation_seq"`
	FirstScanAt   time.Time `db:"first_scan_at" json:"first_scan_at"`
	ExpiresAt     time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

func (s *ScanSession) StateAt(now time.Time) SessionState {
	if s == nil {
		return SessionStateNone
	}
	if now.Before(s.ExpiresAt) {
		return SessionStateActive
	}
	return SessionStateExpired
}

// SecondsRemainingAt rounds partial seconds up so a window is never reported
// as 0 seconds while still active.
func (s *ScanSession) SecondsRemainingAt(now time.Time) int64 {
	if s == nil {
		return 0
	}
	remaining := s.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	secs := int64(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}
	return secs
}
