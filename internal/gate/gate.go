// Package gate holds the in-memory admission checks applied to every
// inbound message before it reaches the ledger.
package gate

import (
	"time"
)

// Verdict is the admission decision for one message.
type Verdict int

const (
	Admit Verdict = iota
	Duplicate
	RateLimited
)

func (v Verdict) String() string {
	switch v {
	case Admit:
		return "admit"
	case Duplicate:
		return "duplicate"
	case RateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Gate combines the dedup window and the per-sender rate gate.
type Gate struct {
	dedup *Dedup
	rate  *RateGate
}

// New creates a gate.
func New(ttl, minInterval time.Duration) *Gate {
	return &Gate{
		dedup: NewDedup(ttl),
		rate:  NewRateGate(minInterval),
	}
}

// Admit runs the dedup check first and the rate check second.
// Messages without an id skip dedup.
func (g *Gate) Admit(messageID, sender string, now time.Time) Verdict {
	if messageID != "" && g.dedup.CheckAndMark(messageID, now) {
		return Duplicate
	}
	if !g.rate.Allow(sender, now) {
		return RateLimited
	}
	return Admit
}
