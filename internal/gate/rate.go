package gate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateGate enforces a minimum interval between accepted messages per sender.
// Each sender gets a one-token bucket refilled once per interval, so a denied
// message does not push the window forward.
type RateGate struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[string]*rate.Limiter
}

// NewRateGate creates a gate with the given minimum interval.
func NewRateGate(interval time.Duration) *RateGate {
	return &RateGate{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether sender may send at now, consuming the token if so.
func (g *RateGate) Allow(sender string, now time.Time) bool {
	if g.interval <= 0 {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	lim, ok := g.limiters[sender]
	if !ok {
		lim = rate.NewLimiter(rate.Every(g.interval), 1)
		g.limiters[sender] = lim
	}
	return lim.AllowN(now, 1)
}

// Senders returns how many senders are tracked.
func (g *RateGate) Senders() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.limiters)
}
