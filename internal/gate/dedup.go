package gate

import (
	"sync"
	"time"
)

// Dedup remembers message ids for a short window to absorb webhook redeliveries.
type Dedup struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
}

// NewDedup creates a dedup window of the given TTL.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		ttl:  ttl,
		seen: make(map[string]time.Time),
	}
}

// Sweep evicts every id older than the TTL and returns how many were removed.
func (d *Dedup) Sweep(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sweepLocked(now)
}

func (d *Dedup) sweepLocked(now time.Time) int {
	removed := 0
	for id, first := range d.seen {
		if now.Sub(first) > d.ttl {
			delete(d.seen, id)
			removed++
		}
	}
	return removed
}

// IsDuplicate sweeps, then reports whether id is still inside the window.
func (d *Dedup) IsDuplicate(id string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked(now)
	_, ok := d.seen[id]
	return ok
}

// MarkSeen records the first sighting of id. Later calls keep the original time.
func (d *Dedup) MarkSeen(id string, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; !ok {
		d.seen[id] = now
	}
}

// CheckAndMark sweeps, checks and marks id under one lock.
// It returns true when id was already inside the window.
func (d *Dedup) CheckAndMark(id string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked(now)
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = now
	return false
}

// Len returns the number of tracked ids.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
