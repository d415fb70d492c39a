package gate

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestDedup_WindowLifecycle(t *testing.T) {
	d := NewDedup(10 * time.Second)

	assert.False(t, d.IsDuplicate("wamid.1", t0))
	d.MarkSeen("wamid.1", t0)
	assert.True(t, d.IsDuplicate("wamid.1", t0.Add(time.Second)))

	// Exactly at the TTL the record is still inside the window.
	assert.True(t, d.IsDuplicate("wamid.1", t0.Add(10*time.Second)))

	assert.Equal(t, 1, d.Sweep(t0.Add(11*time.Second)))
	assert.False(t, d.IsDuplicate("wamid.1", t0.Add(11*time.Second)))
	assert.Equal(t, 0, d.Len())
}

func TestDedup_MarkSeenKeepsFirstSighting(t *testing.T) {
	d := NewDedup(10 * time.Second)

	d.MarkSeen("wamid.1", t0)
	d.MarkSeen("wamid.1", t0.Add(8*time.Second))

	// Measured from the first sighting, so gone after t0+10s.
	assert.False(t, d.IsDuplicate("wamid.1", t0.Add(11*time.Second)))
}

func TestDedup_CheckAndMark(t *testing.T) {
	d := NewDedup(10 * time.Second)

	assert.False(t, d.CheckAndMark("wamid.1", t0))
	assert.True(t, d.CheckAndMark("wamid.1", t0.Add(500*time.Millisecond)))
	assert.False(t, d.CheckAndMark("wamid.2", t0.Add(time.Second)))
	assert.False(t, d.CheckAndMark("wamid.1", t0.Add(15*time.Second)))
}

func TestDedup_SweepBoundsMemory(t *testing.T) {
	d := NewDedup(10 * time.Second)
	for i := 0; i < 100; i++ {
		d.MarkSeen(fmt.Sprintf("wamid.%d", i), t0.Add(time.Duration(i)*time.Second))
	}

	removed := d.Sweep(t0.Add(60 * time.Second))
	assert.Equal(t, 50, removed)
	assert.Equal(t, 50, d.Len())
}

func TestRateGate(t *testing.T) {
	tests := []struct {
		name string
		gap  time.Duration
		want bool
	}{
		{name: "immediate", gap: 0, want: false},
		{name: "one second", gap: time.Second, want: false},
		{name: "just under", gap: 1999 * time.Millisecond, want: false},
		{name: "exactly interval", gap: 2 * time.Second, want: true},
		{name: "well after", gap: 30 * time.Second, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewRateGate(2 * time.Second)
			assert.True(t, g.Allow("628111", t0))
			if got := g.Allow("628111", t0.Add(tt.gap)); got != tt.want {
				t.Errorf("Allow() after %v = %v, want %v", tt.gap, got, tt.want)
			}
		})
	}
}

func TestRateGate_DeniedDoesNotExtendWindow(t *testing.T) {
	g := NewRateGate(2 * time.Second)

	assert.True(t, g.Allow("628111", t0))
	assert.False(t, g.Allow("628111", t0.Add(1500*time.Millisecond)))
	// Still measured from the accepted message at t0.
	assert.True(t, g.Allow("628111", t0.Add(2*time.Second)))
}

func TestRateGate_SendersAreIndependent(t *testing.T) {
	g := NewRateGate(2 * time.Second)

	assert.True(t, g.Allow("628111", t0))
	assert.True(t, g.Allow("628222", t0))
	assert.False(t, g.Allow("628111", t0.Add(time.Second)))
	assert.Equal(t, 2, g.Senders())
}

func TestGate_Admit(t *testing.T) {
	g := New(10*time.Second, 2*time.Second)

	assert.Equal(t, Admit, g.Admit("wamid.1", "628111", t0))
	assert.Equal(t, Duplicate, g.Admit("wamid.1", "628111", t0.Add(500*time.Millisecond)))
	assert.Equal(t, RateLimited, g.Admit("wamid.2", "628111", t0.Add(time.Second)))
	assert.Equal(t, Admit, g.Admit("wamid.3", "628111", t0.Add(3*time.Second)))
	assert.Equal(t, "rate_limited", RateLimited.String())
}

func TestGate_ConcurrentDuplicates(t *testing.T) {
	g := New(10*time.Second, 0)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Admit("wamid.same", "628111", t0) == Admit {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
}
