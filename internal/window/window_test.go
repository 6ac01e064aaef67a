package window

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-sentinel/internal/event"
)

func TestRecordAndCountWithinWindow(t *testing.T) {
	c := NewCounter()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 10 * time.Second

	assert.Equal(t, 1, c.RecordAndCount("g1", "a1", event.ActionBan, window, base))
	assert.Equal(t, 2, c.RecordAndCount("g1", "a1", event.ActionBan, window, base.Add(2*time.Second)))
	assert.Equal(t, 3, c.RecordAndCount("g1", "a1", event.ActionBan, window, base.Add(9*time.Second)))
}

func TestCountExcludesExpiredEntries(t *testing.T) {
	c := NewCounter()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 10 * time.Second

	c.Record("g1", "a1", event.ActionBan, base)
	c.Record("g1", "a1", event.ActionBan, base.Add(2*time.Second))
	c.Record("g1", "a1", event.ActionBan, base.Add(9*time.Second))

	// The first two fall outside the window measured from t=15s.
	assert.Equal(t, 1, c.Count("g1", "a1", event.ActionBan, window, base.Add(15*time.Second)))
}

func TestKeysAreIndependent(t *testing.T) {
	c := NewCounter()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 10 * time.Second

	c.Record("g1", "a1", event.ActionBan, now)
	c.Record("g1", "a1", event.ActionKick, now)
	c.Record("g1", "a2", event.ActionBan, now)
	c.Record("g2", "a1", event.ActionBan, now)

	assert.Equal(t, 1, c.Count("g1", "a1", event.ActionBan, window, now))
	assert.Equal(t, 1, c.Count("g1", "a1", event.ActionKick, window, now))
	assert.Equal(t, 1, c.Count("g1", "a2", event.ActionBan, window, now))
	assert.Equal(t, 1, c.Count("g2", "a1", event.ActionBan, window, now))
}

func TestCountOnEmptyCounter(t *testing.T) {
	c := NewCounter()
	now := time.Now()
	assert.Zero(t, c.Count("g1", "a1", event.ActionBan, 10*time.Second, now))
}

func TestSweepDropsStaleKeys(t *testing.T) {
	c := NewCounter()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	c.Record("g1", "stale", event.ActionBan, base)
	c.Record("g1", "fresh", event.ActionBan, base.Add(time.Hour))
	require.Equal(t, 2, c.TrackedKeys())

	removed := c.Sweep(func(event.ActionType) time.Time {
		return base.Add(30 * time.Minute)
	})

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.TrackedKeys())
	assert.Equal(t, 1, c.Count("g1", "fresh", event.ActionBan, time.Hour, base.Add(time.Hour)))
}

func TestSweepIsIdempotent(t *testing.T) {
	c := NewCounter()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.Record("g1", "a1", event.ActionBan, base)

	cutoff := func(event.ActionType) time.Time { return base.Add(time.Minute) }
	assert.Equal(t, 1, c.Sweep(cutoff))
	assert.Zero(t, c.Sweep(cutoff))
	assert.Zero(t, c.TrackedKeys())
}

func TestConcurrentRecordAndCount(t *testing.T) {
	c := NewCounter()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	window := time.Minute

	const goroutines = 16
	const perGoroutine = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				c.RecordAndCount("g1", "a1", event.ActionBan, window, now)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*perGoroutine, c.Count("g1", "a1", event.ActionBan, window, now))
}
