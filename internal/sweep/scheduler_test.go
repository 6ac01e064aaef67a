package sweep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-sentinel/internal/clock"
	"go-sentinel/internal/config"
	"go-sentinel/internal/event"
	"go-sentinel/internal/strikes"
	"go-sentinel/internal/window"
)

func TestSweepOncePrunesWindowsAndStrikes(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(base)
	profiles := config.NewProfileStore()
	windows := window.NewCounter()
	ledger := strikes.NewLedger(nil)

	windows.Record("g1", "a1", event.ActionBan, base.Add(-time.Hour))
	windows.Record("g1", "a2", event.ActionBan, base.Add(-time.Second))
	require.NoError(t, ledger.Add("g1", "a1", "old", base.Add(-48*time.Hour)))
	require.NoError(t, ledger.Add("g1", "a1", "fresh", base.Add(-time.Hour)))

	s := NewScheduler(time.Minute, clk, profiles, windows, ledger, nil, nil, zap.NewNop())
	s.SweepOnce()

	assert.Equal(t, 1, windows.TrackedKeys())
	assert.Equal(t, 1, ledger.Count("g1", "a1", config.DefaultStrikeExpiry, base))
}

func TestSweepHonorsRaisedGuildWindow(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(base)
	profiles := config.NewProfileStore()
	require.NoError(t, profiles.Update("g1", func(p *config.Profile) {
		p.Thresholds[event.ActionBan] = config.Threshold{Count: 3, Window: time.Hour}
	}))

	windows := window.NewCounter()
	// Old by default-window standards, live under the raised window.
	windows.Record("g1", "a1", event.ActionBan, base.Add(-30*time.Minute))

	s := NewScheduler(time.Minute, clk, profiles, windows, strikes.NewLedger(nil), nil, nil, zap.NewNop())
	s.SweepOnce()

	assert.Equal(t, 1, windows.TrackedKeys())
}

func TestSweepUsesGuildStrikeExpiry(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(base)
	profiles := config.NewProfileStore()
	require.NoError(t, profiles.Update("g1", func(p *config.Profile) {
		p.StrikeExpiry = time.Hour
	}))

	ledger := strikes.NewLedger(nil)
	require.NoError(t, ledger.Add("g1", "a1", "r", base.Add(-2*time.Hour)))
	require.NoError(t, ledger.Add("g2", "a1", "r", base.Add(-2*time.Hour)))

	s := NewScheduler(time.Minute, clk, profiles, window.NewCounter(), ledger, nil, nil, zap.NewNop())
	s.SweepOnce()

	// g1's shortened expiry drops its strike; g2 keeps the default.
	assert.Zero(t, ledger.Count("g1", "a1", time.Hour, base))
	assert.Equal(t, 1, ledger.Count("g2", "a1", config.DefaultStrikeExpiry, base))
}
