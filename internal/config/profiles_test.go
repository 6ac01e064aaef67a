package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-sentinel/internal/event"
)

func TestThresholdForFallsBackToDefaults(t *testing.T) {
	p := NewProfile("g1")

	assert.Equal(t, DefaultThresholds[event.ActionBan], p.ThresholdFor(event.ActionBan))

	// Zero-valued guild settings never win over the defaults.
	p.Thresholds[event.ActionBan] = Threshold{Count: 0, Window: 0}
	assert.Equal(t, DefaultThresholds[event.ActionBan], p.ThresholdFor(event.ActionBan))

	p.Thresholds[event.ActionBan] = Threshold{Count: 2, Window: 5 * time.Second}
	assert.Equal(t, Threshold{Count: 2, Window: 5 * time.Second}, p.ThresholdFor(event.ActionBan))
}

func TestNilProfileUsesDefaults(t *testing.T) {
	var p *Profile

	assert.Equal(t, DefaultThresholds[event.ActionKick], p.ThresholdFor(event.ActionKick))
	assert.Equal(t, DefaultStrikesToBan, p.EffectiveStrikesToBan())
	assert.Equal(t, DefaultStrikeExpiry, p.EffectiveStrikeExpiry())
}

func TestCloneIsDeep(t *testing.T) {
	p := NewProfile("g1")
	p.WhitelistUsers["u1"] = struct{}{}
	p.Thresholds[event.ActionBan] = Threshold{Count: 2, Window: 5 * time.Second}

	cp := p.Clone()
	cp.WhitelistUsers["u2"] = struct{}{}
	cp.Thresholds[event.ActionBan] = Threshold{Count: 9, Window: time.Minute}

	assert.NotContains(t, p.WhitelistUsers, "u2")
	assert.Equal(t, 2, p.Thresholds[event.ActionBan].Count)
}

func TestStoreGetCreatesDefaultProfile(t *testing.T) {
	ps := NewProfileStore()

	p := ps.Get("g1")
	require.NotNil(t, p)
	assert.Equal(t, "g1", p.GuildID)
	assert.True(t, p.RecordExempt)
	assert.Contains(t, ps.GuildIDs(), "g1")
}

func TestUpdateReplacesSnapshot(t *testing.T) {
	ps := NewProfileStore()
	before := ps.Get("g1")

	require.NoError(t, ps.Update("g1", func(p *Profile) {
		p.LogChannelID = "chan-1"
	}))

	// The previously handed-out snapshot is untouched.
	assert.Empty(t, before.LogChannelID)
	assert.Equal(t, "chan-1", ps.Get("g1").LogChannelID)
}

func TestUpdateInvokesPersister(t *testing.T) {
	ps := NewProfileStore()

	var persisted []*Profile
	ps.SetPersister(func(p *Profile) error {
		persisted = append(persisted, p)
		return nil
	})

	require.NoError(t, ps.Update("g1", func(p *Profile) {
		p.WhitelistUsers["u1"] = struct{}{}
	}))

	require.Len(t, persisted, 1)
	assert.Contains(t, persisted[0].WhitelistUsers, "u1")
}

func TestLongestWindowSpansGuilds(t *testing.T) {
	ps := NewProfileStore()
	assert.Equal(t, DefaultThresholds[event.ActionBan].Window, ps.LongestWindow(event.ActionBan))

	require.NoError(t, ps.Update("g1", func(p *Profile) {
		p.Thresholds[event.ActionBan] = Threshold{Count: 3, Window: time.Hour}
	}))
	require.NoError(t, ps.Update("g2", func(p *Profile) {
		p.Thresholds[event.ActionBan] = Threshold{Count: 3, Window: time.Minute}
	}))

	assert.Equal(t, time.Hour, ps.LongestWindow(event.ActionBan))
}

func TestLongestStrikeExpirySpansGuilds(t *testing.T) {
	ps := NewProfileStore()
	assert.Equal(t, DefaultStrikeExpiry, ps.LongestStrikeExpiry())

	require.NoError(t, ps.Update("g1", func(p *Profile) {
		p.StrikeExpiry = 72 * time.Hour
	}))
	assert.Equal(t, 72*time.Hour, ps.LongestStrikeExpiry())
}
