package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-sentinel/internal/config"
	"go-sentinel/internal/event"
)

func TestEvaluateBelowThreshold(t *testing.T) {
	th := config.Threshold{Count: 3, Window: 10 * time.Second}

	_, ok := Evaluate("g1", "a1", event.ActionBan, 2, th)
	assert.False(t, ok)
}

func TestEvaluateAtThreshold(t *testing.T) {
	th := config.Threshold{Count: 3, Window: 10 * time.Second}

	det, ok := Evaluate("g1", "a1", event.ActionBan, 3, th)
	require.True(t, ok)
	assert.Equal(t, "g1", det.GuildID)
	assert.Equal(t, "a1", det.ActorID)
	assert.Equal(t, event.ActionBan, det.Action)
	assert.Equal(t, 3, det.Count)
	assert.Equal(t, 3, det.Threshold)
}

func TestEvaluateAboveThreshold(t *testing.T) {
	th := config.Threshold{Count: 3, Window: 10 * time.Second}

	det, ok := Evaluate("g1", "a1", event.ActionBan, 7, th)
	require.True(t, ok)
	assert.Equal(t, 7, det.Count)
}

func TestReasonIncludesLabelAndCount(t *testing.T) {
	det := Detection{Action: event.ActionBan, Count: 3}
	assert.Equal(t, "Mass ban (3 in window)", det.Reason())

	det = Detection{Action: event.ActionChannelDelete, Count: 4}
	assert.Equal(t, "Mass channel delete (4 in window)", det.Reason())
}

func TestZeroGuildThresholdFallsBackToDefault(t *testing.T) {
	p := config.NewProfile("g1")
	p.Thresholds[event.ActionBan] = config.Threshold{}

	th := p.ThresholdFor(event.ActionBan)
	assert.Equal(t, config.DefaultThresholds[event.ActionBan], th)

	// A zero threshold never yields the always-trigger behavior.
	_, ok := Evaluate("g1", "a1", event.ActionBan, 1, th)
	assert.False(t, ok)
}
