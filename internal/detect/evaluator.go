// Package detect turns post-record window counts into detections.
package detect

import (
	"fmt"

	"go-sentinel/internal/config"
	"go-sentinel/internal/event"
)

// Detection is the transient value handed to the escalator when a
// count crosses its threshold. Not persisted.
type Detection struct {
	GuildID   string
	ActorID   string
	Action    event.ActionType
	Count     int
	Threshold int
}

// Reason is the human-readable incident reason, e.g.
// "Mass ban (3 in window)".
func (d Detection) Reason() string {
	return fmt.Sprintf("%s (%d in window)", d.Action.Label(), d.Count)
}

// Evaluate compares a post-record count against the action's
// effective threshold. The threshold comes from Profile.ThresholdFor,
// which already defaults zero or missing configuration.
func Evaluate(guildID, actorID string, action event.ActionType, count int, th config.Threshold) (Detection, bool) {
	if count < th.Count {
		return Detection{}, false
	}
	return Detection{
		GuildID:   guildID,
		ActorID:   actorID,
		Action:    action,
		Count:     count,
		Threshold: th.Count,
	}, true
}
