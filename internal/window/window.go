// Package window implements the sliding-window action counter: per
// (guild, actor, action-type) timestamp series with prune-to-window
// semantics.
package window

import (
	"hash/fnv"
	"sync"
	"time"

	"go-sentinel/internal/event"
)

// Key identifies one actor's series for one action type in one guild.
type Key struct {
	GuildID string
	ActorID string
	Action  event.ActionType
}

const shardCount = 64

type shard struct {
	mu     sync.Mutex
	series map[Key][]time.Time
}

// Counter is the process-wide window store. Keys hash to shards by
// (guild, actor) so unrelated actors never contend on the same lock.
type Counter struct {
	shards [shardCount]shard
}

func NewCounter() *Counter {
	c := &Counter{}
	for i := range c.shards {
		c.shards[i].series = make(map[Key][]time.Time)
	}
	return c
}

func (c *Counter) shardFor(guildID, actorID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(guildID))
	h.Write([]byte{0})
	h.Write([]byte(actorID))
	return &c.shards[h.Sum32()%shardCount]
}

// Record appends a timestamp to the actor's series for the action.
func (c *Counter) Record(guildID, actorID string, action event.ActionType, at time.Time) {
	s := c.shardFor(guildID, actorID)
	k := Key{GuildID: guildID, ActorID: actorID, Action: action}

	s.mu.Lock()
	s.series[k] = append(s.series[k], at)
	s.mu.Unlock()
}

// Count returns how many recorded entries fall inside
// [now-window, now], compacting the stored series to the retained
// entries as a side effect.
func (c *Counter) Count(guildID, actorID string, action event.ActionType, window time.Duration, now time.Time) int {
	s := c.shardFor(guildID, actorID)
	k := Key{GuildID: guildID, ActorID: actorID, Action: action}

	s.mu.Lock()
	defer s.mu.Unlock()
	return countLocked(s, k, window, now)
}

// RecordAndCount performs Record followed by Count under a single
// critical section, so the returned count always includes the entry
// just appended and never observes a partial append from a concurrent
// caller.
func (c *Counter) RecordAndCount(guildID, actorID string, action event.ActionType, window time.Duration, now time.Time) int {
	s := c.shardFor(guildID, actorID)
	k := Key{GuildID: guildID, ActorID: actorID, Action: action}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[k] = append(s.series[k], now)
	return countLocked(s, k, window, now)
}

func countLocked(s *shard, k Key, window time.Duration, now time.Time) int {
	entries := s.series[k]
	if len(entries) == 0 {
		return 0
	}

	cutoff := now.Add(-window)
	kept := entries[:0]
	for _, t := range entries {
		if !t.Before(cutoff) && !t.After(now) {
			kept = append(kept, t)
		}
	}

	if len(kept) == 0 {
		delete(s.series, k)
		return 0
	}
	s.series[k] = kept
	return len(kept)
}

// Sweep drops entries older than the retention bound reported by
// cutoffFor, one shard at a time so concurrent Record calls keep
// making progress. Returns the number of entries removed.
func (c *Counter) Sweep(cutoffFor func(event.ActionType) time.Time) int {
	removed := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		for k, entries := range s.series {
			cutoff := cutoffFor(k.Action)
			kept := entries[:0]
			for _, t := range entries {
				if !t.Before(cutoff) {
					kept = append(kept, t)
				}
			}
			removed += len(entries) - len(kept)
			if len(kept) == 0 {
				delete(s.series, k)
			} else {
				s.series[k] = kept
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// TrackedKeys reports how many series are currently held. Used by the
// status surface and the sweep log line.
func (c *Counter) TrackedKeys() int {
	total := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		total += len(s.series)
		s.mu.Unlock()
	}
	return total
}
