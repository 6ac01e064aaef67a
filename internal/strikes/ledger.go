// Package strikes keeps per-actor penalty markers with independent
// time-based expiry. Unlike window counters, strikes accumulate
// across different action types.
package strikes

import (
	"hash/fnv"
	"sync"
	"time"
)

// Strike is one timestamped penalty record. Never mutated; only
// appended or pruned.
type Strike struct {
	GuildID   string
	ActorID   string
	Reason    string
	CreatedAt time.Time
}

// Key identifies one actor's ledger in one guild.
type Key struct {
	GuildID string
	ActorID string
}

// Persister receives strikes as they are added so they survive
// restarts. Persistence failures are the caller's concern; the
// in-memory ledger is already updated when it is invoked.
type Persister interface {
	SaveStrike(s Strike) error
}

const shardCount = 32

type shard struct {
	mu      sync.Mutex
	entries map[Key][]Strike
}

// Ledger is the process-wide strike store, sharded like the window
// counter.
type Ledger struct {
	shards  [shardCount]shard
	persist Persister
}

func NewLedger(persist Persister) *Ledger {
	l := &Ledger{persist: persist}
	for i := range l.shards {
		l.shards[i].entries = make(map[Key][]Strike)
	}
	return l
}

func (l *Ledger) shardFor(k Key) *shard {
	h := fnv.New32a()
	h.Write([]byte(k.GuildID))
	h.Write([]byte{0})
	h.Write([]byte(k.ActorID))
	return &l.shards[h.Sum32()%shardCount]
}

// Add appends a strike and write-through persists it. The persist
// call happens outside the shard lock.
func (l *Ledger) Add(guildID, actorID, reason string, at time.Time) error {
	k := Key{GuildID: guildID, ActorID: actorID}
	st := Strike{GuildID: guildID, ActorID: actorID, Reason: reason, CreatedAt: at}

	s := l.shardFor(k)
	s.mu.Lock()
	s.entries[k] = append(s.entries[k], st)
	s.mu.Unlock()

	if l.persist != nil {
		return l.persist.SaveStrike(st)
	}
	return nil
}

// Load seeds the ledger from persisted strikes at startup, bypassing
// the persister.
func (l *Ledger) Load(strikes []Strike) {
	for _, st := range strikes {
		k := Key{GuildID: st.GuildID, ActorID: st.ActorID}
		s := l.shardFor(k)
		s.mu.Lock()
		s.entries[k] = append(s.entries[k], st)
		s.mu.Unlock()
	}
}

// Count returns the number of unexpired strikes, compacting the
// stored list to the retained entries.
func (l *Ledger) Count(guildID, actorID string, expiry time.Duration, now time.Time) int {
	k := Key{GuildID: guildID, ActorID: actorID}
	s := l.shardFor(k)

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.entries[k]
	if len(entries) == 0 {
		return 0
	}

	cutoff := now.Add(-expiry)
	kept := entries[:0]
	for _, st := range entries {
		if !st.CreatedAt.Before(cutoff) {
			kept = append(kept, st)
		}
	}

	if len(kept) == 0 {
		delete(s.entries, k)
		return 0
	}
	s.entries[k] = kept
	return len(kept)
}

// Sweep drops strikes older than the expiry reported by expiryFor
// (per guild), one shard at a time. Returns removed entry count.
func (l *Ledger) Sweep(expiryFor func(guildID string) time.Duration, now time.Time) int {
	removed := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		for k, entries := range s.entries {
			cutoff := now.Add(-expiryFor(k.GuildID))
			kept := entries[:0]
			for _, st := range entries {
				if !st.CreatedAt.Before(cutoff) {
					kept = append(kept, st)
				}
			}
			removed += len(entries) - len(kept)
			if len(kept) == 0 {
				delete(s.entries, k)
			} else {
				s.entries[k] = kept
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// TrackedActors reports how many (guild, actor) ledgers are held.
func (l *Ledger) TrackedActors() int {
	total := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}
