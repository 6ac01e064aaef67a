package config

import (
	"sync"
	"time"

	"go-sentinel/internal/event"
)

// Threshold is a per-action detection limit: Count occurrences within
// Window trigger a detection.
type Threshold struct {
	Count  int           `json:"count"`
	Window time.Duration `json:"window"`
}

// DefaultThresholds mirrors the documented per-action defaults. A
// missing or zero-valued guild threshold falls back here, never to
// "never trigger" or "always trigger".
var DefaultThresholds = map[event.ActionType]Threshold{
	event.ActionBan:                  {Count: 3, Window: 10 * time.Second},
	event.ActionKick:                 {Count: 5, Window: 10 * time.Second},
	event.ActionChannelDelete:        {Count: 4, Window: 8 * time.Second},
	event.ActionChannelCreate:        {Count: 6, Window: 8 * time.Second},
	event.ActionRoleDelete:           {Count: 6, Window: 8 * time.Second},
	event.ActionRoleCreate:           {Count: 8, Window: 8 * time.Second},
	event.ActionWebhookCreate:        {Count: 5, Window: 10 * time.Second},
	event.ActionEmojiCreate:          {Count: 10, Window: 20 * time.Second},
	event.ActionPermissionGrant:      {Count: 1, Window: time.Second},
	event.ActionBotAdded:             {Count: 1, Window: time.Second},
	event.ActionProtectedRoleGranted: {Count: 1, Window: time.Second},
}

const (
	DefaultStrikesToBan = 3
	DefaultStrikeExpiry = 24 * time.Hour
)

// Profile is one guild's detection configuration. Profiles are
// treated as immutable snapshots: mutation goes through the store,
// which replaces the whole value, so readers never observe a partial
// update.
type Profile struct {
	GuildID        string
	LogChannelID   string
	WhitelistUsers map[string]struct{}
	WhitelistRoles map[string]struct{}
	Thresholds     map[event.ActionType]Threshold
	StrikesToBan   int
	StrikeExpiry   time.Duration
	// RecordExempt keeps recording window entries for exempt actors
	// so operators retain audit visibility.
	RecordExempt bool
}

func NewProfile(guildID string) *Profile {
	return &Profile{
		GuildID:        guildID,
		WhitelistUsers: make(map[string]struct{}),
		WhitelistRoles: make(map[string]struct{}),
		Thresholds:     make(map[event.ActionType]Threshold),
		StrikesToBan:   DefaultStrikesToBan,
		StrikeExpiry:   DefaultStrikeExpiry,
		RecordExempt:   true,
	}
}

// ThresholdFor resolves the effective threshold for an action,
// falling back to the defaults when unset or zero.
func (p *Profile) ThresholdFor(action event.ActionType) Threshold {
	if p != nil {
		if th, ok := p.Thresholds[action]; ok && th.Count > 0 && th.Window > 0 {
			return th
		}
	}
	if th, ok := DefaultThresholds[action]; ok {
		return th
	}
	return Threshold{Count: 3, Window: 10 * time.Second}
}

func (p *Profile) EffectiveStrikesToBan() int {
	if p == nil || p.StrikesToBan <= 0 {
		return DefaultStrikesToBan
	}
	return p.StrikesToBan
}

func (p *Profile) EffectiveStrikeExpiry() time.Duration {
	if p == nil || p.StrikeExpiry <= 0 {
		return DefaultStrikeExpiry
	}
	return p.StrikeExpiry
}

// Clone returns a deep copy suitable for mutate-then-replace updates.
func (p *Profile) Clone() *Profile {
	cp := NewProfile(p.GuildID)
	cp.LogChannelID = p.LogChannelID
	cp.StrikesToBan = p.StrikesToBan
	cp.StrikeExpiry = p.StrikeExpiry
	cp.RecordExempt = p.RecordExempt
	for id := range p.WhitelistUsers {
		cp.WhitelistUsers[id] = struct{}{}
	}
	for id := range p.WhitelistRoles {
		cp.WhitelistRoles[id] = struct{}{}
	}
	for action, th := range p.Thresholds {
		cp.Thresholds[action] = th
	}
	return cp
}

// ProfileStore holds per-guild profiles. Single writer (the command
// layer), many readers (the engine hot path); published profiles are
// never mutated in place.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	persist  func(*Profile) error
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]*Profile),
	}
}

// SetPersister installs a write-through hook invoked after every
// profile replacement. Persistence failures do not roll back the
// in-memory update.
func (ps *ProfileStore) SetPersister(persist func(*Profile) error) {
	ps.mu.Lock()
	ps.persist = persist
	ps.mu.Unlock()
}

// Get returns the guild's profile, creating a default one lazily.
func (ps *ProfileStore) Get(guildID string) *Profile {
	ps.mu.RLock()
	p := ps.profiles[guildID]
	ps.mu.RUnlock()
	if p != nil {
		return p
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if p = ps.profiles[guildID]; p != nil {
		return p
	}
	p = NewProfile(guildID)
	ps.profiles[guildID] = p
	return p
}

// Replace publishes a new profile snapshot for its guild.
func (ps *ProfileStore) Replace(p *Profile) error {
	ps.mu.Lock()
	ps.profiles[p.GuildID] = p
	persist := ps.persist
	ps.mu.Unlock()

	if persist != nil {
		return persist(p)
	}
	return nil
}

// Update clones the guild's profile, applies fn, and publishes the
// result. This is the only mutation path.
func (ps *ProfileStore) Update(guildID string, fn func(*Profile)) error {
	cp := ps.Get(guildID).Clone()
	fn(cp)
	return ps.Replace(cp)
}

// GuildIDs lists every guild with a tracked profile.
func (ps *ProfileStore) GuildIDs() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	ids := make([]string, 0, len(ps.profiles))
	for id := range ps.profiles {
		ids = append(ids, id)
	}
	return ids
}

// LongestWindow reports the longest configured window for an action
// across all guilds. The cleanup sweep uses it as the retention bound
// so memory stays bounded even for idle actors.
func (ps *ProfileStore) LongestWindow(action event.ActionType) time.Duration {
	longest := DefaultThresholds[action].Window

	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for _, p := range ps.profiles {
		if th, ok := p.Thresholds[action]; ok && th.Window > longest {
			longest = th.Window
		}
	}
	return longest
}

// LongestStrikeExpiry reports the longest strike expiry across all
// guilds, used the same way by the sweep.
func (ps *ProfileStore) LongestStrikeExpiry() time.Duration {
	longest := DefaultStrikeExpiry

	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for _, p := range ps.profiles {
		if p.StrikeExpiry > longest {
			longest = p.StrikeExpiry
		}
	}
	return longest
}
