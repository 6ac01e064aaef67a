// Package audit attributes observed effects ("a channel vanished") to
// the actor who caused them, via the guild audit log. Attribution is
// best-effort: a definite "not found" is a normal outcome, never a
// fault.
package audit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"go-sentinel/internal/clock"
	"go-sentinel/internal/event"
)

// Entry is one audit-log record in the shape the correlator needs.
type Entry struct {
	ActorID    string
	TargetID   string
	ActorIsBot bool
	CreatedAt  time.Time
}

// Fetcher reads recent audit entries for one action type. Implemented
// over discordgo; faked in tests.
type Fetcher interface {
	RecentEntries(guildID string, auditAction, limit int) ([]Entry, error)
}

// actionCodes maps engine action types to Discord audit-log action
// codes.
var actionCodes = map[event.ActionType]int{
	event.ActionBan:                  int(discordgo.AuditLogActionMemberBanAdd),
	event.ActionKick:                 int(discordgo.AuditLogActionMemberKick),
	event.ActionChannelCreate:        int(discordgo.AuditLogActionChannelCreate),
	event.ActionChannelDelete:        int(discordgo.AuditLogActionChannelDelete),
	event.ActionRoleCreate:           int(discordgo.AuditLogActionRoleCreate),
	event.ActionRoleDelete:           int(discordgo.AuditLogActionRoleDelete),
	event.ActionWebhookCreate:        int(discordgo.AuditLogActionWebhookCreate),
	event.ActionEmojiCreate:          int(discordgo.AuditLogActionEmojiCreate),
	event.ActionPermissionGrant:      int(discordgo.AuditLogActionRoleUpdate),
	event.ActionBotAdded:             int(discordgo.AuditLogActionBotAdd),
	event.ActionProtectedRoleGranted: int(discordgo.AuditLogActionMemberRoleUpdate),
}

type cacheEntry struct {
	actorID  string
	storedAt time.Time
}

// Correlator performs bounded-retry lookups with a short-TTL cache so
// a burst of effects from one spree does not refetch the audit log
// per event.
type Correlator struct {
	fetcher  Fetcher
	clock    clock.Clock
	log      *zap.Logger
	attempts int
	backoff  time.Duration
	// maxAge bounds how stale an audit entry may be and still count
	// as the cause of a just-observed effect.
	maxAge   time.Duration
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewCorrelator(fetcher Fetcher, clk clock.Clock, log *zap.Logger, attempts int, backoff time.Duration) *Correlator {
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 400 * time.Millisecond
	}
	return &Correlator{
		fetcher:  fetcher,
		clock:    clk,
		log:      log,
		attempts: attempts,
		backoff:  backoff,
		maxAge:   60 * time.Second,
		cacheTTL: 5 * time.Second,
		cache:    make(map[string]cacheEntry),
	}
}

// Attribute resolves the actor behind an observed effect. targetID
// may be empty when the platform event carries no target (webhook and
// emoji updates); then the most recent qualifying entry wins. Returns
// ("", false) when no actor could be determined — the caller drops
// the event for sanction purposes.
func (c *Correlator) Attribute(ctx context.Context, guildID string, action event.ActionType, targetID string) (string, bool) {
	code, ok := actionCodes[action]
	if !ok {
		return "", false
	}

	cacheKey := guildID + ":" + strconv.Itoa(code) + ":" + targetID
	if actorID, ok := c.cached(cacheKey); ok {
		return actorID, true
	}

	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", false
			case <-time.After(c.backoff):
			}
		}

		entries, err := c.fetcher.RecentEntries(guildID, code, 5)
		if err != nil {
			c.log.Warn("audit fetch failed",
				zap.String("guild_id", guildID),
				zap.String("action", action.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}

		if actorID, ok := c.match(entries, targetID); ok {
			c.store(cacheKey, actorID)
			return actorID, true
		}
	}

	return "", false
}

func (c *Correlator) match(entries []Entry, targetID string) (string, bool) {
	now := c.clock.Now()
	for _, e := range entries {
		if e.ActorIsBot {
			// Other bots' administrative actions are their operators'
			// problem; correlating them would punish automation that
			// was explicitly invited.
			continue
		}
		if !e.CreatedAt.IsZero() && now.Sub(e.CreatedAt) > c.maxAge {
			continue
		}
		if targetID != "" && e.TargetID != "" && e.TargetID != targetID {
			continue
		}
		if e.ActorID == "" {
			continue
		}
		return e.ActorID, true
	}
	return "", false
}

func (c *Correlator) cached(key string) (string, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.cache[key]; ok && now.Sub(e.storedAt) < c.cacheTTL {
		return e.actorID, true
	}
	return "", false
}

func (c *Correlator) store(key, actorID string) {
	now := c.clock.Now()

	c.mu.Lock()
	c.cache[key] = cacheEntry{actorID: actorID, storedAt: now}
	for k, e := range c.cache {
		if now.Sub(e.storedAt) >= c.cacheTTL {
			delete(c.cache, k)
		}
	}
	c.mu.Unlock()
}

// SessionFetcher implements Fetcher over a live discordgo session.
type SessionFetcher struct {
	Session *discordgo.Session
}

func (f *SessionFetcher) RecentEntries(guildID string, auditAction, limit int) ([]Entry, error) {
	log, err := f.Session.GuildAuditLog(guildID, "", "", auditAction, limit)
	if err != nil {
		return nil, err
	}

	bots := make(map[string]bool, len(log.Users))
	for _, u := range log.Users {
		bots[u.ID] = u.Bot
	}

	entries := make([]Entry, 0, len(log.AuditLogEntries))
	for _, e := range log.AuditLogEntries {
		entry := Entry{
			ActorID:    e.UserID,
			TargetID:   e.TargetID,
			ActorIsBot: bots[e.UserID],
		}
		if ts, err := discordgo.SnowflakeTimestamp(e.ID); err == nil {
			entry.CreatedAt = ts
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
