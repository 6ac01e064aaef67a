// Package feed turns discordgo gateway events into attributed
// ActionEvents and hands them to the engine, one goroutine per event.
package feed

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"go-sentinel/internal/audit"
	"go-sentinel/internal/clock"
	"go-sentinel/internal/config"
	"go-sentinel/internal/engine"
	"go-sentinel/internal/event"
	"go-sentinel/internal/metrics"
)

type Feed struct {
	session    *discordgo.Session
	engine     *engine.Engine
	correlator *audit.Correlator
	profiles   *config.ProfileStore
	metrics    *metrics.Recorder
	clock      clock.Clock
	log        *zap.Logger
	permCache  *rolePermCache

	ctx       context.Context
	heartbeat func()
}

func New(
	session *discordgo.Session,
	eng *engine.Engine,
	correlator *audit.Correlator,
	profiles *config.ProfileStore,
	rec *metrics.Recorder,
	clk clock.Clock,
	log *zap.Logger,
) *Feed {
	return &Feed{
		session:    session,
		engine:     eng,
		correlator: correlator,
		profiles:   profiles,
		metrics:    rec,
		clock:      clk,
		log:        log,
		permCache:  newRolePermCache(),
		heartbeat:  func() {},
	}
}

func (f *Feed) SetHeartbeat(fn func()) {
	if fn != nil {
		f.heartbeat = fn
	}
}

// Register installs every gateway handler. ctx bounds the lifetime of
// all attribution lookups and engine calls spawned by the feed.
func (f *Feed) Register(ctx context.Context) {
	f.ctx = ctx

	f.session.AddHandler(f.onGuildCreate)
	f.session.AddHandler(f.onGuildBanAdd)
	f.session.AddHandler(f.onGuildMemberRemove)
	f.session.AddHandler(f.onChannelCreate)
	f.session.AddHandler(f.onChannelDelete)
	f.session.AddHandler(f.onGuildRoleCreate)
	f.session.AddHandler(f.onGuildRoleDelete)
	f.session.AddHandler(f.onGuildRoleUpdate)
	f.session.AddHandler(f.onWebhooksUpdate)
	f.session.AddHandler(f.onGuildEmojisUpdate)
	f.session.AddHandler(f.onGuildMemberAdd)
	f.session.AddHandler(f.onGuildMemberUpdate)

	f.log.Info("gateway handlers registered")
}

func (f *Feed) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	for _, role := range g.Roles {
		f.permCache.set(role.ID, role.Permissions)
	}
	// Materialize the profile so the guild shows up in sweeps and the
	// command surface immediately.
	f.profiles.Get(g.ID)
	f.log.Info("guild loaded", zap.String("guild_id", g.ID), zap.String("name", g.Name))
}

func (f *Feed) onGuildBanAdd(_ *discordgo.Session, e *discordgo.GuildBanAdd) {
	go f.dispatch(event.ActionBan, e.GuildID, e.User.ID, false)
}

// onGuildMemberRemove cannot distinguish a kick from a voluntary
// leave; only an audit entry naming this member as kick target makes
// it a kick. A miss is the normal case, so it stays quiet.
func (f *Feed) onGuildMemberRemove(_ *discordgo.Session, e *discordgo.GuildMemberRemove) {
	go f.dispatch(event.ActionKick, e.GuildID, e.User.ID, true)
}

func (f *Feed) onChannelCreate(_ *discordgo.Session, e *discordgo.ChannelCreate) {
	if e.GuildID == "" {
		return
	}
	go f.dispatch(event.ActionChannelCreate, e.GuildID, e.ID, false)
}

func (f *Feed) onChannelDelete(_ *discordgo.Session, e *discordgo.ChannelDelete) {
	if e.GuildID == "" {
		return
	}
	go f.dispatch(event.ActionChannelDelete, e.GuildID, e.ID, false)
}

func (f *Feed) onGuildRoleCreate(_ *discordgo.Session, e *discordgo.GuildRoleCreate) {
	f.permCache.set(e.Role.ID, e.Role.Permissions)
	go f.dispatch(event.ActionRoleCreate, e.GuildID, e.Role.ID, false)
}

func (f *Feed) onGuildRoleDelete(_ *discordgo.Session, e *discordgo.GuildRoleDelete) {
	f.permCache.delete(e.RoleID)
	go f.dispatch(event.ActionRoleDelete, e.GuildID, e.RoleID, false)
}

// onGuildRoleUpdate reverts dangerous permission escalations before
// the actor is punished for them.
func (f *Feed) onGuildRoleUpdate(_ *discordgo.Session, e *discordgo.GuildRoleUpdate) {
	prior, known := f.permCache.get(e.Role.ID)
	f.permCache.set(e.Role.ID, e.Role.Permissions)

	if !known || !hasDangerousElevation(prior, e.Role.Permissions) {
		return
	}

	go func() {
		restored := prior
		if _, err := f.session.GuildRoleEdit(e.GuildID, e.Role.ID, &discordgo.RoleParams{
			Permissions: &restored,
		}); err != nil {
			f.log.Warn("permission revert failed",
				zap.String("guild_id", e.GuildID),
				zap.String("role_id", e.Role.ID),
				zap.Error(err))
		} else {
			f.permCache.set(e.Role.ID, prior)
			f.log.Info("dangerous permission grant reverted",
				zap.String("guild_id", e.GuildID),
				zap.String("role_id", e.Role.ID))
		}

		f.dispatch(event.ActionPermissionGrant, e.GuildID, e.Role.ID, false)
	}()
}

// onWebhooksUpdate carries no creator; only the audit log can say who
// made a webhook, or whether one was even created.
func (f *Feed) onWebhooksUpdate(_ *discordgo.Session, e *discordgo.WebhooksUpdate) {
	go f.dispatch(event.ActionWebhookCreate, e.GuildID, "", true)
}

func (f *Feed) onGuildEmojisUpdate(_ *discordgo.Session, e *discordgo.GuildEmojisUpdate) {
	go f.dispatch(event.ActionEmojiCreate, e.GuildID, "", true)
}

// onGuildMemberAdd bans bots that were added without being
// whitelisted. The joining bot is its own actor here; no attribution
// needed.
func (f *Feed) onGuildMemberAdd(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.User == nil || !e.User.Bot {
		return
	}

	ev := event.ActionEvent{
		GuildID:    e.GuildID,
		ActorID:    e.User.ID,
		Type:       event.ActionBotAdded,
		TargetID:   e.User.ID,
		OccurredAt: f.clock.Now(),
	}
	go func() {
		defer f.heartbeat()
		f.engine.HandleEvent(f.ctx, ev)
	}()
}

// onGuildMemberUpdate watches for grants of whitelisted roles:
// handing out a protected role is itself a privileged operation worth
// tracking.
func (f *Feed) onGuildMemberUpdate(_ *discordgo.Session, e *discordgo.GuildMemberUpdate) {
	if e.BeforeUpdate == nil {
		return
	}

	profile := f.profiles.Get(e.GuildID)
	if len(profile.WhitelistRoles) == 0 {
		return
	}

	before := make(map[string]struct{}, len(e.BeforeUpdate.Roles))
	for _, id := range e.BeforeUpdate.Roles {
		before[id] = struct{}{}
	}

	for _, id := range e.Roles {
		if _, had := before[id]; had {
			continue
		}
		if _, protected := profile.WhitelistRoles[id]; protected {
			go f.dispatch(event.ActionProtectedRoleGranted, e.GuildID, e.User.ID, false)
			return
		}
	}
}

// dispatch attributes the observed effect and runs the engine
// pipeline. quietMiss suppresses the unknown-actor path for events
// where no audit match is the normal case.
func (f *Feed) dispatch(action event.ActionType, guildID, targetID string, quietMiss bool) {
	defer f.heartbeat()

	start := f.clock.Now()
	actorID, ok := f.correlator.Attribute(f.ctx, guildID, action, targetID)
	f.metrics.AttributionLatency(f.clock.Now().Sub(start))

	if !ok && quietMiss {
		f.log.Debug("no audit match for effect",
			zap.String("guild_id", guildID),
			zap.String("action", action.String()))
		return
	}

	f.engine.HandleEvent(f.ctx, event.ActionEvent{
		GuildID:    guildID,
		ActorID:    actorID,
		Type:       action,
		TargetID:   targetID,
		OccurredAt: f.clock.Now(),
	})
}
