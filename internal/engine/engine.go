// Package engine wires the detection pipeline: exemption gate, window
// recording, threshold evaluation, escalation, and strike
// bookkeeping.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"go-sentinel/internal/clock"
	"go-sentinel/internal/config"
	"go-sentinel/internal/detect"
	"go-sentinel/internal/event"
	"go-sentinel/internal/exempt"
	"go-sentinel/internal/hierarchy"
	"go-sentinel/internal/metrics"
	"go-sentinel/internal/notifier"
	"go-sentinel/internal/sanction"
	"go-sentinel/internal/strikes"
	"go-sentinel/internal/window"
)

// Resolver looks up guild state needed for exemption and hierarchy
// decisions. Implemented over the discordgo session state; faked in
// tests.
type Resolver interface {
	GuildOwnerID(guildID string) (string, error)
	Subject(guildID, userID string) (hierarchy.Subject, error)
	BotSubject(guildID string) (hierarchy.Subject, error)
}

// Punisher is the escalator surface the engine drives.
type Punisher interface {
	Punish(ctx context.Context, req sanction.Request) sanction.Outcome
}

// Reporter delivers incident reports. Satisfied by
// *notifier.Notifier.
type Reporter interface {
	Send(inc notifier.Incident)
}

type Engine struct {
	clock    clock.Clock
	profiles *config.ProfileStore
	windows  *window.Counter
	ledger   *strikes.Ledger
	oracle   *exempt.Oracle
	punisher Punisher
	resolver Resolver
	reporter Reporter
	metrics  *metrics.Recorder
	log      *zap.Logger

	heartbeat func()
}

func New(
	clk clock.Clock,
	profiles *config.ProfileStore,
	windows *window.Counter,
	ledger *strikes.Ledger,
	oracle *exempt.Oracle,
	punisher Punisher,
	resolver Resolver,
	reporter Reporter,
	rec *metrics.Recorder,
	log *zap.Logger,
) *Engine {
	return &Engine{
		clock:     clk,
		profiles:  profiles,
		windows:   windows,
		ledger:    ledger,
		oracle:    oracle,
		punisher:  punisher,
		resolver:  resolver,
		reporter:  reporter,
		metrics:   rec,
		log:       log,
		heartbeat: func() {},
	}
}

// SetHeartbeat installs the watchdog callback invoked once per
// processed event.
func (e *Engine) SetHeartbeat(fn func()) {
	if fn != nil {
		e.heartbeat = fn
	}
}

// Windows exposes the window store for the cleanup scheduler and the
// status surface.
func (e *Engine) Windows() *window.Counter { return e.windows }

// Ledger exposes the strike store the same way.
func (e *Engine) Ledger() *strikes.Ledger { return e.ledger }

// HandleEvent runs one attributed action event through the pipeline.
// The feed spawns one goroutine per event; everything shared behind
// this call is safe for that.
func (e *Engine) HandleEvent(ctx context.Context, ev event.ActionEvent) {
	defer e.heartbeat()

	if ev.ActorID == "" {
		// Attribution came back empty: log-only, never a bypass.
		e.metrics.AttributionFailure()
		e.log.Warn("event dropped, actor unknown",
			zap.String("guild_id", ev.GuildID),
			zap.String("action", ev.Type.String()))
		return
	}

	e.metrics.Event(ev.Type.String())

	profile := e.profiles.Get(ev.GuildID)
	th := profile.ThresholdFor(ev.Type)
	now := ev.OccurredAt
	if now.IsZero() {
		now = e.clock.Now()
	}

	ownerID, err := e.resolver.GuildOwnerID(ev.GuildID)
	if err != nil {
		e.log.Warn("guild owner lookup failed", zap.String("guild_id", ev.GuildID), zap.Error(err))
	}
	actorSubject, err := e.resolver.Subject(ev.GuildID, ev.ActorID)
	if err != nil {
		e.log.Debug("actor subject lookup failed, proceeding with bare ID",
			zap.String("guild_id", ev.GuildID),
			zap.String("actor_id", ev.ActorID),
			zap.Error(err))
		actorSubject = hierarchy.Subject{ID: ev.ActorID}
	}

	if e.oracle.IsExempt(profile, ownerID, ev.ActorID, actorSubject.RoleIDs) {
		e.handleExempt(profile, ev, th, now)
		return
	}

	count := e.windows.RecordAndCount(ev.GuildID, ev.ActorID, ev.Type, th.Window, now)

	det, ok := detect.Evaluate(ev.GuildID, ev.ActorID, ev.Type, count, th)
	if !ok {
		return
	}
	e.metrics.Detection(ev.Type.String())

	e.escalate(ctx, profile, det, actorSubject, ownerID, now)
}

// handleExempt still records the action (when the policy says so) and
// reports a detected-but-exempt notice instead of silently dropping
// the event, so operators can see exemption was the reason.
func (e *Engine) handleExempt(profile *config.Profile, ev event.ActionEvent, th config.Threshold, now time.Time) {
	if !profile.RecordExempt {
		return
	}

	count := e.windows.RecordAndCount(ev.GuildID, ev.ActorID, ev.Type, th.Window, now)
	if count < th.Count {
		return
	}

	e.metrics.ExemptDetection()
	e.log.Info("detected but exempt",
		zap.String("guild_id", ev.GuildID),
		zap.String("actor_id", ev.ActorID),
		zap.String("action", ev.Type.String()),
		zap.Int("count", count))
	e.reporter.Send(notifier.NewIncident(
		fmt.Sprintf("%s detected, actor whitelisted", ev.Type.Label()),
		ev.GuildID,
		ev.ActorID,
		fmt.Sprintf("%s (%d in window) by an exempt actor; no action taken", ev.Type.Label(), count),
		"ignored (exempt)",
		notifier.ColorNotice,
	))
}

// escalate performs the first-offense sanction, records the strike,
// and re-evaluates the fresh strike count against strikes_to_ban. A
// single event causes at most these two punish calls.
func (e *Engine) escalate(ctx context.Context, profile *config.Profile, det detect.Detection, actorSubject hierarchy.Subject, ownerID string, now time.Time) {
	botSubject, err := e.resolver.BotSubject(det.GuildID)
	if err != nil {
		e.log.Warn("bot subject lookup failed", zap.String("guild_id", det.GuildID), zap.Error(err))
	}

	reason := det.Reason()
	outcome := e.punisher.Punish(ctx, sanction.Request{
		GuildID:      det.GuildID,
		GuildOwnerID: ownerID,
		Reason:       reason,
		Actor:        botSubject,
		Target:       actorSubject,
		Enforcer:     botSubject,
	})
	e.report(det, reason, outcome)

	if err := e.ledger.Add(det.GuildID, det.ActorID, reason, now); err != nil {
		e.log.Warn("strike persist failed",
			zap.String("guild_id", det.GuildID),
			zap.String("actor_id", det.ActorID),
			zap.Error(err))
	}

	total := e.ledger.Count(det.GuildID, det.ActorID, profile.EffectiveStrikeExpiry(), now)
	if total < profile.EffectiveStrikesToBan() {
		return
	}

	escalatedReason := fmt.Sprintf("Exceeded strikes (%d)", total)
	outcome = e.punisher.Punish(ctx, sanction.Request{
		GuildID:      det.GuildID,
		GuildOwnerID: ownerID,
		Reason:       escalatedReason,
		Actor:        botSubject,
		Target:       actorSubject,
		Enforcer:     botSubject,
	})
	e.report(det, escalatedReason, outcome)
}

func (e *Engine) report(det detect.Detection, reason string, outcome sanction.Outcome) {
	result := "failed"
	switch {
	case outcome.Skipped:
		result = "skipped"
	case outcome.Succeeded:
		result = "succeeded"
	}
	e.metrics.Sanction(outcome.Attempted.String(), result)

	e.reporter.Send(notifier.NewIncident(
		det.Action.Label()+" detected",
		det.GuildID,
		det.ActorID,
		reason,
		outcome.Describe(),
		notifier.ColorAlert,
	))
}
