// Package sanction drives the punishment ladder: ban, then kick, then
// privilege revocation, each step entered only if the previous one
// failed.
package sanction

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"go-sentinel/internal/config"
	"go-sentinel/internal/exempt"
	"go-sentinel/internal/hierarchy"
)

// Executor is the external surface that actually applies sanctions.
// Each call must return within its context deadline and report
// ErrInsufficientAuthority (possibly wrapped) when the platform
// rejected the attempt for rank/permission reasons.
type Executor interface {
	Ban(ctx context.Context, guildID, userID, reason string) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	RevokePrivileges(ctx context.Context, guildID, userID, reason string) error
}

// Request carries everything Punish needs, pre-resolved by the
// caller. Actor is who initiates (the bot itself for automatic
// escalation), Target is who gets sanctioned, Enforcer is the bot's
// own guild identity.
type Request struct {
	GuildID      string
	GuildOwnerID string
	Reason       string
	Actor        hierarchy.Subject
	Target       hierarchy.Subject
	Enforcer     hierarchy.Subject
}

// Escalator checks exemption and hierarchy once, then walks the
// fallback chain. No in-memory lock is held across the external
// calls; each attempt is bounded by the configured timeout.
type Escalator struct {
	exec     Executor
	oracle   *exempt.Oracle
	guard    *hierarchy.Guard
	profiles *config.ProfileStore
	timeout  time.Duration
	log      *zap.Logger
}

func NewEscalator(exec Executor, oracle *exempt.Oracle, guard *hierarchy.Guard, profiles *config.ProfileStore, timeout time.Duration, log *zap.Logger) *Escalator {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Escalator{
		exec:     exec,
		oracle:   oracle,
		guard:    guard,
		profiles: profiles,
		timeout:  timeout,
		log:      log,
	}
}

// Punish applies the chain to the request's target and always returns
// a terminal outcome.
func (e *Escalator) Punish(ctx context.Context, req Request) Outcome {
	profile := e.profiles.Get(req.GuildID)

	if e.oracle.IsExempt(profile, req.GuildOwnerID, req.Target.ID, req.Target.RoleIDs) {
		e.log.Info("sanction skipped, target exempt",
			zap.String("guild_id", req.GuildID),
			zap.String("target_id", req.Target.ID),
			zap.String("reason", req.Reason))
		return skipped("target is exempt")
	}

	if ok, denial := e.guard.CanAct(req.Actor, req.Target, req.Enforcer); !ok {
		e.log.Info("sanction skipped, hierarchy denied",
			zap.String("guild_id", req.GuildID),
			zap.String("target_id", req.Target.ID),
			zap.String("denial", denial.String()))
		return skipped(denial.String())
	}

	steps := []struct {
		kind Kind
		fn   func(context.Context, string, string, string) error
	}{
		{KindBan, e.exec.Ban},
		{KindKick, e.exec.Kick},
		{KindRevokePrivileges, e.exec.RevokePrivileges},
	}

	var lastErr error
	for _, step := range steps {
		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		err := step.fn(attemptCtx, req.GuildID, req.Target.ID, req.Reason)
		cancel()

		if err == nil {
			e.log.Info("sanction applied",
				zap.String("guild_id", req.GuildID),
				zap.String("target_id", req.Target.ID),
				zap.String("kind", step.kind.String()),
				zap.String("reason", req.Reason))
			return succeeded(step.kind)
		}

		lastErr = err
		e.log.Warn("sanction step failed, falling through",
			zap.String("guild_id", req.GuildID),
			zap.String("target_id", req.Target.ID),
			zap.String("kind", step.kind.String()),
			zap.Error(err))
	}

	return allFailed(fmt.Sprintf("last error: %v", lastErr))
}
