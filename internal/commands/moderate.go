package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"go-sentinel/internal/sanction"
)

// handleStrike records a manual strike. Crossing the strike limit
// triggers the same sanction chain automatic detections use.
func (h *Handler) handleStrike(i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	allowed, err := h.requireOwner(i)
	if err != nil || !allowed {
		return err
	}

	var userID, reason string
	for _, opt := range opts {
		switch opt.Name {
		case "user":
			if u := opt.UserValue(h.session); u != nil {
				userID = u.ID
			}
		case "reason":
			reason = opt.StringValue()
		}
	}
	if userID == "" || reason == "" {
		return fmt.Errorf("user and reason are required")
	}

	now := h.clock.Now()
	if err := h.engine.Ledger().Add(i.GuildID, userID, reason, now); err != nil {
		h.log.Warn("strike persistence failed",
			zap.String("guild_id", i.GuildID),
			zap.String("actor_id", userID),
			zap.Error(err))
	}

	profile := h.profiles.Get(i.GuildID)
	count := h.engine.Ledger().Count(i.GuildID, userID, profile.EffectiveStrikeExpiry(), now)
	limit := profile.EffectiveStrikesToBan()

	h.log.Info("manual strike recorded",
		zap.String("guild_id", i.GuildID),
		zap.String("actor_id", userID),
		zap.Int("count", count),
		zap.Int("limit", limit))

	description := fmt.Sprintf("<@%s> now has **%d/%d** strikes.", userID, count, limit)
	if count >= limit {
		outcome := h.applyChain(i, userID, fmt.Sprintf("Exceeded strikes (%d)", count))
		description += "\nStrike limit reached: " + outcome.Describe()
	}

	return h.respond(i, &discordgo.MessageEmbed{
		Title:       "Strike Recorded",
		Description: description,
		Color:       embedColor,
	})
}

// handlePunish runs the sanction chain with the invoker as acting
// party, so exemption and hierarchy checks apply to them, not the
// bot.
func (h *Handler) handlePunish(i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	allowed, err := h.requireOwner(i)
	if err != nil || !allowed {
		return err
	}

	var userID, reason string
	for _, opt := range opts {
		switch opt.Name {
		case "user":
			if u := opt.UserValue(h.session); u != nil {
				userID = u.ID
			}
		case "reason":
			reason = opt.StringValue()
		}
	}
	if userID == "" || reason == "" {
		return fmt.Errorf("user and reason are required")
	}

	outcome := h.applyChain(i, userID, reason)

	h.log.Info("manual sanction",
		zap.String("guild_id", i.GuildID),
		zap.String("target_id", userID),
		zap.String("invoker_id", invoker(i)),
		zap.String("outcome", outcome.Describe()))

	return h.respond(i, &discordgo.MessageEmbed{
		Title:       "Sanction",
		Description: fmt.Sprintf("<@%s>: %s", userID, outcome.Describe()),
		Color:       embedColor,
	})
}

func (h *Handler) applyChain(i *discordgo.InteractionCreate, targetID, reason string) sanction.Outcome {
	ctx, cancel := h.withTimeout()
	defer cancel()

	ownerID, err := h.resolver.GuildOwnerID(i.GuildID)
	if err != nil {
		h.log.Warn("guild owner lookup failed",
			zap.String("guild_id", i.GuildID), zap.Error(err))
	}
	enforcer, err := h.resolver.BotSubject(i.GuildID)
	if err != nil {
		h.log.Warn("bot subject lookup failed",
			zap.String("guild_id", i.GuildID), zap.Error(err))
	}

	return h.punisher.Punish(ctx, sanction.Request{
		GuildID:      i.GuildID,
		GuildOwnerID: ownerID,
		Reason:       reason,
		Actor:        h.subjectFor(i.GuildID, invoker(i)),
		Target:       h.subjectFor(i.GuildID, targetID),
		Enforcer:     enforcer,
	})
}
