package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"go-sentinel/internal/config"
	"go-sentinel/internal/event"
)

func (h *Handler) handleSetLog(i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	allowed, err := h.requireOwner(i)
	if err != nil || !allowed {
		return err
	}

	var channelID string
	for _, opt := range opts {
		if opt.Name == "channel" {
			if ch := opt.ChannelValue(h.session); ch != nil {
				channelID = ch.ID
			}
		}
	}
	if channelID == "" {
		return fmt.Errorf("specify a channel")
	}

	if err := h.profiles.Update(i.GuildID, func(p *config.Profile) {
		p.LogChannelID = channelID
	}); err != nil {
		return err
	}

	h.log.Info("log channel set",
		zap.String("guild_id", i.GuildID),
		zap.String("channel_id", channelID))

	return h.respond(i, &discordgo.MessageEmbed{
		Title:       "Log Channel Set",
		Description: fmt.Sprintf("Incident reports go to <#%s>.", channelID),
		Color:       embedColor,
	})
}

func (h *Handler) handleSetLimit(i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	allowed, err := h.requireOwner(i)
	if err != nil || !allowed {
		return err
	}

	var actionName string
	var count, windowSec int64
	for _, opt := range opts {
		switch opt.Name {
		case "action":
			actionName = opt.StringValue()
		case "count":
			count = opt.IntValue()
		case "window":
			windowSec = opt.IntValue()
		}
	}

	action, ok := actionFromString(actionName)
	if !ok {
		return fmt.Errorf("unknown action: %s", actionName)
	}
	if count < 1 || count > 100 {
		return fmt.Errorf("count must be between 1 and 100")
	}
	if windowSec < 1 || windowSec > 3600 {
		return fmt.Errorf("window must be between 1 and 3600 seconds")
	}

	th := config.Threshold{
		Count:  int(count),
		Window: time.Duration(windowSec) * time.Second,
	}
	if err := h.profiles.Update(i.GuildID, func(p *config.Profile) {
		p.Thresholds[action] = th
	}); err != nil {
		return err
	}

	h.log.Info("detection limit set",
		zap.String("guild_id", i.GuildID),
		zap.String("action", action.String()),
		zap.Int("count", th.Count),
		zap.Duration("window", th.Window))

	return h.respond(i, &discordgo.MessageEmbed{
		Title:       "Limit Updated",
		Description: fmt.Sprintf("**%s**: %d in %ds now triggers a sanction.", action.Label(), th.Count, windowSec),
		Color:       embedColor,
	})
}

func (h *Handler) handleShow(i *discordgo.InteractionCreate) error {
	profile := h.profiles.Get(i.GuildID)

	fields := make([]*discordgo.MessageEmbedField, 0, len(event.All)+2)
	for _, action := range event.All {
		th := profile.ThresholdFor(action)
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   action.Label(),
			Value:  fmt.Sprintf("%d / %s", th.Count, th.Window),
			Inline: true,
		})
	}

	logValue := "Not set"
	if profile.LogChannelID != "" {
		logValue = "<#" + profile.LogChannelID + ">"
	}
	fields = append(fields,
		&discordgo.MessageEmbedField{
			Name:   "Strikes to ban",
			Value:  fmt.Sprintf("%d (expire after %s)", profile.EffectiveStrikesToBan(), profile.EffectiveStrikeExpiry()),
			Inline: true,
		},
		&discordgo.MessageEmbedField{
			Name:   "Log channel",
			Value:  logValue,
			Inline: true,
		},
	)

	return h.respond(i, &discordgo.MessageEmbed{
		Title:  "Protection Settings",
		Color:  embedColor,
		Fields: fields,
	})
}
