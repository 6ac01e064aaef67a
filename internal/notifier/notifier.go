// Package notifier delivers human-readable incident reports to each
// guild's configured log channel. Delivery failures are swallowed:
// a missing channel must never become an engine fault.
package notifier

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-sentinel/internal/config"
)

// Incident is one operator-visible report.
type Incident struct {
	ID      string
	Title   string
	GuildID string
	ActorID string
	Reason  string
	Outcome string
	Color   int
}

const (
	ColorAlert  = 0xED4245
	ColorNotice = 0xFEE75C
)

// NewIncident assigns the incident its identifier.
func NewIncident(title, guildID, actorID, reason, outcome string, color int) Incident {
	return Incident{
		ID:      uuid.NewString(),
		Title:   title,
		GuildID: guildID,
		ActorID: actorID,
		Reason:  reason,
		Outcome: outcome,
		Color:   color,
	}
}

// Sink persists incidents alongside the notification path. Optional.
type Sink interface {
	RecordIncident(inc Incident) error
}

type Notifier struct {
	session  *discordgo.Session
	profiles *config.ProfileStore
	sink     Sink
	log      *zap.Logger
}

func New(session *discordgo.Session, profiles *config.ProfileStore, sink Sink, log *zap.Logger) *Notifier {
	return &Notifier{session: session, profiles: profiles, sink: sink, log: log}
}

// Send posts the incident embed to the guild's log channel. Best
// effort on every path.
func (n *Notifier) Send(inc Incident) {
	if n.sink != nil {
		if err := n.sink.RecordIncident(inc); err != nil {
			n.log.Warn("incident persist failed", zap.String("incident_id", inc.ID), zap.Error(err))
		}
	}

	if n.session == nil {
		return
	}

	channelID := n.profiles.Get(inc.GuildID).LogChannelID
	if channelID == "" {
		// Fall back to the guild's system channel when no log channel
		// is configured.
		if guild, err := n.session.State.Guild(inc.GuildID); err == nil {
			channelID = guild.SystemChannelID
		}
	}
	if channelID == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       inc.Title,
		Color:       inc.Color,
		Description: inc.Reason,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Actor",
				Value:  fmt.Sprintf("<@%s> (`%s`)", inc.ActorID, inc.ActorID),
				Inline: true,
			},
			{
				Name:   "Outcome",
				Value:  inc.Outcome,
				Inline: true,
			},
			{
				Name:   "Incident",
				Value:  fmt.Sprintf("`%s`", inc.ID),
				Inline: false,
			},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if _, err := n.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		n.log.Warn("incident notification failed",
			zap.String("guild_id", inc.GuildID),
			zap.String("channel_id", channelID),
			zap.Error(err))
	}
}
