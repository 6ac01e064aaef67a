// Package commands implements the slash-command surface: whitelist
// management, detection limits, manual strikes and sanctions, and
// runtime status.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"go-sentinel/internal/clock"
	"go-sentinel/internal/config"
	"go-sentinel/internal/engine"
	"go-sentinel/internal/event"
	"go-sentinel/internal/exempt"
	"go-sentinel/internal/hierarchy"
	"go-sentinel/internal/sanction"
	"go-sentinel/internal/watchdog"
)

const embedColor = 0x2B2D31

type Handler struct {
	session  *discordgo.Session
	profiles *config.ProfileStore
	engine   *engine.Engine
	punisher *sanction.Escalator
	resolver engine.Resolver
	oracle   *exempt.Oracle
	wd       *watchdog.Watchdog
	clock    clock.Clock
	log      *zap.Logger

	startedAt time.Time
}

func NewHandler(
	session *discordgo.Session,
	profiles *config.ProfileStore,
	eng *engine.Engine,
	punisher *sanction.Escalator,
	resolver engine.Resolver,
	oracle *exempt.Oracle,
	wd *watchdog.Watchdog,
	clk clock.Clock,
	log *zap.Logger,
) *Handler {
	return &Handler{
		session:   session,
		profiles:  profiles,
		engine:    eng,
		punisher:  punisher,
		resolver:  resolver,
		oracle:    oracle,
		wd:        wd,
		clock:     clk,
		log:       log,
		startedAt: clk.Now(),
	}
}

// Register installs the interaction handler on the session. Command
// registration with Discord happens separately at startup.
func (h *Handler) Register() {
	h.session.AddHandler(h.handleInteraction)
}

func (h *Handler) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.GuildID == "" {
		h.respondError(i, "This command only works inside a server.")
		return
	}

	data := i.ApplicationCommandData()

	var err error
	switch data.Name {
	case "sentinel":
		err = h.routeSentinel(i, data)
	case "strike":
		err = h.handleStrike(i, data.Options)
	case "punish":
		err = h.handlePunish(i, data.Options)
	default:
		err = fmt.Errorf("unknown command: %s", data.Name)
	}

	if err != nil {
		h.log.Error("command failed",
			zap.String("command", data.Name),
			zap.String("guild_id", i.GuildID),
			zap.Error(err))
		h.respondError(i, err.Error())
	}
}

func (h *Handler) routeSentinel(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) error {
	if len(data.Options) == 0 {
		return fmt.Errorf("missing subcommand")
	}

	sub := data.Options[0]
	switch sub.Name {
	case "whitelist":
		if len(sub.Options) == 0 {
			return fmt.Errorf("missing whitelist subcommand")
		}
		inner := sub.Options[0]
		switch inner.Name {
		case "add":
			return h.handleWhitelistAdd(i, inner.Options)
		case "remove":
			return h.handleWhitelistRemove(i, inner.Options)
		case "view":
			return h.handleWhitelistView(i)
		}
		return fmt.Errorf("unknown whitelist subcommand: %s", inner.Name)
	case "setlog":
		return h.handleSetLog(i, sub.Options)
	case "limit":
		return h.handleSetLimit(i, sub.Options)
	case "show":
		return h.handleShow(i)
	case "status":
		return h.handleStatus(i)
	}
	return fmt.Errorf("unknown subcommand: %s", sub.Name)
}

// authorize restricts configuration and moderation commands to the
// guild owner and absolute owners.
func (h *Handler) authorize(i *discordgo.InteractionCreate) (bool, error) {
	invokerID := invoker(i)
	if invokerID == "" {
		return false, fmt.Errorf("cannot identify invoker")
	}
	if h.oracle.IsAbsoluteOwner(invokerID) {
		return true, nil
	}

	ownerID, err := h.resolver.GuildOwnerID(i.GuildID)
	if err != nil {
		return false, fmt.Errorf("resolve guild owner: %w", err)
	}
	return invokerID == ownerID, nil
}

func invoker(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func (h *Handler) requireOwner(i *discordgo.InteractionCreate) (bool, error) {
	allowed, err := h.authorize(i)
	if err != nil {
		return false, err
	}
	if !allowed {
		h.respondError(i, "Only the server owner can use this command.")
	}
	return allowed, nil
}

func (h *Handler) respond(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return h.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func (h *Handler) respondError(i *discordgo.InteractionCreate, message string) {
	h.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Error: " + message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func actionChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(event.All))
	for _, a := range event.All {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  a.Label(),
			Value: a.String(),
		})
	}
	return choices
}

func actionFromString(name string) (event.ActionType, bool) {
	for _, a := range event.All {
		if a.String() == name {
			return a, true
		}
	}
	return 0, false
}

// subjectFor resolves a member for the manual moderation path.
func (h *Handler) subjectFor(guildID, userID string) hierarchy.Subject {
	subject, err := h.resolver.Subject(guildID, userID)
	if err != nil {
		return hierarchy.Subject{ID: userID}
	}
	return subject
}

func (h *Handler) withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
