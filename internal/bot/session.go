// Package bot owns the Discord gateway session.
package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Session struct {
	discord *discordgo.Session
	log     *zap.Logger
	BotID   string
}

func New(token string, log *zap.Logger) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	// Guild structure, member, ban, emoji and webhook events all feed
	// the detection pipeline.
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsGuildEmojis |
		discordgo.IntentsGuildWebhooks

	dg.StateEnabled = true

	return &Session{discord: dg, log: log}, nil
}

// Discord returns the underlying discordgo session.
func (s *Session) Discord() *discordgo.Session {
	return s.discord
}

// Connect opens the gateway connection and records the bot identity.
func (s *Session) Connect() error {
	if err := s.discord.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}

	if s.discord.State.User != nil {
		s.BotID = s.discord.State.User.ID
		s.log.Info("gateway connected",
			zap.String("bot_id", s.BotID),
			zap.String("username", s.discord.State.User.Username))
	}
	return nil
}

// RegisterCommands bulk-overwrites the global application command
// set so removed commands disappear on restart.
func (s *Session) RegisterCommands(appID string, cmds []*discordgo.ApplicationCommand) error {
	if appID == "" && s.discord.State.User != nil {
		appID = s.discord.State.User.ID
	}
	if _, err := s.discord.ApplicationCommandBulkOverwrite(appID, "", cmds); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	s.log.Info("application commands registered", zap.Int("count", len(cmds)))
	return nil
}

func (s *Session) Close() error {
	return s.discord.Close()
}
