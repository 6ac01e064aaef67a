package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"go-sentinel/internal/config"
)

// pickTarget extracts the user-or-role option pair shared by the
// whitelist add and remove subcommands.
func (h *Handler) pickTarget(i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (id, kind, name string) {
	for _, opt := range opts {
		switch opt.Name {
		case "user":
			u := opt.UserValue(h.session)
			if u != nil {
				return u.ID, "user", u.Username
			}
		case "role":
			r := opt.RoleValue(h.session, i.GuildID)
			if r != nil {
				return r.ID, "role", r.Name
			}
		}
	}
	return "", "", ""
}

func (h *Handler) handleWhitelistAdd(i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	allowed, err := h.requireOwner(i)
	if err != nil || !allowed {
		return err
	}

	id, kind, name := h.pickTarget(i, opts)
	if id == "" {
		return fmt.Errorf("specify a user or a role")
	}

	err = h.profiles.Update(i.GuildID, func(p *config.Profile) {
		if kind == "user" {
			p.WhitelistUsers[id] = struct{}{}
		} else {
			p.WhitelistRoles[id] = struct{}{}
		}
	})
	if err != nil {
		return err
	}

	h.log.Info("whitelist entry added",
		zap.String("guild_id", i.GuildID),
		zap.String("kind", kind),
		zap.String("target_id", id))

	return h.respond(i, &discordgo.MessageEmbed{
		Title:       "Whitelist Updated",
		Description: fmt.Sprintf("**%s** (%s) is now exempt from detection.", name, kind),
		Color:       embedColor,
	})
}

func (h *Handler) handleWhitelistRemove(i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	allowed, err := h.requireOwner(i)
	if err != nil || !allowed {
		return err
	}

	id, kind, name := h.pickTarget(i, opts)
	if id == "" {
		return fmt.Errorf("specify a user or a role")
	}

	found := false
	err = h.profiles.Update(i.GuildID, func(p *config.Profile) {
		if kind == "user" {
			if _, ok := p.WhitelistUsers[id]; ok {
				found = true
				delete(p.WhitelistUsers, id)
			}
		} else {
			if _, ok := p.WhitelistRoles[id]; ok {
				found = true
				delete(p.WhitelistRoles, id)
			}
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s is not whitelisted", name)
	}

	h.log.Info("whitelist entry removed",
		zap.String("guild_id", i.GuildID),
		zap.String("kind", kind),
		zap.String("target_id", id))

	return h.respond(i, &discordgo.MessageEmbed{
		Title:       "Whitelist Updated",
		Description: fmt.Sprintf("**%s** (%s) is no longer exempt.", name, kind),
		Color:       embedColor,
	})
}

func (h *Handler) handleWhitelistView(i *discordgo.InteractionCreate) error {
	profile := h.profiles.Get(i.GuildID)

	var users, roles []string
	for id := range profile.WhitelistUsers {
		users = append(users, "<@"+id+">")
	}
	for id := range profile.WhitelistRoles {
		roles = append(roles, "<@&"+id+">")
	}

	userList := "None"
	if len(users) > 0 {
		userList = strings.Join(users, ", ")
	}
	roleList := "None"
	if len(roles) > 0 {
		roleList = strings.Join(roles, ", ")
	}

	return h.respond(i, &discordgo.MessageEmbed{
		Title: "Whitelist",
		Color: embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Users", Value: userList},
			{Name: "Roles", Value: roleList},
		},
	})
}
