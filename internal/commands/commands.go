package commands

import "github.com/bwmarrin/discordgo"

// Definitions returns the full slash-command set registered on
// startup.
func Definitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "sentinel",
			Description: "Server protection controls",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "whitelist",
					Description: "Manage trusted users and roles",
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        "add",
							Description: "Exempt a user or role from detection",
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Options: []*discordgo.ApplicationCommandOption{
								{
									Name:        "user",
									Description: "User to exempt",
									Type:        discordgo.ApplicationCommandOptionUser,
								},
								{
									Name:        "role",
									Description: "Role to exempt",
									Type:        discordgo.ApplicationCommandOptionRole,
								},
							},
						},
						{
							Name:        "remove",
							Description: "Remove a user or role exemption",
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Options: []*discordgo.ApplicationCommandOption{
								{
									Name:        "user",
									Description: "User to remove",
									Type:        discordgo.ApplicationCommandOptionUser,
								},
								{
									Name:        "role",
									Description: "Role to remove",
									Type:        discordgo.ApplicationCommandOptionRole,
								},
							},
						},
						{
							Name:        "view",
							Description: "Show the current whitelist",
							Type:        discordgo.ApplicationCommandOptionSubCommand,
						},
					},
				},
				{
					Name:        "setlog",
					Description: "Set the incident log channel",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:         "channel",
							Description:  "Channel for incident reports",
							Type:         discordgo.ApplicationCommandOptionChannel,
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
							Required:     true,
						},
					},
				},
				{
					Name:        "limit",
					Description: "Set the detection limit for an action",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        "action",
							Description: "Action to tune",
							Type:        discordgo.ApplicationCommandOptionString,
							Required:    true,
							Choices:     actionChoices(),
						},
						{
							Name:        "count",
							Description: "Actions allowed inside the window",
							Type:        discordgo.ApplicationCommandOptionInteger,
							Required:    true,
						},
						{
							Name:        "window",
							Description: "Window length in seconds",
							Type:        discordgo.ApplicationCommandOptionInteger,
							Required:    true,
						},
					},
				},
				{
					Name:        "show",
					Description: "Show the active protection settings",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name:        "status",
					Description: "Runtime health and statistics",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
			},
		},
		{
			Name:        "strike",
			Description: "Record a manual strike against a member",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "user",
					Description: "Member to strike",
					Type:        discordgo.ApplicationCommandOptionUser,
					Required:    true,
				},
				{
					Name:        "reason",
					Description: "Why the strike is recorded",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
				},
			},
		},
		{
			Name:        "punish",
			Description: "Apply the sanction chain to a member",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "user",
					Description: "Member to sanction",
					Type:        discordgo.ApplicationCommandOptionUser,
					Required:    true,
				},
				{
					Name:        "reason",
					Description: "Why the sanction is applied",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
				},
			},
		},
	}
}
