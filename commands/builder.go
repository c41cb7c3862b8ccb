package commands

import (
	"github.com/bwmarrin/discordgo"
)

var scopeChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "user", Value: "user"},
	{Name: "global", Value: "global"},
}

// GenerateCommands builds the slash command set registered per guild.
func GenerateCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "timedrole",
			Description: "Grant or adjust a timed role",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "grant",
					Description: "Grant a role for a limited duration",
					Options: []*discordgo.ApplicationCommandOption{
						userOption(true),
						roleOption(true),
						durationOption("Duration, e.g. 7d, 12h, 90m", true),
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "warn_channel",
							Description: "Channel for expiry warnings (default: DM)",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add time to an existing timed role",
					Options: []*discordgo.ApplicationCommandOption{
						userOption(true), roleOption(true), durationOption("Time to add", true),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove time from an existing timed role",
					Options: []*discordgo.ApplicationCommandOption{
						userOption(true), roleOption(true), durationOption("Time to remove", true),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "clear",
					Description: "Drop the countdown without removing the role",
					Options: []*discordgo.ApplicationCommandOption{
						userOption(true), roleOption(true),
					},
				},
			},
		},
		{
			Name:        "timer",
			Description: "Inspect timed roles",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remaining",
					Description: "Time left on a timed role",
					Options: []*discordgo.ApplicationCommandOption{
						roleOption(true), userOption(false),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "expiry",
					Description: "Absolute expiry of a timed role",
					Options: []*discordgo.ApplicationCommandOption{
						roleOption(true), userOption(false),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "Timed roles in this server, optionally for one member",
					Options: []*discordgo.ApplicationCommandOption{
						userOption(false),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "paused",
					Description: "All paused timed roles in this server",
				},
			},
		},
		{
			Name:        "timer-admin",
			Description: "Pause and resume timed roles",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "pause",
					Description: "Freeze one timed role's countdown",
					Options: []*discordgo.ApplicationCommandOption{
						userOption(true), roleOption(true), scopeOption(),
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "minutes",
							Description: "Auto-resume after this many minutes",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "resume",
					Description: "Resume one paused timed role",
					Options: []*discordgo.ApplicationCommandOption{
						userOption(true), roleOption(true), scopeOption(),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "bulk-pause",
					Description: "Pause every timed role in this server",
					Options: []*discordgo.ApplicationCommandOption{
						scopeOption(),
						roleOption(false),
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "minutes",
							Description: "Auto-resume after this many minutes",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "bulk-resume",
					Description: "Resume every matching paused timed role",
					Options: []*discordgo.ApplicationCommandOption{
						scopeOption(),
						roleOption(false),
					},
				},
			},
		},
		{
			Name:        "streak-admin",
			Description: "Manage streaks, save tokens, and reward tiers",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "save-grant",
					Description: "Give save tokens to a member",
					Options: []*discordgo.ApplicationCommandOption{
						userOption(true), amountOption(),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "save-remove",
					Description: "Take save tokens from a member",
					Options: []*discordgo.ApplicationCommandOption{
						userOption(true), amountOption(),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Set a member's streak to an exact day count",
					Options: []*discordgo.ApplicationCommandOption{
						userOption(true),
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "days",
							Description: "Streak length in days (0 clears it)",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "leaderboard",
					Description: "Show the streak leaderboard",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "limit",
							Description: "How many entries to show (default 10)",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "threshold-set",
					Description: "Create or replace a reward tier",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "days",
							Description: "Day threshold",
							Required:    true,
						},
						roleOption(true),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "threshold-remove",
					Description: "Delete a reward tier",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "days",
							Description: "Day threshold to delete",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "timer-status",
			Description: "Engine and host status",
		},
	}
}

func userOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: "Target member",
		Required:    required,
	}
}

func roleOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionRole,
		Name:        "role",
		Description: "Target role",
		Required:    required,
	}
}

func durationOption(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "duration",
		Description: description,
		Required:    required,
	}
}

func scopeOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "scope",
		Description: "Pause scope",
		Required:    true,
		Choices:     scopeChoices,
	}
}

func amountOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "amount",
		Description: "Token count",
		Required:    true,
	}
}
