package handlers

import (
	"log"
	"timer-bot/bot"
	"timer-bot/utils"

	"github.com/bwmarrin/discordgo"
)

func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	addHandlers(b)
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"timedrole": requireAdmin(b, HandleTimedRole),
		"timer": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleTimer(s, i, b)
		},
		"timer-admin":  requireAdmin(b, HandleTimerAdmin),
		"streak-admin": requireAdmin(b, HandleStreakAdmin),
		"timer-status": requireAdmin(b, HandleTimerStatus),
	}
}

// requireAdmin wraps a handler with the permission ladder check.
func requireAdmin(b *bot.Bot, h func(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot)) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		cfg := b.GetConfig()
		serverCfg, ok := cfg.ServerConfigs[i.GuildID]
		if !ok {
			log.Printf("Could not find server config for guild: %s", i.GuildID)
			utils.SendErrorResponse(s, i, "This server is not configured.")
			return
		}
		level := utils.CheckPermission(i.Member.Roles, i.Member.User.ID,
			cfg.DeveloperUserIDs, cfg.SuperAdminRoleIDs, serverCfg.AdminRoleIDs)
		if !utils.IsAdmin(level) {
			utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
			return
		}
		h(s, i, b)
	}
}

func addHandlers(b *bot.Bot) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)
	})
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	})
}

// optionMap indexes a subcommand's options by name.
func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}
