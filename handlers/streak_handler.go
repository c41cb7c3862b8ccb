package handlers

import (
	"fmt"
	"log"
	"strings"
	"timer-bot/bot"
	"timer-bot/tasks"
	"timer-bot/utils"

	"github.com/bwmarrin/discordgo"
)

const defaultLeaderboardLimit = 10

// HandleStreakAdmin covers /streak-admin.
func HandleStreakAdmin(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	data := i.ApplicationCommandData()
	sub := data.Options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "save-grant", "save-remove":
		user := opts["user"].UserValue(s)
		amount := int(opts["amount"].IntValue())
		if amount <= 0 {
			utils.SendErrorResponse(s, i, "Amount must be positive.")
			return
		}
		var balance int
		var err error
		if sub.Name == "save-grant" {
			balance, err = b.Ledger.GrantSave(i.GuildID, user.ID, amount)
		} else {
			balance, err = b.Ledger.RemoveSave(i.GuildID, user.ID, amount)
		}
		if err != nil {
			log.Printf("Failed to adjust save tokens for user %s: %v", user.ID, err)
			utils.SendErrorResponse(s, i, "Could not adjust save tokens.")
			return
		}
		utils.SendSimpleResponse(s, i, fmt.Sprintf("<@%s> now has %d save token(s).", user.ID, balance))

	case "set":
		user := opts["user"].UserValue(s)
		days := int(opts["days"].IntValue())
		if days < 0 {
			utils.SendErrorResponse(s, i, "Days cannot be negative.")
			return
		}
		if err := b.Ledger.SetStreak(i.GuildID, user.ID, days); err != nil {
			log.Printf("Failed to set streak for user %s: %v", user.ID, err)
			utils.SendErrorResponse(s, i, "Could not set the streak.")
			return
		}
		if days == 0 {
			utils.SendSimpleResponse(s, i, fmt.Sprintf("Cleared the streak for <@%s>.", user.ID))
			return
		}
		utils.SendSimpleResponse(s, i, fmt.Sprintf("Set the streak for <@%s> to %d day(s).", user.ID, days))

	case "leaderboard":
		limit := defaultLeaderboardLimit
		if opt, ok := opts["limit"]; ok && opt.IntValue() > 0 {
			limit = int(opt.IntValue())
		}
		entries, err := b.Ledger.GetLeaderboard(i.GuildID, limit)
		if err != nil {
			log.Printf("Failed to build leaderboard for guild %s: %v", i.GuildID, err)
			utils.SendErrorResponse(s, i, "Could not build the leaderboard.")
			return
		}
		utils.SendEmbedResponse(s, i, tasks.BuildLeaderboardEmbed(entries))

	case "threshold-set":
		days := int(opts["days"].IntValue())
		role := opts["role"].RoleValue(s, i.GuildID)
		if days <= 0 {
			utils.SendErrorResponse(s, i, "Day threshold must be positive.")
			return
		}
		if err := b.Ledger.SetThreshold(i.GuildID, days, role.ID); err != nil {
			log.Printf("Failed to set threshold for guild %s: %v", i.GuildID, err)
			utils.SendErrorResponse(s, i, "Could not save the reward tier.")
			return
		}
		utils.SendSimpleResponse(s, i, fmt.Sprintf("Members reaching a %d-day streak now earn <@&%s>.", days, role.ID))

	case "threshold-remove":
		days := int(opts["days"].IntValue())
		if err := b.Ledger.RemoveThreshold(i.GuildID, days); err != nil {
			utils.SendErrorResponse(s, i, fmt.Sprintf("No reward tier at %d days.", days))
			return
		}
		thresholds, err := b.Ledger.Thresholds(i.GuildID)
		if err != nil || len(thresholds) == 0 {
			utils.SendSimpleResponse(s, i, fmt.Sprintf("Removed the %d-day reward tier. No tiers remain.", days))
			return
		}
		var remaining []string
		for _, t := range thresholds {
			remaining = append(remaining, fmt.Sprintf("%dd", t.DayThreshold))
		}
		utils.SendSimpleResponse(s, i, fmt.Sprintf("Removed the %d-day reward tier. Remaining tiers: %s.",
			days, strings.Join(remaining, ", ")))
	}
}
