package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"timer-bot/bot"
	"timer-bot/model"
	"timer-bot/timers"
	"timer-bot/utils"
	"timer-bot/utils/database"

	"github.com/bwmarrin/discordgo"
)

const listDisplayLimit = 25

// HandleTimedRole covers /timedrole grant|add|remove|clear.
func HandleTimedRole(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	data := i.ApplicationCommandData()
	sub := data.Options[0]
	opts := optionMap(sub.Options)

	user := opts["user"].UserValue(s)
	role := opts["role"].RoleValue(s, i.GuildID)

	switch sub.Name {
	case "grant":
		duration, err := utils.ParseDuration(opts["duration"].StringValue())
		if err != nil || duration <= 0 {
			utils.SendErrorResponse(s, i, "Invalid duration. Use forms like 7d, 12h, or 90m.")
			return
		}
		warnChannelID := b.GetConfig().ServerConfigs[i.GuildID].WarnChannelID
		if opt, ok := opts["warn_channel"]; ok {
			warnChannelID = opt.ChannelValue(s).ID
		}
		if err := s.GuildMemberRoleAdd(i.GuildID, user.ID, role.ID); err != nil {
			log.Printf("Failed to add role %s to user %s: %v", role.ID, user.ID, err)
			utils.SendErrorResponse(s, i, "Could not assign the role.")
			return
		}
		grant, err := b.Timers.Grant(i.GuildID, user.ID, role.ID, duration, warnChannelID)
		if err != nil {
			log.Printf("Failed to create timed grant for user %s: %v", user.ID, err)
			utils.SendErrorResponse(s, i, "Role assigned but the countdown could not be saved.")
			return
		}
		utils.SendSimpleResponse(s, i, fmt.Sprintf("Granted <@&%s> to <@%s>, expiring <t:%d:F>.",
			role.ID, user.ID, grant.ExpiresAt/1000))
		utils.LogInfo(s, b.GetConfig().LogChannelID, "Timers", "Grant",
			fmt.Sprintf("Role %s granted to %s for %s", role.ID, user.ID, utils.FormatDuration(duration)))

	case "add", "remove":
		duration, err := utils.ParseDuration(opts["duration"].StringValue())
		if err != nil || duration <= 0 {
			utils.SendErrorResponse(s, i, "Invalid duration. Use forms like 7d, 12h, or 90m.")
			return
		}
		var grant model.TimedGrant
		if sub.Name == "add" {
			grant, err = b.Timers.AddTime(i.GuildID, user.ID, role.ID, duration)
		} else {
			grant, err = b.Timers.RemoveTime(i.GuildID, user.ID, role.ID, duration)
		}
		if errors.Is(err, database.ErrNotFound) {
			utils.SendErrorResponse(s, i, "No timed role found for that member.")
			return
		}
		if err != nil {
			log.Printf("Failed to adjust timed grant for user %s: %v", user.ID, err)
			utils.SendErrorResponse(s, i, "Could not adjust the countdown.")
			return
		}
		utils.SendSimpleResponse(s, i, describeGrant(&grant, time.Now()))

	case "clear":
		if err := b.Timers.Clear(i.GuildID, user.ID, role.ID); err != nil {
			log.Printf("Failed to clear timed grant for user %s: %v", user.ID, err)
			utils.SendErrorResponse(s, i, "Could not clear the countdown.")
			return
		}
		utils.SendSimpleResponse(s, i, fmt.Sprintf("Cleared the countdown on <@&%s> for <@%s>. The role stays.",
			role.ID, user.ID))
	}
}

// HandleTimer covers /timer remaining|expiry|list|paused. Open to all
// members; inspecting is harmless.
func HandleTimer(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	data := i.ApplicationCommandData()
	sub := data.Options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "remaining":
		userID := i.Member.User.ID
		if opt, ok := opts["user"]; ok {
			userID = opt.UserValue(s).ID
		}
		role := opts["role"].RoleValue(s, i.GuildID)
		remaining, paused, err := b.Timers.GetRemaining(i.GuildID, userID, role.ID)
		if errors.Is(err, database.ErrNotFound) {
			utils.SendErrorResponse(s, i, "No timed role found for that member.")
			return
		}
		if err != nil {
			utils.SendErrorResponse(s, i, "Could not look up the countdown.")
			return
		}
		if paused {
			utils.SendSimpleResponse(s, i, fmt.Sprintf("<@&%s> is paused with %s frozen.",
				role.ID, utils.FormatDuration(remaining)))
			return
		}
		utils.SendSimpleResponse(s, i, fmt.Sprintf("<@&%s> has %s remaining.",
			role.ID, utils.FormatDuration(remaining)))

	case "expiry":
		userID := i.Member.User.ID
		if opt, ok := opts["user"]; ok {
			userID = opt.UserValue(s).ID
		}
		role := opts["role"].RoleValue(s, i.GuildID)
		expiry, paused, err := b.Timers.GetExpiry(i.GuildID, userID, role.ID)
		if errors.Is(err, database.ErrNotFound) {
			utils.SendErrorResponse(s, i, "No timed role found for that member.")
			return
		}
		if err != nil {
			utils.SendErrorResponse(s, i, "Could not look up the expiry.")
			return
		}
		if paused {
			utils.SendSimpleResponse(s, i, fmt.Sprintf("<@&%s> is paused; it has no fixed expiry until resumed.", role.ID))
			return
		}
		utils.SendSimpleResponse(s, i, fmt.Sprintf("<@&%s> expires <t:%d:F>.", role.ID, expiry.Unix()))

	case "list":
		title := "Timed Roles"
		var grants []model.TimedGrant
		var err error
		if opt, ok := opts["user"]; ok {
			user := opt.UserValue(s)
			title = "Timed Roles — " + user.Username
			grants, err = b.Timers.ListMemberTimers(i.GuildID, user.ID)
		} else {
			grants, err = b.Timers.ListGuildTimers(i.GuildID)
		}
		if err != nil {
			utils.SendErrorResponse(s, i, "Could not list timed roles.")
			return
		}
		utils.SendEmbedResponse(s, i, buildTimerListEmbed(b, title, grants))

	case "paused":
		grants, err := b.Timers.ListPausedTimers(i.GuildID)
		if err != nil {
			utils.SendErrorResponse(s, i, "Could not list paused timed roles.")
			return
		}
		utils.SendEmbedResponse(s, i, buildTimerListEmbed(b, "Paused Timed Roles", grants))
	}
}

// HandleTimerAdmin covers /timer-admin pause|resume|bulk-pause|bulk-resume.
func HandleTimerAdmin(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	data := i.ApplicationCommandData()
	sub := data.Options[0]
	opts := optionMap(sub.Options)
	scope := opts["scope"].StringValue()

	switch sub.Name {
	case "pause":
		user := opts["user"].UserValue(s)
		role := opts["role"].RoleValue(s, i.GuildID)
		minutes := 0
		if opt, ok := opts["minutes"]; ok {
			minutes = int(opt.IntValue())
		}
		outcome, err := b.Timers.Pause(i.GuildID, user.ID, role.ID, scope, minutes)
		switch {
		case errors.Is(err, timers.ErrAlreadyPaused):
			utils.SendErrorResponse(s, i, "That timed role is already paused.")
		case errors.Is(err, database.ErrNotFound):
			utils.SendErrorResponse(s, i, "No timed role found for that member.")
		case err != nil:
			log.Printf("Failed to pause grant for user %s: %v", user.ID, err)
			utils.SendErrorResponse(s, i, "Could not pause the countdown.")
		default:
			utils.SendSimpleResponse(s, i, fmt.Sprintf("Paused (%s) with %s frozen.",
				scope, utils.FormatDuration(time.Duration(outcome.RemainingMs)*time.Millisecond)))
		}

	case "resume":
		user := opts["user"].UserValue(s)
		role := opts["role"].RoleValue(s, i.GuildID)
		grant, expired, err := b.Timers.Resume(i.GuildID, user.ID, role.ID, scope)
		switch {
		case errors.Is(err, timers.ErrWrongPauseType):
			utils.SendErrorResponse(s, i, fmt.Sprintf("Not resumed: the pause was made with a different scope than %q.", scope))
		case errors.Is(err, timers.ErrNotPaused):
			utils.SendErrorResponse(s, i, "That timed role is not paused.")
		case errors.Is(err, database.ErrNotFound):
			utils.SendErrorResponse(s, i, "No timed role found for that member.")
		case err != nil:
			log.Printf("Failed to resume grant for user %s: %v", user.ID, err)
			utils.SendErrorResponse(s, i, "Could not resume the countdown.")
		case expired:
			// No time was left on the clock; send it straight through
			// the expiry path instead of leaving a dead countdown.
			if err := b.Reconciler.ProcessGrant(i.GuildID, user.ID, role.ID, time.Now()); err != nil {
				log.Printf("Failed to expire resumed grant for user %s: %v", user.ID, err)
			}
			utils.SendSimpleResponse(s, i, "Resumed with no time remaining; the role has been processed as expired.")
		default:
			utils.SendSimpleResponse(s, i, fmt.Sprintf("Resumed. <@&%s> now expires <t:%d:F>.",
				role.ID, grant.ExpiresAt/1000))
		}

	case "bulk-pause":
		if err := utils.DeferResponse(s, i, true); err != nil {
			log.Printf("Failed to defer interaction: %v", err)
			return
		}
		roleFilter := ""
		if opt, ok := opts["role"]; ok {
			roleFilter = opt.RoleValue(s, i.GuildID).ID
		}
		minutes := 0
		if opt, ok := opts["minutes"]; ok {
			minutes = int(opt.IntValue())
		}
		out, err := b.Timers.BulkPause(i.GuildID, scope, minutes, roleFilter)
		if err != nil {
			utils.SendFollowUpError(s, i.Interaction, "Bulk pause failed.")
			return
		}
		utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("Paused %d of %d matching timed roles.",
			out.Succeeded, out.Matched))

	case "bulk-resume":
		if err := utils.DeferResponse(s, i, true); err != nil {
			log.Printf("Failed to defer interaction: %v", err)
			return
		}
		roleFilter := ""
		if opt, ok := opts["role"]; ok {
			roleFilter = opt.RoleValue(s, i.GuildID).ID
		}
		out, dead, err := b.Timers.BulkResume(i.GuildID, scope, roleFilter)
		if err != nil {
			utils.SendFollowUpError(s, i.Interaction, "Bulk resume failed.")
			return
		}
		now := time.Now()
		for _, g := range dead {
			if err := b.Reconciler.ProcessGrant(g.GuildID, g.UserID, g.RoleID, now); err != nil {
				log.Printf("Failed to expire resumed grant %s: %v", g.Key(), err)
			}
		}
		msg := fmt.Sprintf("Resumed %d of %d matching paused timed roles.", out.Succeeded, out.Matched)
		if len(dead) > 0 {
			msg += fmt.Sprintf(" %d had no time left and were processed as expired.", len(dead))
		}
		utils.SendFollowUp(s, i.Interaction, msg)
	}
}

func describeGrant(g *model.TimedGrant, now time.Time) string {
	if g.Paused {
		return fmt.Sprintf("<@&%s> for <@%s> is paused with %s frozen.",
			g.RoleID, g.UserID, utils.FormatDuration(time.Duration(g.PausedRemainingMs)*time.Millisecond))
	}
	remaining := time.Duration(g.ExpiresAt-now.UnixMilli()) * time.Millisecond
	return fmt.Sprintf("<@&%s> for <@%s> now has %s remaining (expires <t:%d:F>).",
		g.RoleID, g.UserID, utils.FormatDuration(remaining), g.ExpiresAt/1000)
}

func buildTimerListEmbed(b *bot.Bot, title string, grants []model.TimedGrant) *discordgo.MessageEmbed {
	if len(grants) == 0 {
		return &discordgo.MessageEmbed{Title: title, Description: "None."}
	}

	now := time.Now()
	var lines []string
	for idx, g := range grants {
		if idx >= listDisplayLimit {
			lines = append(lines, fmt.Sprintf("…and %d more.", len(grants)-listDisplayLimit))
			break
		}
		name := fmt.Sprintf("<@%s>", g.UserID)
		if member, err := b.Members.Member(g.GuildID, g.UserID); err == nil && member.User != nil {
			name = member.User.Username
		}
		if g.Paused {
			pauseType := g.PauseType
			if pauseType == model.PauseNone {
				pauseType = model.PauseUser
			}
			lines = append(lines, fmt.Sprintf("%s — <@&%s> — paused (%s), %s frozen",
				name, g.RoleID, pauseType,
				utils.FormatDuration(time.Duration(g.PausedRemainingMs)*time.Millisecond)))
			continue
		}
		remaining := time.Duration(g.ExpiresAt-now.UnixMilli()) * time.Millisecond
		lines = append(lines, fmt.Sprintf("%s — <@&%s> — %s remaining",
			name, g.RoleID, utils.FormatDuration(remaining)))
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Color:       3447003, // Blue
		Description: strings.Join(lines, "\n"),
	}
}
