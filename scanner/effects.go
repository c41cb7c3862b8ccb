package scanner

import (
	"errors"
	"log"
	"net/http"
	"time"
	"timer-bot/model"
	"timer-bot/timers"
	"timer-bot/utils/database"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
)

// Session is the slice of the chat platform the engine needs. Satisfied
// by *discordgo.Session; tests substitute a fake.
type Session interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

// Notifier delivers warnings and expiry notices. Implementations fall
// back to a DM when no channel is configured or delivery fails.
type Notifier interface {
	SendWarning(guildID, userID, roleID string, minutesRemaining int, channelID string)
	SendExpired(guildID, userID, roleID string, channelID string)
}

// Effects applies the side effects the state machine decides on: role
// mutation, tier sync, notifications, and the matching store writes.
type Effects struct {
	Session   Session
	Notifier  Notifier
	DB        *sqlx.DB
	BotUserID string
}

// ApplyWarnings sends the due warnings and records their markers, so a
// marker fires at most once ever per grant.
func (e *Effects) ApplyWarnings(g *model.TimedGrant, minutes []int) error {
	for _, m := range minutes {
		e.Notifier.SendWarning(g.GuildID, g.UserID, g.RoleID, m, g.WarnChannelID)
		g.MarkWarning(m)
	}
	return database.UpdateGrant(e.DB, *g)
}

// ApplySave consumes one save token at expiry: 24h of grace, the grant
// extended 24h, role retained, streak and warning markers untouched.
func (e *Effects) ApplySave(g *model.TimedGrant, rec model.StreakRecord, now time.Time) error {
	rec.SaveTokens--
	rec.GraceUntil = now.UnixMilli() + timers.DayMs
	if err := database.UpsertStreak(e.DB, rec); err != nil {
		return err
	}
	g.ExpiresAt += timers.DayMs
	return database.UpdateGrant(e.DB, *g)
}

// ApplyDegrade drops the streak to newTier, syncs the member's reward
// roles to that tier, and extends the grant one more cycle.
func (e *Effects) ApplyDegrade(g *model.TimedGrant, rec model.StreakRecord, thresholds []model.StreakRoleThreshold, newTier int, now time.Time) error {
	rec.StreakStartAt = now.UnixMilli() - int64(newTier)*timers.DayMs
	rec.DegradedAt = now.UnixMilli()
	if err := database.UpsertStreak(e.DB, rec); err != nil {
		return err
	}
	e.SyncTierRoles(g.GuildID, g.UserID, thresholds, newTier)
	g.ExpiresAt += timers.DayMs
	return database.UpdateGrant(e.DB, *g)
}

// Revoke is the terminal transition: remove the role, notify, delete the
// row. It is idempotent — a role already gone or a vanished member still
// completes the delete, and the store mutation is ordered last so a
// partial run is finished by the next tick.
func (e *Effects) Revoke(g model.TimedGrant, resetStreak bool) error {
	if resetStreak {
		rec, err := database.GetStreak(e.DB, g.GuildID, g.UserID)
		if err != nil {
			return err
		}
		rec.StreakStartAt = 0
		rec.DegradedAt = 0
		if err := database.UpsertStreak(e.DB, rec); err != nil {
			return err
		}
	}

	if !e.canManageRole(g.GuildID, g.RoleID) {
		log.Printf("Insufficient role standing to remove role %s in guild %s, skipping removal", g.RoleID, g.GuildID)
	} else if err := e.Session.GuildMemberRoleRemove(g.GuildID, g.UserID, g.RoleID); err != nil {
		if isSoftDiscordError(err) {
			log.Printf("Role %s already gone from user %s: %v", g.RoleID, g.UserID, err)
		} else {
			// Transient platform failure: keep the row so the next
			// tick retries the whole revocation.
			return err
		}
	}

	e.Notifier.SendExpired(g.GuildID, g.UserID, g.RoleID, g.WarnChannelID)

	return database.DeleteGrant(e.DB, g.GuildID, g.UserID, g.RoleID)
}

// SyncTierRoles makes the member's reward roles match exactly one tier:
// the role for tier is added, every other threshold role removed. Each
// role call fails soft.
func (e *Effects) SyncTierRoles(guildID, userID string, thresholds []model.StreakRoleThreshold, tier int) {
	member, err := e.Session.GuildMember(guildID, userID)
	if err != nil {
		log.Printf("Could not fetch member %s in guild %s for tier sync: %v", userID, guildID, err)
		return
	}

	held := make(map[string]bool, len(member.Roles))
	for _, roleID := range member.Roles {
		held[roleID] = true
	}

	for _, th := range thresholds {
		if th.DayThreshold == tier {
			if !held[th.RoleID] {
				if err := e.Session.GuildMemberRoleAdd(guildID, userID, th.RoleID); err != nil {
					log.Printf("Failed to add tier role %s to user %s: %v", th.RoleID, userID, err)
				}
			}
		} else if held[th.RoleID] {
			if err := e.Session.GuildMemberRoleRemove(guildID, userID, th.RoleID); err != nil {
				log.Printf("Failed to remove tier role %s from user %s: %v", th.RoleID, userID, err)
			}
		}
	}
}

// canManageRole checks that the bot's highest role outranks the target
// role. Required before any automated removal; failures report false.
func (e *Effects) canManageRole(guildID, roleID string) bool {
	roles, err := e.Session.GuildRoles(guildID)
	if err != nil {
		log.Printf("Could not fetch roles for guild %s: %v", guildID, err)
		return false
	}
	positions := make(map[string]int, len(roles))
	for _, r := range roles {
		positions[r.ID] = r.Position
	}
	target, ok := positions[roleID]
	if !ok {
		// Role no longer exists; nothing outranks it.
		return true
	}

	bot, err := e.Session.GuildMember(guildID, e.BotUserID)
	if err != nil {
		log.Printf("Could not fetch bot member in guild %s: %v", guildID, err)
		return false
	}
	highest := -1
	for _, rid := range bot.Roles {
		if pos, ok := positions[rid]; ok && pos > highest {
			highest = pos
		}
	}
	return highest > target
}

// isSoftDiscordError reports whether a failed role call should be
// treated as "nothing to do": the member or role is gone, or the bot is
// forbidden. Anything else is transient and worth retrying.
func isSoftDiscordError(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		code := restErr.Response.StatusCode
		return code == http.StatusNotFound || code == http.StatusForbidden
	}
	return false
}
