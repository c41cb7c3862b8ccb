package tasks

import (
	"fmt"
	"log"
	"timer-bot/model"
	"timer-bot/streaks"
	"timer-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
)

const leaderboardLimit = 10

// StartDailyReports schedules the streak leaderboard report for every
// enabled guild with a report channel. The returned cron is already
// started; the caller stops it on shutdown.
func StartDailyReports(s *discordgo.Session, ledger *streaks.Ledger, cfg *model.Config) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(cfg.ReportCron, func() {
		PostStreakReports(s, ledger, cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid report cron spec %q: %w", cfg.ReportCron, err)
	}
	c.Start()
	return c, nil
}

// PostStreakReports posts the current streak leaderboard to each
// configured guild. Per-guild failures are logged and skipped.
func PostStreakReports(s *discordgo.Session, ledger *streaks.Ledger, cfg *model.Config) {
	for _, serverCfg := range cfg.ServerConfigs {
		if !serverCfg.Enable || serverCfg.ReportChannelID == "" {
			continue
		}
		if err := postLeaderboard(s, ledger, serverCfg, cfg.LogChannelID); err != nil {
			log.Printf("Failed to post streak report for guild %s: %v", serverCfg.GuildID, err)
		}
	}
}

func postLeaderboard(s *discordgo.Session, ledger *streaks.Ledger, serverCfg model.ServerConfig, logChannelID string) error {
	entries, err := ledger.GetLeaderboard(serverCfg.GuildID, leaderboardLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	embed := BuildLeaderboardEmbed(entries)
	if _, err := s.ChannelMessageSendEmbed(serverCfg.ReportChannelID, embed); err != nil {
		return err
	}
	return utils.LogInfo(s, logChannelID, "Streaks", "DailyReport",
		fmt.Sprintf("Posted leaderboard with %d entries", len(entries)))
}

// BuildLeaderboardEmbed renders leaderboard entries; shared with the
// streak-admin leaderboard command.
func BuildLeaderboardEmbed(entries []streaks.LeaderboardEntry) *discordgo.MessageEmbed {
	description := ""
	for rank, e := range entries {
		line := fmt.Sprintf("**%d.** <@%s> — %d day(s)", rank+1, e.UserID, e.Days)
		if e.Tier > 0 {
			line += fmt.Sprintf(" (tier %d)", e.Tier)
		}
		description += line + "\n"
	}
	return &discordgo.MessageEmbed{
		Title:       "Streak Leaderboard",
		Color:       3066993, // Green
		Description: description,
	}
}
