package streaks

import (
	"time"
	"timer-bot/model"
	"timer-bot/timers"
	"timer-bot/utils/database"

	"github.com/jmoiron/sqlx"
)

// Ledger is the streak admin surface: save tokens, manual streak
// adjustment, and the leaderboard. Expiry-time streak logic lives in the
// state machine; the ledger only owns the records.
type Ledger struct {
	db *sqlx.DB

	// Now is swappable in tests.
	Now func() time.Time
}

func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db, Now: time.Now}
}

// GrantSave adds save tokens to a member and returns the new balance.
func (l *Ledger) GrantSave(guildID, userID string, amount int) (int, error) {
	rec, err := database.GetStreak(l.db, guildID, userID)
	if err != nil {
		return 0, err
	}
	rec.SaveTokens += amount
	if err := database.UpsertStreak(l.db, rec); err != nil {
		return 0, err
	}
	return rec.SaveTokens, nil
}

// RemoveSave takes save tokens away, flooring the balance at zero.
func (l *Ledger) RemoveSave(guildID, userID string, amount int) (int, error) {
	rec, err := database.GetStreak(l.db, guildID, userID)
	if err != nil {
		return 0, err
	}
	rec.SaveTokens -= amount
	if rec.SaveTokens < 0 {
		rec.SaveTokens = 0
	}
	if err := database.UpsertStreak(l.db, rec); err != nil {
		return 0, err
	}
	return rec.SaveTokens, nil
}

// SetStreak pins a member's streak to an exact day count. Zero days
// clears the streak entirely.
func (l *Ledger) SetStreak(guildID, userID string, days int) error {
	rec, err := database.GetStreak(l.db, guildID, userID)
	if err != nil {
		return err
	}
	if days <= 0 {
		rec.StreakStartAt = 0
		rec.DegradedAt = 0
	} else {
		rec.StreakStartAt = l.Now().UnixMilli() - int64(days)*timers.DayMs
	}
	return database.UpsertStreak(l.db, rec)
}

// LeaderboardEntry is one ranked member with their streak length and
// current reward tier.
type LeaderboardEntry struct {
	UserID string
	Days   int
	Tier   int
}

// GetLeaderboard ranks a guild's active streaks, longest first.
func (l *Ledger) GetLeaderboard(guildID string, limit int) ([]LeaderboardEntry, error) {
	leaders, err := database.ListStreakLeaders(l.db, guildID, limit)
	if err != nil {
		return nil, err
	}
	thresholds, err := database.ListThresholds(l.db, guildID)
	if err != nil {
		return nil, err
	}

	now := l.Now()
	entries := make([]LeaderboardEntry, 0, len(leaders))
	for _, rec := range leaders {
		days := timers.StreakDays(rec.StreakStartAt, now)
		entries = append(entries, LeaderboardEntry{
			UserID: rec.UserID,
			Days:   days,
			Tier:   timers.CurrentTier(thresholds, days),
		})
	}
	return entries, nil
}

// SetThreshold creates or replaces a reward tier.
func (l *Ledger) SetThreshold(guildID string, days int, roleID string) error {
	return database.SetThreshold(l.db, model.StreakRoleThreshold{
		GuildID:      guildID,
		DayThreshold: days,
		RoleID:       roleID,
	})
}

// RemoveThreshold deletes a reward tier.
func (l *Ledger) RemoveThreshold(guildID string, days int) error {
	return database.RemoveThreshold(l.db, guildID, days)
}

// Thresholds lists a guild's reward tiers, ascending.
func (l *Ledger) Thresholds(guildID string) ([]model.StreakRoleThreshold, error) {
	return database.ListThresholds(l.db, guildID)
}
