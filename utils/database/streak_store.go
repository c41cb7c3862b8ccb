package database

import (
	"database/sql"
	"errors"
	"fmt"
	"timer-bot/model"

	"github.com/jmoiron/sqlx"
)

// GetStreak fetches a member's streak record. An absent row is returned
// as a zero-valued record with the identity filled in, so callers can
// upsert it without a separate existence check.
func GetStreak(db *sqlx.DB, guildID, userID string) (model.StreakRecord, error) {
	var rec model.StreakRecord
	query := `SELECT * FROM streak_records WHERE guild_id = ? AND user_id = ?`
	err := db.Get(&rec, query, guildID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StreakRecord{GuildID: guildID, UserID: userID}, nil
	}
	if err != nil {
		return model.StreakRecord{}, fmt.Errorf("failed to get streak for user %s: %w", userID, err)
	}
	return rec, nil
}

// UpsertStreak writes a streak record, inserting or replacing as needed.
func UpsertStreak(db *sqlx.DB, rec model.StreakRecord) error {
	query := `INSERT INTO streak_records
              (guild_id, user_id, streak_start_at, save_tokens, grace_until, degraded_at)
              VALUES (:guild_id, :user_id, :streak_start_at, :save_tokens, :grace_until, :degraded_at)
              ON CONFLICT(guild_id, user_id) DO UPDATE SET
                  streak_start_at = excluded.streak_start_at,
                  save_tokens = excluded.save_tokens,
                  grace_until = excluded.grace_until,
                  degraded_at = excluded.degraded_at`

	if _, err := db.NamedExec(query, rec); err != nil {
		return fmt.Errorf("failed to upsert streak for user %s: %w", rec.UserID, err)
	}
	return nil
}

// ListThresholds returns a guild's reward tiers ordered ascending by day count.
func ListThresholds(db *sqlx.DB, guildID string) ([]model.StreakRoleThreshold, error) {
	var thresholds []model.StreakRoleThreshold
	query := `SELECT * FROM streak_role_thresholds WHERE guild_id = ? ORDER BY day_threshold ASC`
	if err := db.Select(&thresholds, query, guildID); err != nil {
		return nil, fmt.Errorf("failed to list thresholds for guild %s: %w", guildID, err)
	}
	return thresholds, nil
}

// SetThreshold creates or replaces one reward tier for a guild.
func SetThreshold(db *sqlx.DB, th model.StreakRoleThreshold) error {
	query := `INSERT INTO streak_role_thresholds (guild_id, day_threshold, role_id)
              VALUES (:guild_id, :day_threshold, :role_id)
              ON CONFLICT(guild_id, day_threshold) DO UPDATE SET role_id = excluded.role_id`

	if _, err := db.NamedExec(query, th); err != nil {
		return fmt.Errorf("failed to set threshold %d for guild %s: %w", th.DayThreshold, th.GuildID, err)
	}
	return nil
}

// RemoveThreshold deletes one reward tier.
func RemoveThreshold(db *sqlx.DB, guildID string, dayThreshold int) error {
	query := `DELETE FROM streak_role_thresholds WHERE guild_id = ? AND day_threshold = ?`
	result, err := db.Exec(query, guildID, dayThreshold)
	if err != nil {
		return fmt.Errorf("failed to remove threshold %d for guild %s: %w", dayThreshold, guildID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for threshold %d: %w", dayThreshold, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStreakLeaders returns the longest-running streaks in a guild, longest
// first. Members without an active streak are excluded.
func ListStreakLeaders(db *sqlx.DB, guildID string, limit int) ([]model.StreakRecord, error) {
	var leaders []model.StreakRecord
	query := `SELECT * FROM streak_records
              WHERE guild_id = ? AND streak_start_at > 0
              ORDER BY streak_start_at ASC LIMIT ?`
	if err := db.Select(&leaders, query, guildID, limit); err != nil {
		return nil, fmt.Errorf("failed to list streak leaders for guild %s: %w", guildID, err)
	}
	return leaders, nil
}

// CountStreaks returns the number of active streaks, for the status command.
func CountStreaks(db *sqlx.DB) (int, error) {
	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM streak_records WHERE streak_start_at > 0`); err != nil {
		return 0, fmt.Errorf("failed to count streaks: %w", err)
	}
	return count, nil
}
