package database

import (
	"database/sql"
	"errors"
	"fmt"
	"timer-bot/model"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a grant or streak row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrStaleGrant is returned when an update lost a revision race and the
// caller should re-read the row before retrying.
var ErrStaleGrant = errors.New("grant was modified concurrently")

// InitTimerDB opens the timer database and ensures all tables exist.
func InitTimerDB(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to timer database: %w", err)
	}

	schema := `
    CREATE TABLE IF NOT EXISTS timed_grants (
        guild_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        role_id TEXT NOT NULL,
        expires_at INTEGER NOT NULL,
        paused INTEGER NOT NULL DEFAULT 0,
        pause_type TEXT NOT NULL DEFAULT '',
        paused_remaining_ms INTEGER NOT NULL DEFAULT 0,
        pause_expires_at INTEGER NOT NULL DEFAULT 0,
        warn_channel_id TEXT NOT NULL DEFAULT '',
        warnings_sent TEXT NOT NULL DEFAULT '[]',
        revision INTEGER NOT NULL DEFAULT 0,
        PRIMARY KEY (guild_id, user_id, role_id)
    );
    CREATE TABLE IF NOT EXISTS streak_records (
        guild_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        streak_start_at INTEGER NOT NULL DEFAULT 0,
        save_tokens INTEGER NOT NULL DEFAULT 0,
        grace_until INTEGER NOT NULL DEFAULT 0,
        degraded_at INTEGER NOT NULL DEFAULT 0,
        PRIMARY KEY (guild_id, user_id)
    );
    CREATE TABLE IF NOT EXISTS streak_role_thresholds (
        guild_id TEXT NOT NULL,
        day_threshold INTEGER NOT NULL,
        role_id TEXT NOT NULL,
        PRIMARY KEY (guild_id, day_threshold)
    );`

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create timer tables: %w", err)
	}

	return db, nil
}

// CreateGrant inserts a new timed grant, or replaces the countdown on a
// re-grant of the same (guild, user, role). A re-grant starts clean: no
// pause state and no delivered warning markers.
func CreateGrant(db *sqlx.DB, grant model.TimedGrant) error {
	query := `INSERT INTO timed_grants
              (guild_id, user_id, role_id, expires_at, paused, pause_type,
               paused_remaining_ms, pause_expires_at, warn_channel_id, warnings_sent, revision)
              VALUES (:guild_id, :user_id, :role_id, :expires_at, 0, '', 0, 0, :warn_channel_id, '[]', 0)
              ON CONFLICT(guild_id, user_id, role_id) DO UPDATE SET
                  expires_at = excluded.expires_at,
                  paused = 0,
                  pause_type = '',
                  paused_remaining_ms = 0,
                  pause_expires_at = 0,
                  warn_channel_id = excluded.warn_channel_id,
                  warnings_sent = '[]',
                  revision = timed_grants.revision + 1`

	if _, err := db.NamedExec(query, grant); err != nil {
		return fmt.Errorf("failed to insert timed grant: %w", err)
	}
	return nil
}

// GetGrant fetches one grant by its identity key.
func GetGrant(db *sqlx.DB, guildID, userID, roleID string) (model.TimedGrant, error) {
	var grant model.TimedGrant
	query := `SELECT * FROM timed_grants WHERE guild_id = ? AND user_id = ? AND role_id = ?`
	err := db.Get(&grant, query, guildID, userID, roleID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TimedGrant{}, ErrNotFound
	}
	if err != nil {
		return model.TimedGrant{}, fmt.Errorf("failed to get grant for user %s: %w", userID, err)
	}
	return grant, nil
}

// ListAllGrants returns every live grant across all guilds.
func ListAllGrants(db *sqlx.DB) ([]model.TimedGrant, error) {
	var grants []model.TimedGrant
	err := db.Select(&grants, `SELECT * FROM timed_grants`)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	return grants, nil
}

// ListGrantsByGuild returns every live grant in one guild.
func ListGrantsByGuild(db *sqlx.DB, guildID string) ([]model.TimedGrant, error) {
	var grants []model.TimedGrant
	err := db.Select(&grants, `SELECT * FROM timed_grants WHERE guild_id = ?`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants for guild %s: %w", guildID, err)
	}
	return grants, nil
}

// ListGrantsByMember returns every live grant held by one member in a guild.
func ListGrantsByMember(db *sqlx.DB, guildID, userID string) ([]model.TimedGrant, error) {
	var grants []model.TimedGrant
	err := db.Select(&grants, `SELECT * FROM timed_grants WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants for user %s: %w", userID, err)
	}
	return grants, nil
}

// ListPausedGrants returns every paused grant in one guild.
func ListPausedGrants(db *sqlx.DB, guildID string) ([]model.TimedGrant, error) {
	var grants []model.TimedGrant
	err := db.Select(&grants, `SELECT * FROM timed_grants WHERE guild_id = ? AND paused = 1`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list paused grants for guild %s: %w", guildID, err)
	}
	return grants, nil
}

// UpdateGrant writes a modified grant back, guarded by the revision the
// caller read. The stored revision is bumped on success; a mismatch
// returns ErrStaleGrant so read-decide-write races cannot lose updates.
func UpdateGrant(db *sqlx.DB, grant model.TimedGrant) error {
	query := `UPDATE timed_grants SET
                  expires_at = :expires_at,
                  paused = :paused,
                  pause_type = :pause_type,
                  paused_remaining_ms = :paused_remaining_ms,
                  pause_expires_at = :pause_expires_at,
                  warn_channel_id = :warn_channel_id,
                  warnings_sent = :warnings_sent,
                  revision = :revision + 1
              WHERE guild_id = :guild_id AND user_id = :user_id AND role_id = :role_id
                AND revision = :revision`

	result, err := db.NamedExec(query, grant)
	if err != nil {
		return fmt.Errorf("failed to update grant for user %s: %w", grant.UserID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for grant %s: %w", grant.Key(), err)
	}
	if rowsAffected == 0 {
		return ErrStaleGrant
	}
	return nil
}

// DeleteGrant removes a grant row. Deleting an absent row is not an
// error; the terminal transition must stay idempotent.
func DeleteGrant(db *sqlx.DB, guildID, userID, roleID string) error {
	query := `DELETE FROM timed_grants WHERE guild_id = ? AND user_id = ? AND role_id = ?`
	if _, err := db.Exec(query, guildID, userID, roleID); err != nil {
		return fmt.Errorf("failed to delete grant for user %s: %w", userID, err)
	}
	return nil
}

// CountGrants returns the total and paused grant counts, for the status command.
func CountGrants(db *sqlx.DB) (total, paused int, err error) {
	if err = db.Get(&total, `SELECT COUNT(*) FROM timed_grants`); err != nil {
		return 0, 0, fmt.Errorf("failed to count grants: %w", err)
	}
	if err = db.Get(&paused, `SELECT COUNT(*) FROM timed_grants WHERE paused = 1`); err != nil {
		return 0, 0, fmt.Errorf("failed to count paused grants: %w", err)
	}
	return total, paused, nil
}
