package model

// StreakRecord tracks one member's consecutive-day streak in a guild.
// The database table is named 'streak_records'.
type StreakRecord struct {
	GuildID       string `db:"guild_id"`
	UserID        string `db:"user_id"`
	StreakStartAt int64  `db:"streak_start_at"` // unix ms, 0 = no active streak
	SaveTokens    int    `db:"save_tokens"`
	GraceUntil    int64  `db:"grace_until"` // unix ms, 0 = none
	DegradedAt    int64  `db:"degraded_at"` // unix ms of the last tier drop, 0 = never
}

// HasStreak reports whether the member currently holds an unbroken streak.
// Tier lookups are only meaningful while this is true.
func (r *StreakRecord) HasStreak() bool {
	return r.StreakStartAt > 0
}

// StreakRoleThreshold maps a day count to a reward role for a guild.
// Rows are read ordered by day_threshold ascending.
type StreakRoleThreshold struct {
	GuildID      string `db:"guild_id"`
	DayThreshold int    `db:"day_threshold"`
	RoleID       string `db:"role_id"`
}
