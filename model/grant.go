package model

import (
	"encoding/json"
	"fmt"
)

// Pause scopes. A user pause outranks a global one: a global resume
// must never lift a user-initiated pause.
const (
	PauseNone   = ""
	PauseUser   = "user"
	PauseGlobal = "global"
)

// TimedGrant represents one timed role countdown in the database.
// The database table is named 'timed_grants', keyed by (guild, user, role).
type TimedGrant struct {
	GuildID           string `db:"guild_id"`
	UserID            string `db:"user_id"`
	RoleID            string `db:"role_id"`
	ExpiresAt         int64  `db:"expires_at"` // unix milliseconds
	Paused            bool   `db:"paused"`
	PauseType         string `db:"pause_type"`
	PausedRemainingMs int64  `db:"paused_remaining_ms"`
	PauseExpiresAt    int64  `db:"pause_expires_at"` // unix ms, 0 = no auto-resume
	WarnChannelID     string `db:"warn_channel_id"`  // empty = direct message
	WarningsSent      string `db:"warnings_sent"`    // JSON array of minute markers
	Revision          int64  `db:"revision"`
}

// Key returns the lock/identity key for this grant.
func (g *TimedGrant) Key() string {
	return fmt.Sprintf("%s:%s:%s", g.GuildID, g.UserID, g.RoleID)
}

// SentWarnings parses the warnings_sent column. A corrupt or empty value
// is treated as "no warnings sent yet".
func (g *TimedGrant) SentWarnings() []int {
	if g.WarningsSent == "" {
		return nil
	}
	var markers []int
	if err := json.Unmarshal([]byte(g.WarningsSent), &markers); err != nil {
		return nil
	}
	return markers
}

// HasWarning reports whether the given minute marker was already delivered.
func (g *TimedGrant) HasWarning(minutes int) bool {
	for _, m := range g.SentWarnings() {
		if m == minutes {
			return true
		}
	}
	return false
}

// MarkWarning records a delivered minute marker. Recording the same
// marker twice is a no-op.
func (g *TimedGrant) MarkWarning(minutes int) {
	if g.HasWarning(minutes) {
		return
	}
	markers := append(g.SentWarnings(), minutes)
	data, err := json.Marshal(markers)
	if err != nil {
		return
	}
	g.WarningsSent = string(data)
}
