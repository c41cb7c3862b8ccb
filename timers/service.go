package timers

import (
	"time"
	"timer-bot/model"
	"timer-bot/utils"
	"timer-bot/utils/database"

	"github.com/jmoiron/sqlx"
)

// Service is the surface the command front end drives. Every mutation
// takes the grant's keyed lock so handlers and the reconciliation loop
// never interleave a read-decide-write on the same row.
type Service struct {
	db    *sqlx.DB
	locks *utils.KeyedLock

	// Now is swappable in tests.
	Now func() time.Time
}

func NewService(db *sqlx.DB, locks *utils.KeyedLock) *Service {
	return &Service{db: db, locks: locks, Now: time.Now}
}

func grantKey(guildID, userID, roleID string) string {
	return guildID + ":" + userID + ":" + roleID
}

// DB exposes the underlying store for collaborators that share it.
func (s *Service) DB() *sqlx.DB {
	return s.db
}

// Locks exposes the per-key lock shared with the reconciliation loop.
func (s *Service) Locks() *utils.KeyedLock {
	return s.locks
}

// Grant creates a timed grant, or restarts the countdown on a re-grant
// of the same (guild, user, role) pair.
func (s *Service) Grant(guildID, userID, roleID string, duration time.Duration, warnChannelID string) (model.TimedGrant, error) {
	unlock := s.locks.Lock(grantKey(guildID, userID, roleID))
	defer unlock()

	grant := model.TimedGrant{
		GuildID:       guildID,
		UserID:        userID,
		RoleID:        roleID,
		ExpiresAt:     s.Now().Add(duration).UnixMilli(),
		WarnChannelID: warnChannelID,
		WarningsSent:  "[]",
	}
	if err := database.CreateGrant(s.db, grant); err != nil {
		return model.TimedGrant{}, err
	}
	return database.GetGrant(s.db, guildID, userID, roleID)
}

// AddTime extends a grant's countdown. While paused, the frozen
// remainder is extended instead of the (stale) expiry timestamp.
func (s *Service) AddTime(guildID, userID, roleID string, d time.Duration) (model.TimedGrant, error) {
	return s.adjustTime(guildID, userID, roleID, d.Milliseconds())
}

// RemoveTime shortens a grant's countdown. A countdown driven to or past
// zero is left due; the next reconciliation tick expires it.
func (s *Service) RemoveTime(guildID, userID, roleID string, d time.Duration) (model.TimedGrant, error) {
	return s.adjustTime(guildID, userID, roleID, -d.Milliseconds())
}

func (s *Service) adjustTime(guildID, userID, roleID string, deltaMs int64) (model.TimedGrant, error) {
	unlock := s.locks.Lock(grantKey(guildID, userID, roleID))
	defer unlock()

	grant, err := database.GetGrant(s.db, guildID, userID, roleID)
	if err != nil {
		return model.TimedGrant{}, err
	}
	if grant.Paused {
		grant.PausedRemainingMs += deltaMs
		if grant.PausedRemainingMs < 0 {
			grant.PausedRemainingMs = 0
		}
	} else {
		grant.ExpiresAt += deltaMs
	}
	if err := database.UpdateGrant(s.db, grant); err != nil {
		return model.TimedGrant{}, err
	}
	return grant, nil
}

// Clear removes a grant row without touching the member's role.
func (s *Service) Clear(guildID, userID, roleID string) error {
	unlock := s.locks.Lock(grantKey(guildID, userID, roleID))
	defer unlock()
	return database.DeleteGrant(s.db, guildID, userID, roleID)
}

// Pause freezes one grant's countdown. durationMinutes of 0 pauses until
// an explicit resume; otherwise the pause auto-expires and the grant
// resumes on the tick after the duration lapses.
func (s *Service) Pause(guildID, userID, roleID, pauseType string, durationMinutes int) (PauseOutcome, error) {
	unlock := s.locks.Lock(grantKey(guildID, userID, roleID))
	defer unlock()

	grant, err := database.GetGrant(s.db, guildID, userID, roleID)
	if err != nil {
		return PauseOutcome{}, err
	}
	outcome, err := ApplyPause(&grant, pauseType, durationMinutes, s.Now())
	if err != nil {
		return PauseOutcome{}, err
	}
	if err := database.UpdateGrant(s.db, grant); err != nil {
		return PauseOutcome{}, err
	}
	return outcome, nil
}

// Resume lifts a pause of the matching type. When the recomputed
// remaining time is already spent, expired is true and the caller must
// route the grant through revocation rather than leave a zero-length
// countdown behind.
func (s *Service) Resume(guildID, userID, roleID, pauseType string) (grant model.TimedGrant, expired bool, err error) {
	unlock := s.locks.Lock(grantKey(guildID, userID, roleID))
	defer unlock()

	grant, err = database.GetGrant(s.db, guildID, userID, roleID)
	if err != nil {
		return model.TimedGrant{}, false, err
	}
	now := s.Now()
	if err = ApplyResume(&grant, pauseType, now); err != nil {
		return model.TimedGrant{}, false, err
	}
	if err = database.UpdateGrant(s.db, grant); err != nil {
		return model.TimedGrant{}, false, err
	}
	return grant, grant.ExpiresAt <= now.UnixMilli(), nil
}

// BulkOutcome aggregates a bulk pause/resume pass. Failures of single
// grants (already paused, wrong type) never abort the batch.
type BulkOutcome struct {
	Matched   int
	Succeeded int
}

// BulkPause pauses every live grant in a guild, optionally filtered by
// role.
func (s *Service) BulkPause(guildID, pauseType string, durationMinutes int, roleFilter string) (BulkOutcome, error) {
	grants, err := database.ListGrantsByGuild(s.db, guildID)
	if err != nil {
		return BulkOutcome{}, err
	}
	var out BulkOutcome
	for _, g := range grants {
		if roleFilter != "" && g.RoleID != roleFilter {
			continue
		}
		out.Matched++
		if _, err := s.Pause(g.GuildID, g.UserID, g.RoleID, pauseType, durationMinutes); err == nil {
			out.Succeeded++
		}
	}
	return out, nil
}

// BulkResume resumes every paused grant in a guild whose pause type
// matches, optionally filtered by role. Grants that expired during the
// pause are returned so the caller can revoke them.
func (s *Service) BulkResume(guildID, pauseType, roleFilter string) (BulkOutcome, []model.TimedGrant, error) {
	grants, err := database.ListPausedGrants(s.db, guildID)
	if err != nil {
		return BulkOutcome{}, nil, err
	}
	var out BulkOutcome
	var dead []model.TimedGrant
	for _, g := range grants {
		if roleFilter != "" && g.RoleID != roleFilter {
			continue
		}
		out.Matched++
		resumed, expired, err := s.Resume(g.GuildID, g.UserID, g.RoleID, pauseType)
		if err != nil {
			continue
		}
		out.Succeeded++
		if expired {
			dead = append(dead, resumed)
		}
	}
	return out, dead, nil
}

// GetRemaining reports the time left on a grant's countdown, or the
// frozen remainder when paused.
func (s *Service) GetRemaining(guildID, userID, roleID string) (remaining time.Duration, paused bool, err error) {
	grant, err := database.GetGrant(s.db, guildID, userID, roleID)
	if err != nil {
		return 0, false, err
	}
	if grant.Paused {
		return time.Duration(grant.PausedRemainingMs) * time.Millisecond, true, nil
	}
	ms := grant.ExpiresAt - s.Now().UnixMilli()
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond, false, nil
}

// GetExpiry reports the absolute expiry timestamp. For a paused grant
// there is none; paused is true and the returned time is meaningless.
func (s *Service) GetExpiry(guildID, userID, roleID string) (expiry time.Time, paused bool, err error) {
	grant, err := database.GetGrant(s.db, guildID, userID, roleID)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(grant.ExpiresAt), grant.Paused, nil
}

// ListGuildTimers returns all live grants in a guild.
func (s *Service) ListGuildTimers(guildID string) ([]model.TimedGrant, error) {
	return database.ListGrantsByGuild(s.db, guildID)
}

// ListMemberTimers returns all live grants one member holds in a guild.
func (s *Service) ListMemberTimers(guildID, userID string) ([]model.TimedGrant, error) {
	return database.ListGrantsByMember(s.db, guildID, userID)
}

// ListPausedTimers returns all paused grants in a guild.
func (s *Service) ListPausedTimers(guildID string) ([]model.TimedGrant, error) {
	return database.ListPausedGrants(s.db, guildID)
}
