package timers

import (
	"errors"
	"time"
	"timer-bot/model"
)

// Expected-condition failures of the pause/resume authority. These are
// reported to the caller and never retried.
var (
	ErrAlreadyPaused  = errors.New("grant is already paused")
	ErrNotPaused      = errors.New("grant is not paused")
	ErrWrongPauseType = errors.New("pause type does not match")
)

// PauseOutcome is the remaining-time snapshot frozen at pause time,
// returned for display.
type PauseOutcome struct {
	RemainingMs int64
}

// ApplyPause freezes a grant's countdown in place. A second pause of any
// type fails with ErrAlreadyPaused; pauses do not stack. durationMinutes
// of 0 means the pause holds until an explicit resume.
func ApplyPause(g *model.TimedGrant, pauseType string, durationMinutes int, now time.Time) (PauseOutcome, error) {
	if g.Paused {
		return PauseOutcome{}, ErrAlreadyPaused
	}
	if pauseType != model.PauseUser && pauseType != model.PauseGlobal {
		return PauseOutcome{}, ErrWrongPauseType
	}

	remaining := g.ExpiresAt - now.UnixMilli()
	if remaining < 0 {
		remaining = 0
	}

	g.Paused = true
	g.PauseType = pauseType
	g.PausedRemainingMs = remaining
	if durationMinutes > 0 {
		g.PauseExpiresAt = now.UnixMilli() + int64(durationMinutes)*MinuteMs
	} else {
		g.PauseExpiresAt = 0
	}
	return PauseOutcome{RemainingMs: remaining}, nil
}

// ApplyResume lifts a pause of the matching type and restarts the
// countdown from the frozen remainder. The precedence hierarchy lives
// here: a global resume must not lift a user pause, and vice versa.
// Grants recorded before pause types existed resume as user-scoped.
func ApplyResume(g *model.TimedGrant, pauseType string, now time.Time) error {
	if !g.Paused {
		return ErrNotPaused
	}

	recorded := g.PauseType
	if recorded == model.PauseNone {
		// Grandfathered rows from before pause scopes were stored.
		recorded = model.PauseUser
	}
	if recorded != pauseType {
		return ErrWrongPauseType
	}

	g.ExpiresAt = now.UnixMilli() + g.PausedRemainingMs
	g.Paused = false
	g.PauseType = model.PauseNone
	g.PausedRemainingMs = 0
	g.PauseExpiresAt = 0
	return nil
}
