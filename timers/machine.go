package timers

import (
	"time"
	"timer-bot/model"
)

// Fixed time units. Day/hour arithmetic deliberately ignores calendars
// and DST: a day is always 24h.
const (
	MinuteMs = int64(60 * 1000)
	HourMs   = 60 * MinuteMs
	DayMs    = 24 * HourMs
)

// WarnThresholds are the advance-warning marks in minutes, descending.
// Each marker fires at most once per grant lifetime.
var WarnThresholds = []int{60, 10, 1}

// DecisionKind is the transition the state machine picked for one grant.
type DecisionKind int

const (
	// DecideNone means nothing to do this tick (counting down with no
	// warning due, or paused with no lapsed pause duration).
	DecideNone DecisionKind = iota
	// DecideAutoResume means the pause duration lapsed and the grant
	// must be resumed before any warn/expire evaluation.
	DecideAutoResume
	// DecideWarn means one or more warning thresholds came due.
	DecideWarn
	// DecideExpire means the countdown elapsed; the caller must load the
	// member's streak record and resolve via ResolveExpiry.
	DecideExpire
)

// Decision is the single next action for a grant at a point in time.
type Decision struct {
	Kind DecisionKind
	// WarnMinutes lists the due, not-yet-sent thresholds, descending.
	// A slow tick can legitimately carry more than one.
	WarnMinutes []int
}

// Evaluate routes one grant through the transition order: lapsed pause
// first, then paused short-circuit, then expiry, then warnings.
func Evaluate(g model.TimedGrant, now time.Time) Decision {
	nowMs := now.UnixMilli()

	if g.Paused {
		if g.PauseExpiresAt > 0 && g.PauseExpiresAt <= nowMs {
			return Decision{Kind: DecideAutoResume}
		}
		return Decision{Kind: DecideNone}
	}

	if g.ExpiresAt <= nowMs {
		return Decision{Kind: DecideExpire}
	}

	remaining := RemainingMinutes(g.ExpiresAt - nowMs)
	var due []int
	for _, threshold := range WarnThresholds {
		if remaining <= threshold && !g.HasWarning(threshold) {
			due = append(due, threshold)
		}
	}
	if len(due) > 0 {
		return Decision{Kind: DecideWarn, WarnMinutes: due}
	}
	return Decision{Kind: DecideNone}
}

// RemainingMinutes converts leftover milliseconds to whole minutes using
// ceiling division: 59001ms reports as 1 minute, not 0.
func RemainingMinutes(remainingMs int64) int {
	if remainingMs <= 0 {
		return 0
	}
	return int((remainingMs + MinuteMs - 1) / MinuteMs)
}

// ApplyAutoResume lifts a lapsed pause in place: the countdown restarts
// from the frozen remainder and all pause fields are cleared. The grant
// is then eligible for warn/expire logic in the same tick.
func ApplyAutoResume(g *model.TimedGrant, now time.Time) {
	g.ExpiresAt = now.UnixMilli() + g.PausedRemainingMs
	g.Paused = false
	g.PauseType = model.PauseNone
	g.PausedRemainingMs = 0
	g.PauseExpiresAt = 0
}

// ExpiryKind is the outcome of the expiry sub-protocol.
type ExpiryKind int

const (
	// ExpirySave consumes one save token: 24h grace, grant extended 24h,
	// role retained, streak untouched.
	ExpirySave ExpiryKind = iota
	// ExpiryDegrade drops the streak to the next lower tier and extends
	// the grant 24h; the role survives one more cycle.
	ExpiryDegrade
	// ExpiryReset clears the streak entirely and falls through to
	// revocation.
	ExpiryReset
	// ExpiryRevoke removes the role and deletes the grant; the member
	// had no streak to consult.
	ExpiryRevoke
)

// ExpiryDecision resolves what happens when a countdown reaches zero.
type ExpiryDecision struct {
	Kind ExpiryKind
	// NewTier is the day threshold the streak degrades to (0 = below
	// every tier). Only meaningful for ExpiryDegrade.
	NewTier int
}

// ResolveExpiry runs the expiry sub-protocol against the member's streak
// state. Thresholds must be sorted ascending by day count.
func ResolveExpiry(rec model.StreakRecord, thresholds []model.StreakRoleThreshold, now time.Time) ExpiryDecision {
	if !rec.HasStreak() {
		return ExpiryDecision{Kind: ExpiryRevoke}
	}
	if rec.SaveTokens > 0 {
		return ExpiryDecision{Kind: ExpirySave}
	}

	days := StreakDays(rec.StreakStartAt, now)
	currentTier := CurrentTier(thresholds, days)
	if currentTier == 0 {
		return ExpiryDecision{Kind: ExpiryReset}
	}
	return ExpiryDecision{Kind: ExpiryDegrade, NewTier: NextLowerTier(thresholds, currentTier)}
}

// StreakDays is the whole number of fixed 24h days since the streak
// began. An absent streak (start of 0) has length 0.
func StreakDays(startAtMs int64, now time.Time) int {
	if startAtMs <= 0 {
		return 0
	}
	elapsed := now.UnixMilli() - startAtMs
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / DayMs)
}

// CurrentTier returns the highest threshold the given day count reaches,
// or 0 when the streak is below every tier.
func CurrentTier(thresholds []model.StreakRoleThreshold, days int) int {
	tier := 0
	for _, th := range thresholds {
		if th.DayThreshold <= days {
			tier = th.DayThreshold
		}
	}
	return tier
}

// NextLowerTier returns the highest threshold strictly below the given
// tier, or 0 when there is none.
func NextLowerTier(thresholds []model.StreakRoleThreshold, tier int) int {
	lower := 0
	for _, th := range thresholds {
		if th.DayThreshold < tier {
			lower = th.DayThreshold
		}
	}
	return lower
}
