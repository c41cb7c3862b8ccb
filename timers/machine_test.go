package timers

import (
	"testing"
	"time"
	"timer-bot/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.UnixMilli(1_700_000_000_000)

func grantExpiringIn(ms int64) model.TimedGrant {
	return model.TimedGrant{
		GuildID:   "g1",
		UserID:    "u1",
		RoleID:    "r1",
		ExpiresAt: testNow.UnixMilli() + ms,
	}
}

func TestEvaluateNoActionFarFromExpiry(t *testing.T) {
	g := grantExpiringIn(2 * HourMs)
	d := Evaluate(g, testNow)
	assert.Equal(t, DecideNone, d.Kind)
	assert.Empty(t, d.WarnMinutes)
}

func TestEvaluateWarnAtSixtyMinutes(t *testing.T) {
	g := grantExpiringIn(60 * MinuteMs)
	d := Evaluate(g, testNow)
	require.Equal(t, DecideWarn, d.Kind)
	assert.Equal(t, []int{60}, d.WarnMinutes)
}

func TestEvaluateSlowTickCarriesMultipleWarnings(t *testing.T) {
	// Crossed both the 60 and 10 minute marks since the last tick. The
	// 1-minute marker is not yet due with 5 minutes remaining.
	g := grantExpiringIn(5 * MinuteMs)
	d := Evaluate(g, testNow)
	require.Equal(t, DecideWarn, d.Kind)
	assert.Equal(t, []int{60, 10}, d.WarnMinutes)

	g = grantExpiringIn(30 * 1000)
	d = Evaluate(g, testNow)
	require.Equal(t, DecideWarn, d.Kind)
	assert.Equal(t, []int{60, 10, 1}, d.WarnMinutes)
}

func TestEvaluateSentWarningsNotRepeated(t *testing.T) {
	g := grantExpiringIn(9 * MinuteMs)
	g.MarkWarning(60)
	d := Evaluate(g, testNow)
	require.Equal(t, DecideWarn, d.Kind)
	assert.Equal(t, []int{10}, d.WarnMinutes)

	g.MarkWarning(10)
	d = Evaluate(g, testNow)
	assert.Equal(t, DecideNone, d.Kind)
}

func TestEvaluateExpiry(t *testing.T) {
	assert.Equal(t, DecideExpire, Evaluate(grantExpiringIn(0), testNow).Kind)
	assert.Equal(t, DecideExpire, Evaluate(grantExpiringIn(-5*MinuteMs), testNow).Kind)
}

func TestEvaluatePausedShortCircuits(t *testing.T) {
	// A paused grant is inert even when its stored expiry is in the past.
	g := grantExpiringIn(-HourMs)
	g.Paused = true
	g.PauseType = model.PauseUser
	g.PausedRemainingMs = 30 * MinuteMs
	assert.Equal(t, DecideNone, Evaluate(g, testNow).Kind)
}

func TestEvaluateLapsedPauseAutoResumes(t *testing.T) {
	g := grantExpiringIn(-HourMs)
	g.Paused = true
	g.PauseType = model.PauseGlobal
	g.PausedRemainingMs = 30 * MinuteMs
	g.PauseExpiresAt = testNow.UnixMilli() - 1
	assert.Equal(t, DecideAutoResume, Evaluate(g, testNow).Kind)
}

func TestApplyAutoResumeRestartsFromFrozenRemainder(t *testing.T) {
	g := grantExpiringIn(-HourMs)
	g.Paused = true
	g.PauseType = model.PauseUser
	g.PausedRemainingMs = 45 * MinuteMs
	g.PauseExpiresAt = testNow.UnixMilli() - MinuteMs

	ApplyAutoResume(&g, testNow)

	assert.False(t, g.Paused)
	assert.Equal(t, model.PauseNone, g.PauseType)
	assert.Zero(t, g.PausedRemainingMs)
	assert.Zero(t, g.PauseExpiresAt)
	assert.Equal(t, testNow.UnixMilli()+45*MinuteMs, g.ExpiresAt)

	// Resumed with 45m left: the 60m marker is immediately due.
	d := Evaluate(g, testNow)
	require.Equal(t, DecideWarn, d.Kind)
	assert.Equal(t, []int{60}, d.WarnMinutes)
}

func TestAutoResumeWithZeroRemainderExpiresSameTick(t *testing.T) {
	g := grantExpiringIn(-HourMs)
	g.Paused = true
	g.PauseType = model.PauseUser
	g.PausedRemainingMs = 0
	g.PauseExpiresAt = testNow.UnixMilli()

	require.Equal(t, DecideAutoResume, Evaluate(g, testNow).Kind)
	ApplyAutoResume(&g, testNow)
	assert.Equal(t, DecideExpire, Evaluate(g, testNow).Kind)
}

func TestRemainingMinutesCeiling(t *testing.T) {
	assert.Equal(t, 0, RemainingMinutes(0))
	assert.Equal(t, 0, RemainingMinutes(-1))
	assert.Equal(t, 1, RemainingMinutes(1))
	assert.Equal(t, 1, RemainingMinutes(59_001))
	assert.Equal(t, 1, RemainingMinutes(60_000))
	assert.Equal(t, 2, RemainingMinutes(60_001))
	assert.Equal(t, 60, RemainingMinutes(60*MinuteMs))
	assert.Equal(t, 61, RemainingMinutes(60*MinuteMs+1))
}

func testThresholds() []model.StreakRoleThreshold {
	return []model.StreakRoleThreshold{
		{GuildID: "g1", DayThreshold: 7, RoleID: "r7"},
		{GuildID: "g1", DayThreshold: 30, RoleID: "r30"},
		{GuildID: "g1", DayThreshold: 90, RoleID: "r90"},
	}
}

func TestResolveExpiryNoStreakRevokes(t *testing.T) {
	rec := model.StreakRecord{GuildID: "g1", UserID: "u1"}
	d := ResolveExpiry(rec, testThresholds(), testNow)
	assert.Equal(t, ExpiryRevoke, d.Kind)
}

func TestResolveExpirySaveTokenWins(t *testing.T) {
	rec := model.StreakRecord{
		GuildID:       "g1",
		UserID:        "u1",
		StreakStartAt: testNow.UnixMilli() - 40*DayMs,
		SaveTokens:    2,
	}
	d := ResolveExpiry(rec, testThresholds(), testNow)
	assert.Equal(t, ExpirySave, d.Kind)
}

func TestResolveExpiryDegradeToNextLowerTier(t *testing.T) {
	rec := model.StreakRecord{
		GuildID:       "g1",
		UserID:        "u1",
		StreakStartAt: testNow.UnixMilli() - 40*DayMs,
	}
	d := ResolveExpiry(rec, testThresholds(), testNow)
	require.Equal(t, ExpiryDegrade, d.Kind)
	assert.Equal(t, 7, d.NewTier)
}

func TestResolveExpiryLowestTierDegradesToZero(t *testing.T) {
	rec := model.StreakRecord{
		GuildID:       "g1",
		UserID:        "u1",
		StreakStartAt: testNow.UnixMilli() - 10*DayMs,
	}
	d := ResolveExpiry(rec, testThresholds(), testNow)
	require.Equal(t, ExpiryDegrade, d.Kind)
	assert.Equal(t, 0, d.NewTier)
}

func TestResolveExpiryBelowEveryTierResets(t *testing.T) {
	rec := model.StreakRecord{
		GuildID:       "g1",
		UserID:        "u1",
		StreakStartAt: testNow.UnixMilli() - 3*DayMs,
	}
	d := ResolveExpiry(rec, testThresholds(), testNow)
	assert.Equal(t, ExpiryReset, d.Kind)
}

func TestResolveExpiryNoThresholdsConfigured(t *testing.T) {
	rec := model.StreakRecord{
		GuildID:       "g1",
		UserID:        "u1",
		StreakStartAt: testNow.UnixMilli() - 100*DayMs,
	}
	d := ResolveExpiry(rec, nil, testNow)
	assert.Equal(t, ExpiryReset, d.Kind)
}

func TestStreakDays(t *testing.T) {
	assert.Equal(t, 0, StreakDays(0, testNow))
	assert.Equal(t, 0, StreakDays(testNow.UnixMilli(), testNow))
	assert.Equal(t, 0, StreakDays(testNow.UnixMilli()-DayMs+1, testNow))
	assert.Equal(t, 1, StreakDays(testNow.UnixMilli()-DayMs, testNow))
	assert.Equal(t, 39, StreakDays(testNow.UnixMilli()-40*DayMs+HourMs, testNow))
}

func TestTierLookups(t *testing.T) {
	th := testThresholds()
	assert.Equal(t, 0, CurrentTier(th, 6))
	assert.Equal(t, 7, CurrentTier(th, 7))
	assert.Equal(t, 30, CurrentTier(th, 89))
	assert.Equal(t, 90, CurrentTier(th, 400))

	assert.Equal(t, 0, NextLowerTier(th, 7))
	assert.Equal(t, 7, NextLowerTier(th, 30))
	assert.Equal(t, 30, NextLowerTier(th, 90))
}
