package timers

import (
	"testing"
	"time"
	"timer-bot/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPauseFreezesRemainder(t *testing.T) {
	g := grantExpiringIn(90 * MinuteMs)
	out, err := ApplyPause(&g, model.PauseUser, 0, testNow)
	require.NoError(t, err)

	assert.Equal(t, 90*MinuteMs, out.RemainingMs)
	assert.True(t, g.Paused)
	assert.Equal(t, model.PauseUser, g.PauseType)
	assert.Equal(t, 90*MinuteMs, g.PausedRemainingMs)
	assert.Zero(t, g.PauseExpiresAt)
}

func TestApplyPauseWithAutoResumeDeadline(t *testing.T) {
	g := grantExpiringIn(HourMs)
	_, err := ApplyPause(&g, model.PauseGlobal, 15, testNow)
	require.NoError(t, err)
	assert.Equal(t, testNow.UnixMilli()+15*MinuteMs, g.PauseExpiresAt)
}

func TestApplyPauseDoesNotStack(t *testing.T) {
	g := grantExpiringIn(HourMs)
	_, err := ApplyPause(&g, model.PauseUser, 0, testNow)
	require.NoError(t, err)

	_, err = ApplyPause(&g, model.PauseUser, 0, testNow)
	assert.ErrorIs(t, err, ErrAlreadyPaused)
	_, err = ApplyPause(&g, model.PauseGlobal, 0, testNow)
	assert.ErrorIs(t, err, ErrAlreadyPaused)
}

func TestApplyPauseRejectsUnknownScope(t *testing.T) {
	g := grantExpiringIn(HourMs)
	_, err := ApplyPause(&g, "staff", 0, testNow)
	assert.ErrorIs(t, err, ErrWrongPauseType)
}

func TestApplyPauseFloorsNegativeRemainder(t *testing.T) {
	g := grantExpiringIn(-5 * MinuteMs)
	out, err := ApplyPause(&g, model.PauseUser, 0, testNow)
	require.NoError(t, err)
	assert.Zero(t, out.RemainingMs)
	assert.Zero(t, g.PausedRemainingMs)
}

func TestApplyResumeRoundTripPreservesRemainder(t *testing.T) {
	g := grantExpiringIn(42 * MinuteMs)
	_, err := ApplyPause(&g, model.PauseUser, 0, testNow)
	require.NoError(t, err)

	later := testNow.Add(3 * time.Hour)
	require.NoError(t, ApplyResume(&g, model.PauseUser, later))

	assert.False(t, g.Paused)
	assert.Equal(t, model.PauseNone, g.PauseType)
	assert.Equal(t, later.UnixMilli()+42*MinuteMs, g.ExpiresAt)
}

func TestApplyResumeScopeHierarchy(t *testing.T) {
	g := grantExpiringIn(HourMs)
	_, err := ApplyPause(&g, model.PauseUser, 0, testNow)
	require.NoError(t, err)

	// A global resume must not lift a user pause.
	assert.ErrorIs(t, ApplyResume(&g, model.PauseGlobal, testNow), ErrWrongPauseType)
	assert.True(t, g.Paused)

	require.NoError(t, ApplyResume(&g, model.PauseUser, testNow))
	assert.False(t, g.Paused)
}

func TestApplyResumeGlobalPauseBlocksUserResume(t *testing.T) {
	g := grantExpiringIn(HourMs)
	_, err := ApplyPause(&g, model.PauseGlobal, 0, testNow)
	require.NoError(t, err)

	assert.ErrorIs(t, ApplyResume(&g, model.PauseUser, testNow), ErrWrongPauseType)
	require.NoError(t, ApplyResume(&g, model.PauseGlobal, testNow))
}

func TestApplyResumeNotPaused(t *testing.T) {
	g := grantExpiringIn(HourMs)
	assert.ErrorIs(t, ApplyResume(&g, model.PauseUser, testNow), ErrNotPaused)
}

func TestApplyResumeLegacyEmptyScopeActsAsUser(t *testing.T) {
	g := grantExpiringIn(HourMs)
	g.Paused = true
	g.PauseType = model.PauseNone
	g.PausedRemainingMs = 20 * MinuteMs

	assert.ErrorIs(t, ApplyResume(&g, model.PauseGlobal, testNow), ErrWrongPauseType)
	require.NoError(t, ApplyResume(&g, model.PauseUser, testNow))
	assert.Equal(t, testNow.UnixMilli()+20*MinuteMs, g.ExpiresAt)
}
