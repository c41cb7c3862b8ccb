package timers

import (
	"testing"
	"time"
	"timer-bot/model"
	"timer-bot/utils"
	"timer-bot/utils/database"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *sqlx.DB) {
	t.Helper()
	db, err := database.InitTimerDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(db, utils.NewKeyedLock())
	svc.Now = func() time.Time { return testNow }
	return svc, db
}

func TestServiceGrant(t *testing.T) {
	svc, _ := newTestService(t)

	g, err := svc.Grant("g1", "u1", "r1", time.Hour, "chan1")
	require.NoError(t, err)
	assert.Equal(t, testNow.UnixMilli()+HourMs, g.ExpiresAt)
	assert.Equal(t, "chan1", g.WarnChannelID)
	assert.False(t, g.Paused)
}

func TestServiceRegrantRestartsCountdown(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Grant("g1", "u1", "r1", time.Hour, "")
	require.NoError(t, err)
	_, err = svc.Pause("g1", "u1", "r1", model.PauseUser, 0)
	require.NoError(t, err)

	g, err := svc.Grant("g1", "u1", "r1", 2*time.Hour, "")
	require.NoError(t, err)
	assert.Equal(t, testNow.UnixMilli()+2*HourMs, g.ExpiresAt)
	assert.False(t, g.Paused)
}

func TestServiceAddRemoveTime(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Grant("g1", "u1", "r1", time.Hour, "")
	require.NoError(t, err)

	g, err := svc.AddTime("g1", "u1", "r1", 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, testNow.UnixMilli()+90*MinuteMs, g.ExpiresAt)

	g, err = svc.RemoveTime("g1", "u1", "r1", 45*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, testNow.UnixMilli()+45*MinuteMs, g.ExpiresAt)
}

func TestServiceAdjustTimeUnknownGrant(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AddTime("g1", "nobody", "r1", time.Minute)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestServiceAdjustTimeWhilePausedTouchesRemainder(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Grant("g1", "u1", "r1", time.Hour, "")
	require.NoError(t, err)
	_, err = svc.Pause("g1", "u1", "r1", model.PauseUser, 0)
	require.NoError(t, err)

	g, err := svc.AddTime("g1", "u1", "r1", 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 90*MinuteMs, g.PausedRemainingMs)

	g, err = svc.RemoveTime("g1", "u1", "r1", 5*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, g.PausedRemainingMs)
}

func TestServiceClear(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Grant("g1", "u1", "r1", time.Hour, "")
	require.NoError(t, err)
	require.NoError(t, svc.Clear("g1", "u1", "r1"))

	_, _, err = svc.GetRemaining("g1", "u1", "r1")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestServicePauseResume(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Grant("g1", "u1", "r1", time.Hour, "")
	require.NoError(t, err)

	out, err := svc.Pause("g1", "u1", "r1", model.PauseUser, 0)
	require.NoError(t, err)
	assert.Equal(t, HourMs, out.RemainingMs)

	// Scope mismatch leaves the pause in place.
	_, _, err = svc.Resume("g1", "u1", "r1", model.PauseGlobal)
	assert.ErrorIs(t, err, ErrWrongPauseType)

	svc.Now = func() time.Time { return testNow.Add(6 * time.Hour) }
	g, expired, err := svc.Resume("g1", "u1", "r1", model.PauseUser)
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, testNow.Add(6*time.Hour).UnixMilli()+HourMs, g.ExpiresAt)
}

func TestServiceResumeWithSpentRemainderReportsExpired(t *testing.T) {
	svc, db := newTestService(t)

	_, err := svc.Grant("g1", "u1", "r1", time.Hour, "")
	require.NoError(t, err)
	_, err = svc.Pause("g1", "u1", "r1", model.PauseUser, 0)
	require.NoError(t, err)

	// Zero the frozen remainder behind the service's back.
	g, err := database.GetGrant(db, "g1", "u1", "r1")
	require.NoError(t, err)
	g.PausedRemainingMs = 0
	require.NoError(t, database.UpdateGrant(db, g))

	_, expired, err := svc.Resume("g1", "u1", "r1", model.PauseUser)
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestServiceBulkPauseSkipsAlreadyPaused(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Grant("g1", "u1", "r1", time.Hour, "")
	require.NoError(t, err)
	_, err = svc.Grant("g1", "u2", "r1", time.Hour, "")
	require.NoError(t, err)
	_, err = svc.Pause("g1", "u1", "r1", model.PauseUser, 0)
	require.NoError(t, err)

	out, err := svc.BulkPause("g1", model.PauseGlobal, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Matched)
	assert.Equal(t, 1, out.Succeeded)
}

func TestServiceBulkPauseRoleFilter(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Grant("g1", "u1", "r1", time.Hour, "")
	require.NoError(t, err)
	_, err = svc.Grant("g1", "u1", "r2", time.Hour, "")
	require.NoError(t, err)

	out, err := svc.BulkPause("g1", model.PauseGlobal, 0, "r2")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Matched)
	assert.Equal(t, 1, out.Succeeded)
}

func TestServiceBulkResumeScopeAndDeadGrants(t *testing.T) {
	svc, db := newTestService(t)

	_, err := svc.Grant("g1", "u1", "r1", time.Hour, "")
	require.NoError(t, err)
	_, err = svc.Grant("g1", "u2", "r1", time.Hour, "")
	require.NoError(t, err)
	_, err = svc.Pause("g1", "u1", "r1", model.PauseGlobal, 0)
	require.NoError(t, err)
	_, err = svc.Pause("g1", "u2", "r1", model.PauseUser, 0)
	require.NoError(t, err)

	// Spend u1's remainder so the resume reports it dead.
	g, err := database.GetGrant(db, "g1", "u1", "r1")
	require.NoError(t, err)
	g.PausedRemainingMs = 0
	require.NoError(t, database.UpdateGrant(db, g))

	out, dead, err := svc.BulkResume("g1", model.PauseGlobal, "")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Matched)
	assert.Equal(t, 1, out.Succeeded)
	require.Len(t, dead, 1)
	assert.Equal(t, "u1", dead[0].UserID)

	// The user-scoped pause survived the global sweep.
	paused, err := svc.ListPausedTimers("g1")
	require.NoError(t, err)
	require.Len(t, paused, 1)
	assert.Equal(t, "u2", paused[0].UserID)
}

func TestServiceListMemberTimers(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Grant("g1", "u1", "r1", time.Hour, "")
	require.NoError(t, err)
	_, err = svc.Grant("g1", "u1", "r2", 2*time.Hour, "")
	require.NoError(t, err)
	_, err = svc.Grant("g1", "u2", "r1", time.Hour, "")
	require.NoError(t, err)

	grants, err := svc.ListMemberTimers("g1", "u1")
	require.NoError(t, err)
	require.Len(t, grants, 2)
	for _, g := range grants {
		assert.Equal(t, "u1", g.UserID)
	}

	grants, err = svc.ListMemberTimers("g1", "nobody")
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestServiceGetRemaining(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Grant("g1", "u1", "r1", time.Hour, "")
	require.NoError(t, err)

	remaining, paused, err := svc.GetRemaining("g1", "u1", "r1")
	require.NoError(t, err)
	assert.False(t, paused)
	assert.Equal(t, time.Hour, remaining)

	_, err = svc.Pause("g1", "u1", "r1", model.PauseUser, 0)
	require.NoError(t, err)

	// The frozen remainder does not drain while paused.
	svc.Now = func() time.Time { return testNow.Add(48 * time.Hour) }
	remaining, paused, err = svc.GetRemaining("g1", "u1", "r1")
	require.NoError(t, err)
	assert.True(t, paused)
	assert.Equal(t, time.Hour, remaining)
}

func TestServiceGetExpiry(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Grant("g1", "u1", "r1", time.Hour, "")
	require.NoError(t, err)

	expiry, paused, err := svc.GetExpiry("g1", "u1", "r1")
	require.NoError(t, err)
	assert.False(t, paused)
	assert.Equal(t, testNow.Add(time.Hour).UnixMilli(), expiry.UnixMilli())
}
