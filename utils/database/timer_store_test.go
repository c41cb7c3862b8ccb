package database

import (
	"testing"
	"timer-bot/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := InitTimerDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testGrant(userID string, expiresAt int64) model.TimedGrant {
	return model.TimedGrant{
		GuildID:       "g1",
		UserID:        userID,
		RoleID:        "r1",
		ExpiresAt:     expiresAt,
		WarnChannelID: "c1",
		WarningsSent:  "[]",
	}
}

func TestCreateAndGetGrant(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, CreateGrant(db, testGrant("u1", 1000)))
	got, err := GetGrant(db, "g1", "u1", "r1")
	require.NoError(t, err)

	assert.Equal(t, int64(1000), got.ExpiresAt)
	assert.Equal(t, "c1", got.WarnChannelID)
	assert.False(t, got.Paused)
	assert.Equal(t, int64(0), got.Revision)
}

func TestGetGrantNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := GetGrant(db, "g1", "nobody", "r1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegrantResetsPauseAndWarnings(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, CreateGrant(db, testGrant("u1", 1000)))
	g, err := GetGrant(db, "g1", "u1", "r1")
	require.NoError(t, err)
	g.Paused = true
	g.PauseType = model.PauseUser
	g.PausedRemainingMs = 500
	g.MarkWarning(60)
	require.NoError(t, UpdateGrant(db, g))

	require.NoError(t, CreateGrant(db, testGrant("u1", 9000)))
	got, err := GetGrant(db, "g1", "u1", "r1")
	require.NoError(t, err)

	assert.Equal(t, int64(9000), got.ExpiresAt)
	assert.False(t, got.Paused)
	assert.Equal(t, model.PauseNone, got.PauseType)
	assert.Zero(t, got.PausedRemainingMs)
	assert.Empty(t, got.SentWarnings())
	// The revision keeps climbing so in-flight updates against the old
	// countdown fail instead of clobbering the new one.
	assert.Equal(t, int64(2), got.Revision)
}

func TestUpdateGrantRevisionGuard(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, CreateGrant(db, testGrant("u1", 1000)))

	first, err := GetGrant(db, "g1", "u1", "r1")
	require.NoError(t, err)
	second := first

	first.ExpiresAt = 2000
	require.NoError(t, UpdateGrant(db, first))

	second.ExpiresAt = 3000
	assert.ErrorIs(t, UpdateGrant(db, second), ErrStaleGrant)

	got, err := GetGrant(db, "g1", "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.ExpiresAt)
	assert.Equal(t, int64(1), got.Revision)
}

func TestDeleteGrantIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, CreateGrant(db, testGrant("u1", 1000)))

	require.NoError(t, DeleteGrant(db, "g1", "u1", "r1"))
	_, err := GetGrant(db, "g1", "u1", "r1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, DeleteGrant(db, "g1", "u1", "r1"))
}

func TestListGrants(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, CreateGrant(db, testGrant("u1", 1000)))
	require.NoError(t, CreateGrant(db, testGrant("u2", 2000)))
	other := testGrant("u3", 3000)
	other.GuildID = "g2"
	require.NoError(t, CreateGrant(db, other))

	all, err := ListAllGrants(db)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	guild, err := ListGrantsByGuild(db, "g1")
	require.NoError(t, err)
	assert.Len(t, guild, 2)

	member, err := ListGrantsByMember(db, "g1", "u1")
	require.NoError(t, err)
	assert.Len(t, member, 1)
}

func TestListPausedGrants(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, CreateGrant(db, testGrant("u1", 1000)))
	require.NoError(t, CreateGrant(db, testGrant("u2", 2000)))

	g, err := GetGrant(db, "g1", "u2", "r1")
	require.NoError(t, err)
	g.Paused = true
	g.PauseType = model.PauseGlobal
	require.NoError(t, UpdateGrant(db, g))

	paused, err := ListPausedGrants(db, "g1")
	require.NoError(t, err)
	require.Len(t, paused, 1)
	assert.Equal(t, "u2", paused[0].UserID)

	total, pausedCount, err := CountGrants(db)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, pausedCount)
}
