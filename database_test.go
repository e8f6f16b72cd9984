package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)

	assert.Equal(t, "", db.GetSetting("missing"))
	require.NoError(t, db.SetSetting("k", "one"))
	require.NoError(t, db.SetSetting("k", "two"))
	assert.Equal(t, "two", db.GetSetting("k"))
}

func TestLeaderboardOrdering(t *testing.T) {
	db := openTestDB(t)

	for _, name := range []string{"Ana", "Bo", "Ana", "Cy", "Bo", "Ana"} {
		_, err := db.AddGoal(name)
		require.NoError(t, err)
	}
	total, err := db.AddGoal("Cy")
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, err = db.AddGoal("")
	assert.Error(t, err)

	entries, err := db.GetLeaderboard(10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Ana", entries[0].PlayerName)
	assert.Equal(t, 3, entries[0].Goals)
	assert.Equal(t, 1, entries[0].Rank)
	// ties break by name
	assert.Equal(t, "Bo", entries[1].PlayerName)
	assert.Equal(t, "Cy", entries[2].PlayerName)
	assert.Equal(t, 3, entries[2].Rank)
	assert.False(t, entries[0].UpdatedAt.IsZero())

	top, err := db.GetLeaderboard(1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	assert.Equal(t, map[string]int{"Ana": 3, "Bo": 2, "Cy": 2}, LeaderboardMap(entries))
}

func TestAnalyticsFlushOnStop(t *testing.T) {
	db := openTestDB(t)
	a := NewAnalytics(db)

	a.Track(EvtRoomCreated, "ABC123", "")
	a.Track(EvtChat, "ABC123", "Ana")
	a.Track(EvtChat, "ABC123", "Bo")
	a.Stop()
	a.Stop()

	counts, err := a.CountsSince(time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, counts[EvtRoomCreated])
	assert.Equal(t, 2, counts[EvtChat])

	a.SetLive(4, 2)
	live := a.Live()
	assert.Equal(t, 4, live.Connections)
	assert.Equal(t, 2, live.Rooms)
}

func TestNilAnalyticsIsSafe(t *testing.T) {
	var a *Analytics
	assert.NotPanics(t, func() {
		a.Track(EvtChat, "", "")
		a.SetLive(1, 1)
	})
}
