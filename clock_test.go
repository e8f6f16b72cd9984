package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchEndsAfter120Ticks(t *testing.T) {
	phys := DefaultPhysics()
	w := newTestWorld()
	w.Match = MatchState{}
	clock := NewMatchClock(w)

	require.True(t, clock.Start(120))
	require.Equal(t, PhaseActive, clock.Phase())

	endedAt := []int{}
	for i := 1; i <= 120; i++ {
		changed, ended := clock.Tick()
		assert.True(t, changed, "tick %d", i)
		if ended {
			endedAt = append(endedAt, i)
		}
	}
	assert.Equal(t, []int{120}, endedAt)
	assert.Equal(t, PhaseEnded, clock.Phase())
	assert.Equal(t, EndTimeUp, w.Match.EndReason)
	assert.Zero(t, w.Match.RemainingSeconds)

	// more ticks change nothing and never end the match again
	for i := 0; i < 5; i++ {
		changed, ended := clock.Tick()
		assert.False(t, changed)
		assert.False(t, ended)
	}

	// physics is frozen from here on
	w.SetControls(HostPlayerID, ControlState{Right: true})
	w.Ball.VX = 5
	before := w.Clone()
	for i := 0; i < 60; i++ {
		assert.Nil(t, Step(w, phys))
	}
	assert.Equal(t, BuildSnapshot(before), BuildSnapshot(w))
}

func TestStartIsNoOpWhileActive(t *testing.T) {
	w := newTestWorld()
	w.Match = MatchState{}
	clock := NewMatchClock(w)

	require.True(t, clock.Start(90))
	w.Match.Scores.Red = 2
	clock.Tick()

	assert.False(t, clock.Start(300))
	assert.Equal(t, 89, w.Match.RemainingSeconds)
	assert.Equal(t, 2, w.Match.Scores.Red)
}

func TestStartResetsScoreAndDefaultsDuration(t *testing.T) {
	w := newTestWorld()
	w.Match = MatchState{Scores: Scores{Red: 3, Blue: 1}, Ended: true, EndReason: EndTimeUp}
	clock := NewMatchClock(w)

	require.True(t, clock.Start(0))
	assert.Equal(t, DefaultMatchSeconds, w.Match.RemainingSeconds)
	assert.Equal(t, Scores{}, w.Match.Scores)
	assert.Equal(t, EndNone, w.Match.EndReason)
	assert.False(t, w.Match.Ended)
}

func TestAbort(t *testing.T) {
	w := newTestWorld()
	w.Match = MatchState{}
	clock := NewMatchClock(w)

	assert.False(t, clock.Abort(EndPeerLeft), "nothing to abort while idle")
	assert.Equal(t, PhaseIdle, clock.Phase())

	clock.Start(60)
	assert.True(t, clock.Abort(EndHostLeft))
	assert.Equal(t, PhaseEnded, clock.Phase())
	assert.Equal(t, EndHostLeft, w.Match.EndReason)
	assert.Equal(t, 60, w.Match.RemainingSeconds)

	assert.False(t, clock.Abort(EndPeerLeft))
	assert.Equal(t, EndHostLeft, w.Match.EndReason)
}

func TestScoresWinner(t *testing.T) {
	assert.Equal(t, TeamRed, Scores{Red: 2, Blue: 1}.Winner())
	assert.Equal(t, TeamBlue, Scores{Red: 0, Blue: 1}.Winner())
	assert.Equal(t, Team(""), Scores{Red: 2, Blue: 2}.Winner())
	assert.Equal(t, "2-1", Scores{Red: 2, Blue: 1}.String())
}

func TestFormatClock(t *testing.T) {
	cases := map[int]string{
		120: "2:00",
		61:  "1:01",
		9:   "0:09",
		0:   "0:00",
		-4:  "0:00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatClock(in), "FormatClock(%d)", in)
	}
}
