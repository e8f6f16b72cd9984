package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestConsoleRenderIsRateLimited(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(zerolog.New(&buf), time.Second)
	clock := time.Unix(1000, 0)
	c.now = func() time.Time { return clock }

	view := NewFrameView(newTestWorld())
	c.Render(view)
	c.Render(view)
	clock = clock.Add(time.Second)
	c.Render(view)

	assert.Equal(t, 2, strings.Count(buf.String(), `"message":"frame"`))
	assert.Contains(t, buf.String(), `"clock":"2:00"`)
}

func TestConsoleShowMatchEnd(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(zerolog.New(&buf), time.Second)

	c.ShowMatchEnd(MatchState{Scores: Scores{Red: 1, Blue: 3}, Ended: true, EndReason: EndPeerLeft})
	assert.Contains(t, buf.String(), `"winner":"blue"`)
	assert.Contains(t, buf.String(), `"reason":"player left"`)

	buf.Reset()
	c.ShowMatchEnd(MatchState{Scores: Scores{Red: 2, Blue: 2}, Ended: true, EndReason: EndTimeUp})
	assert.Contains(t, buf.String(), `"winner":"draw"`)
}

func TestFrameView(t *testing.T) {
	w := newTestWorld()
	w.Player(HostPlayerID).Controls.Kick = true
	w.Ball.VX, w.Ball.VY = 3, 4

	v := NewFrameView(w)
	assert.Len(t, v.Players, 2)
	assert.Equal(t, HostPlayerID, v.Players[0].ID)
	assert.True(t, v.Players[0].Kicking)
	assert.Equal(t, 5.0, v.BallSpeed)
	assert.Equal(t, "2:00", v.Clock)
}
