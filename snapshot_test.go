package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestStateFrameCarriesWholeWorld(t *testing.T) {
	w := newTestWorld()
	w.Player(HostPlayerID).Controls = ControlState{Up: true, Kick: true}
	w.Player(GuestPlayerID).CanShoot = false
	w.Ball.X, w.Ball.VY = 321.5, -2.25
	w.Match.Scores = Scores{Red: 2, Blue: 3}
	w.Match.RemainingSeconds = 47

	frame, err := EncodeStateFrame(BuildSnapshot(w))
	require.NoError(t, err)
	require.Equal(t, FrameState, frame[0])

	got, err := DecodeStateFrame(frame)
	require.NoError(t, err)

	require.Len(t, got.Players, 2)
	host := got.Players[HostPlayerID]
	assert.Equal(t, TeamRed, host.Team)
	assert.Equal(t, "Red", host.Name)
	assert.Equal(t, ControlState{Up: true, Kick: true}, host.Inputs)
	assert.False(t, got.Players[GuestPlayerID].CanShoot)

	require.NotNil(t, got.Ball)
	assert.Equal(t, 321.5, got.Ball.X)
	assert.Equal(t, -2.25, got.Ball.VY)
	require.NotNil(t, got.Scores)
	assert.Equal(t, Scores{Red: 2, Blue: 3}, *got.Scores)
	require.NotNil(t, got.MatchTime)
	assert.Equal(t, 47, *got.MatchTime)
	require.NotNil(t, got.MatchEnded)
	assert.False(t, *got.MatchEnded)
}

func TestStateFrameOptionalFieldsStayAbsent(t *testing.T) {
	body, err := msgpack.Marshal(map[string]interface{}{
		"players":    map[string]interface{}{},
		"matchEnded": true,
	})
	require.NoError(t, err)

	got, err := DecodeStateFrame(append([]byte{FrameState}, body...))
	require.NoError(t, err)
	assert.Nil(t, got.Ball)
	assert.Nil(t, got.Scores)
	assert.Nil(t, got.MatchTime)
	require.NotNil(t, got.MatchEnded)
	assert.True(t, *got.MatchEnded)
}

func TestDecodeStateFrameRejectsGarbage(t *testing.T) {
	_, err := DecodeStateFrame(nil)
	assert.ErrorIs(t, err, ErrBadFrame)

	_, err = DecodeStateFrame([]byte{FrameInput, 0})
	assert.ErrorIs(t, err, ErrBadFrame)

	_, err = DecodeStateFrame([]byte{FrameState, 0xc1})
	assert.Error(t, err)
}

func TestInputFrame(t *testing.T) {
	for f := 0; f < 32; f++ {
		c := ControlsFromFlags(byte(f))
		frame := EncodeInputFrame(c)
		require.Equal(t, []byte{FrameInput, byte(f)}, frame)

		got, err := DecodeInputFrame(frame)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := DecodeInputFrame([]byte{FrameInput})
	assert.ErrorIs(t, err, ErrBadFrame)
	_, err = DecodeInputFrame([]byte{FrameState, 1})
	assert.ErrorIs(t, err, ErrBadFrame)
}
