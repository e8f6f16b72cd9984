package main

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Binary frame kinds. The first byte of every binary websocket frame says
// what follows; the relay routes on it without decoding the rest.
const (
	FrameInput byte = 0x01
	FrameState byte = 0x02
)

var ErrBadFrame = errors.New("malformed frame")

// PlayerPublicState is what the host publishes about a player
type PlayerPublicState struct {
	ID       string       `json:"id" msgpack:"id"`
	Name     string       `json:"name" msgpack:"name"`
	Team     Team         `json:"color" msgpack:"color"`
	KitColor string       `json:"kitColor" msgpack:"kitColor"`
	X        float64      `json:"x" msgpack:"x"`
	Y        float64      `json:"y" msgpack:"y"`
	VX       float64      `json:"vx" msgpack:"vx"`
	VY       float64      `json:"vy" msgpack:"vy"`
	Inputs   ControlState `json:"inputs" msgpack:"inputs"`
	CanShoot bool         `json:"canShoot" msgpack:"canShoot"`
}

// BallState is the published ball
type BallState struct {
	X  float64 `json:"x" msgpack:"x"`
	Y  float64 `json:"y" msgpack:"y"`
	VX float64 `json:"vx" msgpack:"vx"`
	VY float64 `json:"vy" msgpack:"vy"`
}

// Snapshot is the full authoritative state sent host -> client. Optional
// fields are pointers so a partial snapshot can be told apart from zero
// values; absent fields leave the client's value untouched.
type Snapshot struct {
	Players    map[string]PlayerPublicState `json:"players" msgpack:"players"`
	Ball       *BallState                   `json:"ball,omitempty" msgpack:"ball,omitempty"`
	Scores     *Scores                      `json:"scores,omitempty" msgpack:"scores,omitempty"`
	MatchTime  *int                         `json:"matchTime,omitempty" msgpack:"matchTime,omitempty"`
	MatchEnded *bool                        `json:"matchEnded,omitempty" msgpack:"matchEnded,omitempty"`
}

// BuildSnapshot captures the world as the host sees it
func BuildSnapshot(w *World) Snapshot {
	snap := Snapshot{
		Players: make(map[string]PlayerPublicState, len(w.Players())),
		Ball:    &BallState{X: w.Ball.X, Y: w.Ball.Y, VX: w.Ball.VX, VY: w.Ball.VY},
	}
	scores := w.Match.Scores
	snap.Scores = &scores
	remaining := w.Match.RemainingSeconds
	snap.MatchTime = &remaining
	ended := w.Match.Ended
	snap.MatchEnded = &ended

	for _, p := range w.Players() {
		snap.Players[p.ID] = PlayerPublicState{
			ID:       p.ID,
			Name:     p.Name,
			Team:     p.Team,
			KitColor: p.KitColor,
			X:        p.X,
			Y:        p.Y,
			VX:       p.VX,
			VY:       p.VY,
			Inputs:   p.Controls,
			CanShoot: p.CanShoot,
		}
	}
	return snap
}

// EncodeStateFrame encodes a snapshot as a binary state frame
func EncodeStateFrame(s Snapshot) ([]byte, error) {
	body, err := msgpack.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	frame := make([]byte, len(body)+1)
	frame[0] = FrameState
	copy(frame[1:], body)
	return frame, nil
}

// DecodeStateFrame is the inverse of EncodeStateFrame
func DecodeStateFrame(frame []byte) (Snapshot, error) {
	var s Snapshot
	if len(frame) < 2 || frame[0] != FrameState {
		return s, ErrBadFrame
	}
	if err := msgpack.Unmarshal(frame[1:], &s); err != nil {
		return s, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// EncodeInputFrame encodes a control state as a two byte input frame
func EncodeInputFrame(c ControlState) []byte {
	return []byte{FrameInput, c.Flags()}
}

// DecodeInputFrame is the inverse of EncodeInputFrame
func DecodeInputFrame(frame []byte) (ControlState, error) {
	if len(frame) != 2 || frame[0] != FrameInput {
		return ControlState{}, ErrBadFrame
	}
	return ControlsFromFlags(frame[1]), nil
}
