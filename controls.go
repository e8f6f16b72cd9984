package main

import "strings"

// JoystickThreshold is the knob offset (px) a touch joystick must exceed
// on an axis before that direction counts as pressed.
const JoystickThreshold = 15.0

// ControlState is the movement/kick intent of one player at one instant.
type ControlState struct {
	Up    bool `json:"w" msgpack:"w"`
	Down  bool `json:"s" msgpack:"s"`
	Left  bool `json:"a" msgpack:"a"`
	Right bool `json:"d" msgpack:"d"`
	Kick  bool `json:"space" msgpack:"space"`
}

// Wire flag bits for the compact binary input frame
const (
	flagUp    = 1 << 0
	flagDown  = 1 << 1
	flagLeft  = 1 << 2
	flagRight = 1 << 3
	flagKick  = 1 << 4
)

// Flags packs the intent into one byte
func (c ControlState) Flags() byte {
	var f byte
	if c.Up {
		f |= flagUp
	}
	if c.Down {
		f |= flagDown
	}
	if c.Left {
		f |= flagLeft
	}
	if c.Right {
		f |= flagRight
	}
	if c.Kick {
		f |= flagKick
	}
	return f
}

// ControlsFromFlags is the inverse of Flags
func ControlsFromFlags(f byte) ControlState {
	return ControlState{
		Up:    f&flagUp != 0,
		Down:  f&flagDown != 0,
		Left:  f&flagLeft != 0,
		Right: f&flagRight != 0,
		Kick:  f&flagKick != 0,
	}
}

// IsIdle reports whether no intent is asserted
func (c ControlState) IsIdle() bool {
	return c == ControlState{}
}

// ApplyKey updates the intent for a keyboard event. WASD, the arrow keys
// and space are recognised; anything else returns false and leaves c alone.
func (c *ControlState) ApplyKey(key string, down bool) bool {
	switch strings.ToLower(key) {
	case "w", "arrowup":
		c.Up = down
	case "s", "arrowdown":
		c.Down = down
	case "a", "arrowleft":
		c.Left = down
	case "d", "arrowright":
		c.Right = down
	case " ", "space", "spacebar":
		c.Kick = down
	default:
		return false
	}
	return true
}

// ApplyJoystick maps a joystick knob offset (dx, dy in px from the base
// centre, y grows downward) to the four movement intents. Kick is untouched
// because it has its own button.
func (c *ControlState) ApplyJoystick(dx, dy float64) {
	c.Up = dy < -JoystickThreshold
	c.Down = dy > JoystickThreshold
	c.Left = dx < -JoystickThreshold
	c.Right = dx > JoystickThreshold
}

// ReleaseJoystick clears all movement intents (touch end)
func (c *ControlState) ReleaseJoystick() {
	c.Up, c.Down, c.Left, c.Right = false, false, false, false
}
