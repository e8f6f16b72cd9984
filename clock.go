package main

import "fmt"

// MatchPhase represents the lifecycle of a match
type MatchPhase int

const (
	PhaseIdle   MatchPhase = 0
	PhaseActive MatchPhase = 1
	PhaseEnded  MatchPhase = 2
)

func (p MatchPhase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	}
	return "idle"
}

// EndReason tells why a match ended
type EndReason int

const (
	EndNone EndReason = iota
	EndTimeUp
	EndHostLeft
	EndPeerLeft
)

func (r EndReason) String() string {
	switch r {
	case EndTimeUp:
		return "time up"
	case EndHostLeft:
		return "host left"
	case EndPeerLeft:
		return "player left"
	}
	return ""
}

// DefaultMatchSeconds is used when a room does not pick a duration
const DefaultMatchSeconds = 120

// Scores holds goals per team
type Scores struct {
	Red  int `json:"red" msgpack:"red"`
	Blue int `json:"blue" msgpack:"blue"`
}

// Add credits one goal to a team
func (s *Scores) Add(team Team) {
	if team == TeamRed {
		s.Red++
	} else {
		s.Blue++
	}
}

// Winner returns the leading team, or "" on a draw
func (s Scores) Winner() Team {
	switch {
	case s.Red > s.Blue:
		return TeamRed
	case s.Blue > s.Red:
		return TeamBlue
	}
	return ""
}

func (s Scores) String() string {
	return fmt.Sprintf("%d-%d", s.Red, s.Blue)
}

// MatchState is the scoreboard and lifecycle flags of the current match
type MatchState struct {
	Scores           Scores
	RemainingSeconds int
	Active           bool
	Ended            bool
	EndReason        EndReason
}

// Phase derives the lifecycle phase from the flags
func (ms MatchState) Phase() MatchPhase {
	switch {
	case ms.Active:
		return PhaseActive
	case ms.Ended:
		return PhaseEnded
	}
	return PhaseIdle
}

// MatchClock drives the match lifecycle of a world. It owns no timer; the
// caller invokes Tick once per second.
type MatchClock struct {
	world *World
}

// NewMatchClock binds a clock to a world
func NewMatchClock(w *World) *MatchClock {
	return &MatchClock{world: w}
}

// Start begins a new match. It is a no-op while a match is already active.
// Returns true when the match was started.
func (c *MatchClock) Start(seconds int) bool {
	ms := &c.world.Match
	if ms.Active {
		return false
	}
	if seconds <= 0 {
		seconds = DefaultMatchSeconds
	}
	*ms = MatchState{
		RemainingSeconds: seconds,
		Active:           true,
	}
	return true
}

// Tick advances the clock by one second. It returns changed=true whenever
// the remaining time or the phase changed (the caller should broadcast), and
// ended=true exactly once, on the tick that ends the match.
func (c *MatchClock) Tick() (changed, ended bool) {
	ms := &c.world.Match
	if !ms.Active {
		return false, false
	}
	if ms.RemainingSeconds > 0 {
		ms.RemainingSeconds--
	}
	if ms.RemainingSeconds == 0 {
		c.end(EndTimeUp)
		return true, true
	}
	return true, false
}

// Abort forces the match to end (e.g. the peer disconnected). Returns false
// if no match was active.
func (c *MatchClock) Abort(reason EndReason) bool {
	if !c.world.Match.Active {
		return false
	}
	c.end(reason)
	return true
}

func (c *MatchClock) end(reason EndReason) {
	ms := &c.world.Match
	ms.Active = false
	ms.Ended = true
	ms.EndReason = reason
}

// Phase returns the current lifecycle phase
func (c *MatchClock) Phase() MatchPhase {
	return c.world.Match.Phase()
}

// FormatClock renders seconds as m:ss
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
