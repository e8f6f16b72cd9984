package main

// EventKind classifies a side effect reported by the simulation
type EventKind int

const (
	EventKick EventKind = iota + 1
	EventPost
	EventGoal
	EventTouch
)

func (k EventKind) String() string {
	switch k {
	case EventKick:
		return "kick"
	case EventPost:
		return "post"
	case EventGoal:
		return "goal"
	case EventTouch:
		return "touch"
	}
	return "unknown"
}

// Event is a side effect for the audio/visual collaborator. It carries
// where it happened and, for goals, who scored.
type Event struct {
	Kind     EventKind
	X, Y     float64
	PlayerID string
	Team     Team
}

// EventSink consumes side effects (sound, particles, celebration)
type EventSink interface {
	Play(ev Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(ev Event)

// Play calls f(ev)
func (f EventSinkFunc) Play(ev Event) { f(ev) }

// discardEvents is used when no sink is wired
var discardEvents = EventSinkFunc(func(Event) {})
