package main

import (
	"time"

	"github.com/rs/zerolog"
)

// PlayerView is one player as the renderer sees it
type PlayerView struct {
	ID       string
	Name     string
	Team     Team
	KitColor string
	X, Y     float64
	Kicking  bool
}

// FrameView is a read-only copy of what to draw this frame
type FrameView struct {
	Players   []PlayerView
	BallX     float64
	BallY     float64
	BallSpeed float64
	Scores    Scores
	Clock     string
	Ended     bool
}

// NewFrameView copies the drawable parts of a world
func NewFrameView(w *World) FrameView {
	v := FrameView{
		Players:   make([]PlayerView, 0, len(w.Players())),
		BallX:     w.Ball.X,
		BallY:     w.Ball.Y,
		BallSpeed: Distance(0, 0, w.Ball.VX, w.Ball.VY),
		Scores:    w.Match.Scores,
		Clock:     FormatClock(w.Match.RemainingSeconds),
		Ended:     w.Match.Ended,
	}
	for _, p := range w.Players() {
		v.Players = append(v.Players, PlayerView{
			ID:       p.ID,
			Name:     p.Name,
			Team:     p.Team,
			KitColor: p.KitColor,
			X:        p.X,
			Y:        p.Y,
			Kicking:  p.Controls.Kick,
		})
	}
	return v
}

// Renderer draws one frame
type Renderer interface {
	Render(v FrameView)
}

// Notifier shows a transient message to the user
type Notifier interface {
	Notify(msg string)
}

// InputSource yields the local player's current intent
type InputSource interface {
	Controls() ControlState
}

// InputFunc adapts a function to InputSource
type InputFunc func() ControlState

// Controls calls f()
func (f InputFunc) Controls() ControlState { return f() }

// Console is the headless implementation of every UI collaborator: it
// writes what a browser would show to the log.
type Console struct {
	log      zerolog.Logger
	every    time.Duration
	lastDraw time.Time
	now      func() time.Time
}

// NewConsole creates a console that logs at most one frame per interval
func NewConsole(logger zerolog.Logger, every time.Duration) *Console {
	return &Console{log: logger, every: every, now: time.Now}
}

// Render logs the scoreboard and positions, rate limited
func (c *Console) Render(v FrameView) {
	now := c.now()
	if now.Sub(c.lastDraw) < c.every {
		return
	}
	c.lastDraw = now
	ev := c.log.Debug().
		Str("score", v.Scores.String()).
		Str("clock", v.Clock).
		Float64("ballX", v.BallX).
		Float64("ballY", v.BallY)
	for _, p := range v.Players {
		ev = ev.Dict(p.ID, zerolog.Dict().Float64("x", p.X).Float64("y", p.Y))
	}
	ev.Msg("frame")
}

// Play logs a side effect. Touches are too frequent for info level.
func (c *Console) Play(e Event) {
	if e.Kind == EventTouch {
		c.log.Trace().Str("player", e.PlayerID).Msg("touch")
		return
	}
	ev := c.log.Info().Str("event", e.Kind.String())
	if e.PlayerID != "" {
		ev = ev.Str("player", e.PlayerID)
	}
	if e.Team != "" {
		ev = ev.Str("team", string(e.Team))
	}
	ev.Msg("side effect")
}

// Notify logs a transient message
func (c *Console) Notify(msg string) {
	c.log.Warn().Msg(msg)
}

// ShowMatchEnd logs the final score
func (c *Console) ShowMatchEnd(ms MatchState) {
	winner := "draw"
	if t := ms.Scores.Winner(); t != "" {
		winner = string(t)
	}
	c.log.Info().
		Str("score", ms.Scores.String()).
		Str("winner", winner).
		Str("reason", ms.EndReason.String()).
		Msg("match over")
}

// MatchPresenterFunc adapts a function to MatchPresenter
type MatchPresenterFunc func(ms MatchState)

// ShowMatchEnd calls f(ms)
func (f MatchPresenterFunc) ShowMatchEnd(ms MatchState) { f(ms) }

// Autopilot plays a seat with the bot's brain, so a headless peer has
// something to send. It reads the world on the loop goroutine only.
type Autopilot struct {
	World    *World
	PlayerID string
	Physics  PhysicsParams
	AI       AIParams
}

// Controls implements InputSource
func (a *Autopilot) Controls() ControlState {
	if a.World == nil {
		return ControlState{}
	}
	return ComputeControls(a.World.Player(a.PlayerID), a.World.Ball, a.World.Field, a.Physics, a.AI)
}
