package main

import "math"

// PhysicsParams are the tunable feel constants of the simulation. All
// velocities are in field units per tick.
type PhysicsParams struct {
	TickRate          int     `mapstructure:"tickRate"`
	PlayerRadius      float64 `mapstructure:"playerRadius"`
	BallRadius        float64 `mapstructure:"ballRadius"`
	Accel             float64 `mapstructure:"accel"`
	PlayerFriction    float64 `mapstructure:"playerFriction"`
	BallFriction      float64 `mapstructure:"ballFriction"`
	BounceDamping     float64 `mapstructure:"bounceDamping"`
	KickReach         float64 `mapstructure:"kickReach"`
	KickForce         float64 `mapstructure:"kickForce"`
	PassiveForce      float64 `mapstructure:"passiveForce"`
	KickCooldownTicks int     `mapstructure:"kickCooldownTicks"`
	WallMargin        float64 `mapstructure:"wallMargin"`
	GoalLineMargin    float64 `mapstructure:"goalLineMargin"`
	PostSpeed         float64 `mapstructure:"postSpeed"`
	GoalTop           float64 `mapstructure:"goalTop"`
	GoalBottom        float64 `mapstructure:"goalBottom"`
}

// DefaultPhysics returns the classic arcade tuning for the 800x480 pitch
func DefaultPhysics() PhysicsParams {
	return PhysicsParams{
		TickRate:          60,
		PlayerRadius:      15,
		BallRadius:        10,
		Accel:             0.45,
		PlayerFriction:    0.88,
		BallFriction:      0.98,
		BounceDamping:     0.5,
		KickReach:         10,
		KickForce:         12,
		PassiveForce:      3.5,
		KickCooldownTicks: 18, // 300ms at 60Hz
		WallMargin:        10,
		GoalLineMargin:    2,
		PostSpeed:         0.5,
		GoalTop:           170,
		GoalBottom:        310,
	}
}

// goalBand returns the goal-mouth band for a field. The configured band is
// defined against the default pitch height and scales with it.
func (p PhysicsParams) goalBand(f Field) (top, bottom float64) {
	if f.Height == DefaultField.Height || f.Height <= 0 {
		return p.GoalTop, p.GoalBottom
	}
	scale := f.Height / DefaultField.Height
	return p.GoalTop * scale, p.GoalBottom * scale
}

// Step advances the world one fixed tick and returns the side effects it
// produced. It does nothing unless the match is active.
func Step(w *World, p PhysicsParams) []Event {
	if !w.Match.Active {
		return nil
	}
	var events []Event
	players := w.Players()

	for _, pl := range players {
		if pl.ShootCooldown > 0 {
			pl.ShootCooldown--
			if pl.ShootCooldown == 0 {
				pl.CanShoot = true
			}
		}
	}

	// Movement. Diagonals are not normalized.
	for _, pl := range players {
		c := pl.Controls
		if c.Up {
			pl.VY -= p.Accel
		}
		if c.Down {
			pl.VY += p.Accel
		}
		if c.Left {
			pl.VX -= p.Accel
		}
		if c.Right {
			pl.VX += p.Accel
		}
		pl.VX *= p.PlayerFriction
		pl.VY *= p.PlayerFriction
		pl.X += pl.VX
		pl.Y += pl.VY
	}

	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			separatePlayers(players[i], players[j], p.PlayerRadius, p.BounceDamping)
		}
	}

	for _, pl := range players {
		pl.X = Clamp(pl.X, p.PlayerRadius, w.Field.Width-p.PlayerRadius)
		pl.Y = Clamp(pl.Y, p.PlayerRadius, w.Field.Height-p.PlayerRadius)
	}

	ball := &w.Ball
	for _, pl := range players {
		events = kickAndPush(pl, ball, p, events)
	}

	ball.X += ball.VX
	ball.Y += ball.VY
	ball.VX *= p.BallFriction
	ball.VY *= p.BallFriction

	events = bounceTopBottom(w, p, events)
	events = checkGoalLines(w, p, events)
	return events
}

// kickAndPush resolves one player's contact with the ball
func kickAndPush(pl *Player, ball *Ball, p PhysicsParams, events []Event) []Event {
	dist, nx, ny := contactAxis(pl.X, pl.Y, ball.X, ball.Y)
	contact := p.PlayerRadius + ball.Radius

	if pl.Controls.Kick && pl.CanShoot && dist < contact+p.KickReach {
		ball.VX += nx * p.KickForce
		ball.VY += ny * p.KickForce
		pl.CanShoot = false
		pl.ShootCooldown = p.KickCooldownTicks
		events = append(events, Event{Kind: EventKick, X: ball.X, Y: ball.Y, PlayerID: pl.ID, Team: pl.Team})
	}

	if dist < contact {
		overlap := contact - dist
		ball.X += nx * overlap
		ball.Y += ny * overlap
		ball.VX += nx * p.PassiveForce
		ball.VY += ny * p.PassiveForce
		events = append(events, Event{Kind: EventTouch, X: ball.X, Y: ball.Y, PlayerID: pl.ID, Team: pl.Team})
	}
	return events
}

func bounceTopBottom(w *World, p PhysicsParams, events []Event) []Event {
	ball := &w.Ball
	minY := ball.Radius + p.WallMargin
	maxY := w.Field.Height - ball.Radius - p.WallMargin
	if ball.Y >= minY && ball.Y <= maxY {
		return events
	}
	if math.Abs(ball.VY) > p.PostSpeed {
		events = append(events, Event{Kind: EventPost, X: ball.X, Y: ball.Y})
	}
	ball.VY = -ball.VY
	ball.Y = Clamp(ball.Y, minY, maxY)
	return events
}

func checkGoalLines(w *World, p PhysicsParams, events []Event) []Event {
	ball := &w.Ball
	top, bottom := p.goalBand(w.Field)
	inMouth := ball.Y > top && ball.Y < bottom
	leftLine := ball.Radius + p.GoalLineMargin
	rightLine := w.Field.Width - ball.Radius - p.GoalLineMargin

	switch {
	case ball.X < leftLine:
		if inMouth {
			return scoreGoal(w, TeamBlue, events)
		}
		ball.VX = -ball.VX
		ball.X = leftLine
	case ball.X > rightLine:
		if inMouth {
			return scoreGoal(w, TeamRed, events)
		}
		ball.VX = -ball.VX
		ball.X = rightLine
	}
	return events
}

func scoreGoal(w *World, team Team, events []Event) []Event {
	w.Match.Scores.Add(team)
	ev := Event{Kind: EventGoal, X: w.Ball.X, Y: w.Ball.Y, Team: team}
	if scorer := w.PlayerOnTeam(team); scorer != nil {
		ev.PlayerID = scorer.ID
	}
	w.ResetKickoff()
	return append(events, ev)
}
