package main

import "math"

// AIParams tunes the bot
type AIParams struct {
	BehindOffset   float64 `mapstructure:"behindOffset"`
	DeadZone       float64 `mapstructure:"deadZone"`
	KickRange      float64 `mapstructure:"kickRange"`
	AlignTolerance float64 `mapstructure:"alignTolerance"`
	OwnGoalGuard   float64 `mapstructure:"ownGoalGuard"`
}

// DefaultAI returns the stock bot tuning
func DefaultAI() AIParams {
	return AIParams{
		BehindOffset:   20,
		DeadZone:       10,
		KickRange:      15,
		AlignTolerance: 20,
		OwnGoalGuard:   40,
	}
}

// BotName is the display name of the AI player
const BotName = "BOT 9000"

// ComputeControls decides the bot's intent for this tick. The bot chases a
// point just on its own side of the ball, goes straight for the ball once
// it is in the opponent half, and only kicks when that sends the ball
// toward the opponent goal.
func ComputeControls(bot *Player, ball Ball, field Field, phys PhysicsParams, p AIParams) ControlState {
	var c ControlState
	if bot == nil {
		return c
	}

	// own goal direction: +1 when defending the right side (blue)
	home := 1.0
	if bot.Team == TeamRed {
		home = -1.0
	}

	mid := field.Width / 2
	targetX := ball.X + home*p.BehindOffset
	targetY := ball.Y
	inOpponentHalf := (home > 0 && ball.X < mid) || (home < 0 && ball.X > mid)
	if inOpponentHalf {
		targetX = ball.X
	}

	ex := targetX - bot.X
	ey := targetY - bot.Y
	if math.Abs(ey) > p.DeadZone {
		c.Up = ey < 0
		c.Down = ey > 0
	}
	if math.Abs(ex) > p.DeadZone {
		c.Left = ex < 0
		c.Right = ex > 0
	}

	dx := ball.X - bot.X
	dy := ball.Y - bot.Y
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist < phys.PlayerRadius+ball.Radius+p.KickRange {
		behindBall := (home > 0 && bot.X > ball.X) || (home < 0 && bot.X < ball.X)
		if behindBall && math.Abs(dy) < p.AlignTolerance {
			c.Kick = true
		}
	}

	// stay out of our own net
	if home > 0 && bot.X > field.Width-p.OwnGoalGuard {
		c.Right = false
	}
	if home < 0 && bot.X < p.OwnGoalGuard {
		c.Left = false
	}
	return c
}
