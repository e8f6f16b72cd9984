package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestWorld returns a default pitch with red and blue on their kickoff
// spots and an active match.
func newTestWorld() *World {
	phys := DefaultPhysics()
	w := NewWorld(DefaultField, phys.BallRadius)
	w.AddPlayer(NewPlayer(HostPlayerID, "Red", TeamRed, "", DefaultField))
	w.AddPlayer(NewPlayer(GuestPlayerID, "Blue", TeamBlue, "", DefaultField))
	w.Match = MatchState{Active: true, RemainingSeconds: DefaultMatchSeconds}
	return w
}

func randomControls(r *rand.Rand) ControlState {
	return ControlsFromFlags(byte(r.Intn(32)))
}

func countEvents(events []Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestStepIsDeterministic(t *testing.T) {
	phys := DefaultPhysics()
	a := newTestWorld()
	b := a.Clone()

	ra := rand.New(rand.NewSource(7))
	rb := rand.New(rand.NewSource(7))
	for tick := 0; tick < 1200; tick++ {
		a.SetControls(HostPlayerID, randomControls(ra))
		a.SetControls(GuestPlayerID, randomControls(ra))
		b.SetControls(HostPlayerID, randomControls(rb))
		b.SetControls(GuestPlayerID, randomControls(rb))
		evA := Step(a, phys)
		evB := Step(b, phys)
		require.Equal(t, evA, evB, "events diverged at tick %d", tick)
	}
	assert.Equal(t, BuildSnapshot(a), BuildSnapshot(b))
	assert.Equal(t, a.Match, b.Match)
}

func TestStepKeepsEntitiesInBounds(t *testing.T) {
	phys := DefaultPhysics()
	w := newTestWorld()
	r := rand.New(rand.NewSource(99))

	minBallX := w.Ball.Radius + phys.GoalLineMargin
	maxBallX := w.Field.Width - w.Ball.Radius - phys.GoalLineMargin
	minBallY := w.Ball.Radius + phys.WallMargin
	maxBallY := w.Field.Height - w.Ball.Radius - phys.WallMargin

	for tick := 0; tick < 5000; tick++ {
		// hold an input for a while so players actually reach the walls
		if tick%30 == 0 {
			w.SetControls(HostPlayerID, randomControls(r))
			w.SetControls(GuestPlayerID, randomControls(r))
		}
		Step(w, phys)
		for _, p := range w.Players() {
			require.GreaterOrEqual(t, p.X, phys.PlayerRadius, "tick %d", tick)
			require.LessOrEqual(t, p.X, w.Field.Width-phys.PlayerRadius, "tick %d", tick)
			require.GreaterOrEqual(t, p.Y, phys.PlayerRadius, "tick %d", tick)
			require.LessOrEqual(t, p.Y, w.Field.Height-phys.PlayerRadius, "tick %d", tick)
		}
		require.GreaterOrEqual(t, w.Ball.X, minBallX, "tick %d", tick)
		require.LessOrEqual(t, w.Ball.X, maxBallX, "tick %d", tick)
		require.GreaterOrEqual(t, w.Ball.Y, minBallY, "tick %d", tick)
		require.LessOrEqual(t, w.Ball.Y, maxBallY, "tick %d", tick)
	}
}

func TestGoalOnLeftLineScoresForBlue(t *testing.T) {
	phys := DefaultPhysics()
	w := newTestWorld()
	red := w.Player(HostPlayerID)
	red.X, red.Y, red.VX = 400, 60, 2
	w.Ball.X, w.Ball.Y, w.Ball.VX = 15, 240, -5

	events := Step(w, phys)

	assert.Equal(t, Scores{Red: 0, Blue: 1}, w.Match.Scores)
	require.Equal(t, 1, countEvents(events, EventGoal))
	for _, ev := range events {
		if ev.Kind == EventGoal {
			assert.Equal(t, TeamBlue, ev.Team)
			assert.Equal(t, GuestPlayerID, ev.PlayerID)
		}
	}

	// everything is back on the kickoff spots, at rest
	assert.Equal(t, 400.0, w.Ball.X)
	assert.Equal(t, 240.0, w.Ball.Y)
	assert.Zero(t, w.Ball.VX)
	assert.Zero(t, w.Ball.VY)
	for _, p := range w.Players() {
		x, y := w.Field.Kickoff(p.Team)
		assert.Equal(t, x, p.X)
		assert.Equal(t, y, p.Y)
		assert.Zero(t, p.VX)
		assert.Zero(t, p.VY)
	}

	// a single crossing counts once
	for i := 0; i < 10; i++ {
		assert.Zero(t, countEvents(Step(w, phys), EventGoal))
	}
	assert.Equal(t, 1, w.Match.Scores.Blue)
}

func TestGoalOnRightLineScoresForRed(t *testing.T) {
	phys := DefaultPhysics()
	w := newTestWorld()
	w.Ball.X, w.Ball.Y, w.Ball.VX = 785, 200, 5

	events := Step(w, phys)

	assert.Equal(t, Scores{Red: 1, Blue: 0}, w.Match.Scores)
	assert.Equal(t, 1, countEvents(events, EventGoal))
}

func TestGoalLineOutsideMouthReflects(t *testing.T) {
	phys := DefaultPhysics()
	for _, y := range []float64{100, 170, 310, 400} {
		w := newTestWorld()
		w.Ball.X, w.Ball.Y, w.Ball.VX = 15, y, -5

		events := Step(w, phys)

		assert.Zero(t, countEvents(events, EventGoal), "y=%v", y)
		assert.Equal(t, Scores{}, w.Match.Scores, "y=%v", y)
		assert.Greater(t, w.Ball.VX, 0.0, "y=%v: horizontal velocity should flip", y)
		assert.InDelta(t, 5*phys.BallFriction, w.Ball.VX, 1e-9)
		assert.Equal(t, w.Ball.Radius+phys.GoalLineMargin, w.Ball.X)
	}
}

func TestGoalMouthScalesWithField(t *testing.T) {
	phys := DefaultPhysics()
	top, bottom := phys.goalBand(DefaultField)
	assert.Equal(t, 170.0, top)
	assert.Equal(t, 310.0, bottom)

	top, bottom = phys.goalBand(Field{Width: 1600, Height: 960})
	assert.Equal(t, 340.0, top)
	assert.Equal(t, 620.0, bottom)
}

func TestTopWallBounceEmitsPost(t *testing.T) {
	phys := DefaultPhysics()
	w := newTestWorld()
	w.Ball.X, w.Ball.Y, w.Ball.VY = 400, 25, -6

	events := Step(w, phys)

	assert.Equal(t, 1, countEvents(events, EventPost))
	assert.Equal(t, w.Ball.Radius+phys.WallMargin, w.Ball.Y)
	assert.Greater(t, w.Ball.VY, 0.0)

	// a slow ball creeping into the wall bounces silently
	w.Ball.Y, w.Ball.VY = 20.2, -0.3
	events = Step(w, phys)
	assert.Zero(t, countEvents(events, EventPost))
}

func TestKickGivesFixedImpulse(t *testing.T) {
	phys := DefaultPhysics()
	w := newTestWorld()
	red := w.Player(HostPlayerID)
	red.X, red.Y = 370, 240
	red.Controls = ControlState{Kick: true}

	events := Step(w, phys)

	require.Equal(t, 1, countEvents(events, EventKick))
	assert.False(t, red.CanShoot)
	assert.Equal(t, phys.KickCooldownTicks, red.ShootCooldown)
	// impulse along +X (away from the player), then one tick of friction
	assert.InDelta(t, phys.KickForce*phys.BallFriction, w.Ball.VX, 1e-9)
	assert.InDelta(t, 0, w.Ball.VY, 1e-9)
	assert.InDelta(t, 400+phys.KickForce, w.Ball.X, 1e-9)
}

func TestKickOutOfReachDoesNothing(t *testing.T) {
	phys := DefaultPhysics()
	w := newTestWorld()
	red := w.Player(HostPlayerID)
	red.X, red.Y = 360, 240 // 40 away, reach is 35
	red.Controls = ControlState{Kick: true}

	events := Step(w, phys)

	assert.Zero(t, countEvents(events, EventKick))
	assert.True(t, red.CanShoot)
	assert.Zero(t, w.Ball.VX)
}

func TestKickCooldownUnderContinuousContact(t *testing.T) {
	phys := DefaultPhysics()
	w := newTestWorld()
	red := w.Player(HostPlayerID)
	red.Controls = ControlState{Kick: true}

	var kickTicks []int
	for tick := 0; tick < 40; tick++ {
		// pin the ball on the player's boot every tick
		red.X, red.Y, red.VX, red.VY = 370, 240, 0, 0
		w.Ball.X, w.Ball.Y, w.Ball.VX, w.Ball.VY = 400, 240, 0, 0
		if countEvents(Step(w, phys), EventKick) > 0 {
			kickTicks = append(kickTicks, tick)
		}
	}

	cd := phys.KickCooldownTicks
	assert.Equal(t, []int{0, cd, 2 * cd}, kickTicks)
}

func TestPassiveContactPushesBall(t *testing.T) {
	phys := DefaultPhysics()
	w := newTestWorld()
	red := w.Player(HostPlayerID)
	red.X, red.Y = 380, 240 // overlapping the ball by 5

	events := Step(w, phys)

	assert.Equal(t, 1, countEvents(events, EventTouch))
	assert.Zero(t, countEvents(events, EventKick))
	assert.InDelta(t, phys.PassiveForce*phys.BallFriction, w.Ball.VX, 1e-9)
	assert.True(t, red.CanShoot)
}

func TestOverlappingPlayersSeparate(t *testing.T) {
	phys := DefaultPhysics()
	w := newTestWorld()
	red := w.Player(HostPlayerID)
	blue := w.Player(GuestPlayerID)
	red.X, red.Y = 200, 100
	blue.X, blue.Y = 210, 100
	red.VX = 4

	Step(w, phys)

	assert.InDelta(t, 2*phys.PlayerRadius, blue.X-red.X, 1e-9)
	// velocities were exchanged and halved
	assert.InDelta(t, 4*phys.PlayerFriction*phys.BounceDamping, blue.VX, 1e-9)
	assert.InDelta(t, 0, red.VX, 1e-9)
}

func TestDiagonalMovementIsNotNormalized(t *testing.T) {
	phys := DefaultPhysics()
	w := newTestWorld()
	red := w.Player(HostPlayerID)
	red.X, red.Y = 200, 200
	red.Controls = ControlState{Down: true, Right: true}

	Step(w, phys)

	want := phys.Accel * phys.PlayerFriction
	assert.InDelta(t, want, red.VX, 1e-9)
	assert.InDelta(t, want, red.VY, 1e-9)
}

func TestStepDoesNothingWhenMatchInactive(t *testing.T) {
	phys := DefaultPhysics()
	w := newTestWorld()
	w.Match.Active = false
	w.SetControls(HostPlayerID, ControlState{Right: true, Kick: true})
	w.Ball.VX = 3
	before := w.Clone()

	assert.Nil(t, Step(w, phys))
	assert.Equal(t, BuildSnapshot(before), BuildSnapshot(w))
}
