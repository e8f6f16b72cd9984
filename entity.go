package main

// Team identifies a side of the pitch
type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Opponent returns the other team
func (t Team) Opponent() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

// DefaultKit returns the kit colour used when a player picks none
func (t Team) DefaultKit() string {
	if t == TeamRed {
		return "#ff4d4d"
	}
	return "#4d94ff"
}

// Seat ids used by both peers. The host always plays red.
const (
	HostPlayerID  = "peer_host"
	GuestPlayerID = "peer_blue"
)

// Field is the size of the playing area
type Field struct {
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
}

// DefaultField is the classic 800x480 pitch
var DefaultField = Field{Width: 800, Height: 480}

// KickoffOffset is the distance from the side line to each team's kickoff spot.
const KickoffOffset = 100.0

// Kickoff returns the reset position for a team
func (f Field) Kickoff(team Team) (float64, float64) {
	if team == TeamRed {
		return KickoffOffset, f.Height / 2
	}
	return f.Width - KickoffOffset, f.Height / 2
}

// Player is one body on the pitch
type Player struct {
	ID       string
	Name     string
	Team     Team
	KitColor string
	X, Y     float64
	VX, VY   float64
	Controls ControlState
	CanShoot bool
	// Ticks left until CanShoot is restored
	ShootCooldown int

	// Client-side interpolation target
	TX, TY    float64
	HasTarget bool
}

// NewPlayer creates a player on its team's kickoff spot
func NewPlayer(id, name string, team Team, kit string, field Field) *Player {
	if kit == "" {
		kit = team.DefaultKit()
	}
	x, y := field.Kickoff(team)
	return &Player{
		ID:       id,
		Name:     name,
		Team:     team,
		KitColor: kit,
		X:        x,
		Y:        y,
		CanShoot: true,
	}
}

// Ball is the single ball
type Ball struct {
	X, Y   float64
	VX, VY float64
	Radius float64

	TX, TY    float64
	HasTarget bool
}

// World is the whole simulated state. Exactly one activity mutates it at a
// time; see Loop.
type World struct {
	Field Field
	Ball  Ball
	Match MatchState

	players []*Player
	byID    map[string]*Player
}

// NewWorld creates an empty world with the ball on the centre spot
func NewWorld(field Field, ballRadius float64) *World {
	return &World{
		Field: field,
		Ball:  Ball{X: field.Width / 2, Y: field.Height / 2, Radius: ballRadius},
		byID:  make(map[string]*Player),
	}
}

// AddPlayer inserts or replaces a player. Insertion order is kept, which
// makes every per-player loop deterministic.
func (w *World) AddPlayer(p *Player) {
	if old, ok := w.byID[p.ID]; ok {
		*old = *p
		return
	}
	w.players = append(w.players, p)
	w.byID[p.ID] = p
}

// RemovePlayer drops a player if present
func (w *World) RemovePlayer(id string) {
	if _, ok := w.byID[id]; !ok {
		return
	}
	delete(w.byID, id)
	for i, p := range w.players {
		if p.ID == id {
			w.players = append(w.players[:i], w.players[i+1:]...)
			break
		}
	}
}

// Player returns the player with the given id, or nil
func (w *World) Player(id string) *Player {
	return w.byID[id]
}

// Players returns the players in insertion order. The slice must not be
// modified by the caller.
func (w *World) Players() []*Player {
	return w.players
}

// PlayerOnTeam returns the first player of a team, or nil
func (w *World) PlayerOnTeam(team Team) *Player {
	for _, p := range w.players {
		if p.Team == team {
			return p
		}
	}
	return nil
}

// SetControls replaces a player's intent. Unknown ids are ignored.
func (w *World) SetControls(id string, c ControlState) bool {
	p := w.byID[id]
	if p == nil {
		return false
	}
	p.Controls = c
	return true
}

// ResetKickoff puts the ball on the centre spot and every player on its
// team's kickoff spot with zero velocity.
func (w *World) ResetKickoff() {
	w.Ball.X = w.Field.Width / 2
	w.Ball.Y = w.Field.Height / 2
	w.Ball.VX = 0
	w.Ball.VY = 0
	for _, p := range w.players {
		p.X, p.Y = w.Field.Kickoff(p.Team)
		p.VX = 0
		p.VY = 0
		p.CanShoot = true
		p.ShootCooldown = 0
	}
}

// Clone returns a deep copy, used by tests and by determinism checks
func (w *World) Clone() *World {
	c := &World{
		Field: w.Field,
		Ball:  w.Ball,
		Match: w.Match,
		byID:  make(map[string]*Player, len(w.players)),
	}
	for _, p := range w.players {
		cp := *p
		c.players = append(c.players, &cp)
		c.byID[cp.ID] = &cp
	}
	return c
}
