package main

import (
	"time"

	"github.com/rs/zerolog"
)

// Role is the part a peer plays in a room
type Role int

const (
	RoleHost Role = iota
	RoleClient
	RoleSpectator
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleClient:
		return "client"
	case RoleSpectator:
		return "spectator"
	}
	return "unknown"
}

// SimulationDriver runs one side of a match. Everything it does happens on
// the loop goroutine: periodic work through Activities, relay traffic
// through HandleEvent.
type SimulationDriver interface {
	Role() Role
	World() *World
	// Activities returns the periodic jobs for the current phase
	Activities() []Activity
	HandleEvent(ev PeerEvent)
}

// Armer replaces the periodic activities of a loop
type Armer interface {
	Arm(acts ...Activity)
}

// UI bundles the presentation collaborators of a driver. Nil members are
// replaced with no-ops.
type UI struct {
	Input     InputSource
	Events    EventSink
	Render    Renderer
	Presenter MatchPresenter
	Notify    Notifier
}

type nopUI struct{}

func (nopUI) Render(FrameView)        {}
func (nopUI) Notify(string)           {}
func (nopUI) ShowMatchEnd(MatchState) {}

func (u UI) withDefaults() UI {
	if u.Events == nil {
		u.Events = discardEvents
	}
	if u.Render == nil {
		u.Render = nopUI{}
	}
	if u.Presenter == nil {
		u.Presenter = nopUI{}
	}
	if u.Notify == nil {
		u.Notify = nopUI{}
	}
	return u
}

// ConsoleUI wires a Console into every presentation slot
func ConsoleUI(c *Console, input InputSource) UI {
	return UI{Input: input, Events: c, Render: c, Presenter: c, Notify: c}
}

// HostDriver owns the authoritative simulation: it steps physics, drives
// the bot, runs the match clock and broadcasts snapshots.
type HostDriver struct {
	world *World
	clock *MatchClock
	phys  PhysicsParams
	ai    AIParams
	sync  SyncParams

	net  StateSender
	ui   UI
	loop Armer
	log  zerolog.Logger

	duration int
	aiActive bool
}

// NewHostDriver creates a host with its own player seated on red. net may
// be nil for an offline match.
func NewHostDriver(cfg Config, hostName string, net StateSender, loop Armer, ui UI, logger zerolog.Logger) *HostDriver {
	w := NewWorld(cfg.Field, cfg.Physics.BallRadius)
	w.AddPlayer(NewPlayer(HostPlayerID, hostName, TeamRed, cfg.Peer.KitColor, cfg.Field))
	return &HostDriver{
		world:    w,
		clock:    NewMatchClock(w),
		phys:     cfg.Physics,
		ai:       cfg.AI,
		sync:     cfg.Sync,
		net:      net,
		ui:       ui.withDefaults(),
		loop:     loop,
		log:      logger.With().Str("role", RoleHost.String()).Logger(),
		duration: cfg.Peer.Duration,
	}
}

// Role implements SimulationDriver
func (h *HostDriver) Role() Role { return RoleHost }

// World implements SimulationDriver
func (h *HostDriver) World() *World { return h.world }

// SetDuration sets the length used by the next StartMatch
func (h *HostDriver) SetDuration(seconds int) { h.duration = seconds }

// AddBot seats the AI on blue and lets it play the guest seat
func (h *HostDriver) AddBot() {
	h.world.AddPlayer(NewPlayer(GuestPlayerID, BotName, TeamBlue, "", h.world.Field))
	h.aiActive = true
}

// SeatGuest seats a remote player on blue, replacing any bot
func (h *HostDriver) SeatGuest(name, kit string) {
	h.aiActive = false
	h.world.AddPlayer(NewPlayer(GuestPlayerID, name, TeamBlue, kit, h.world.Field))
}

// Activities implements SimulationDriver. A running match needs physics,
// broadcast, the clock and rendering; otherwise only rendering runs.
func (h *HostDriver) Activities() []Activity {
	frame := Activity{Name: "frame", Interval: Every(h.sync.RenderHz), Run: h.Frame}
	if !h.world.Match.Active {
		return []Activity{frame}
	}
	return []Activity{
		{Name: "physics", Interval: Every(h.phys.TickRate), Run: h.PhysicsTick},
		{Name: "broadcast", Interval: Every(h.sync.BroadcastHz), Run: h.Broadcast},
		{Name: "clock", Interval: time.Second, Run: h.ClockTick},
		frame,
	}
}

// StartMatch kicks off a new match if none is running
func (h *HostDriver) StartMatch() bool {
	if !h.clock.Start(h.duration) {
		return false
	}
	h.world.ResetKickoff()
	h.log.Info().
		Int("seconds", h.world.Match.RemainingSeconds).
		Bool("bot", h.aiActive).
		Msg("match started")
	h.rearm()
	h.Broadcast()
	return true
}

// EndMatch aborts a running match
func (h *HostDriver) EndMatch(reason EndReason) {
	if !h.clock.Abort(reason) {
		return
	}
	h.finish()
}

// PhysicsTick applies intents and advances the simulation one step
func (h *HostDriver) PhysicsTick() {
	if h.ui.Input != nil {
		h.world.SetControls(HostPlayerID, h.ui.Input.Controls())
	}
	if h.aiActive {
		if bot := h.world.Player(GuestPlayerID); bot != nil {
			bot.Controls = ComputeControls(bot, h.world.Ball, h.world.Field, h.phys, h.ai)
		}
	}

	scored := false
	for _, ev := range Step(h.world, h.phys) {
		h.ui.Events.Play(ev)
		if ev.Kind == EventGoal {
			scored = true
			h.reportGoal(ev)
		}
	}
	if scored {
		// clients see the new score without waiting for the next broadcast
		h.Broadcast()
	}
}

// ClockTick advances the match clock by a second
func (h *HostDriver) ClockTick() {
	changed, ended := h.clock.Tick()
	if ended {
		h.finish()
		return
	}
	if changed {
		h.Broadcast()
	}
}

// Broadcast sends the full state to the room
func (h *HostDriver) Broadcast() {
	if h.net == nil {
		return
	}
	if err := h.net.SendState(BuildSnapshot(h.world)); err != nil {
		h.log.Debug().Err(err).Msg("broadcast failed")
	}
}

// Frame renders the current world
func (h *HostDriver) Frame() {
	h.ui.Render.Render(NewFrameView(h.world))
}

// HandleEvent implements SimulationDriver
func (h *HostDriver) HandleEvent(ev PeerEvent) {
	switch ev.Type {
	case EvInput:
		if !h.aiActive {
			h.world.SetControls(GuestPlayerID, ev.Input)
		}
	case EvPlayerJoined:
		if ev.Joined.Role == RoleNameSpectator {
			h.ui.Notify.Notify(ev.Joined.PlayerName + " is watching")
			return
		}
		h.SeatGuest(ev.Joined.PlayerName, ev.Joined.KitColor)
		h.ui.Notify.Notify(ev.Joined.PlayerName + " joined")
		h.StartMatch()
	case EvPlayerLeft:
		h.ui.Notify.Notify("opponent left")
		h.EndMatch(EndPeerLeft)
		h.world.RemovePlayer(GuestPlayerID)
		h.aiActive = false
	case EvChat:
		h.ui.Notify.Notify(ev.Chat.PlayerName + ": " + ev.Chat.Message)
	case EvLeaderboard:
		h.log.Info().Interface("leaderboard", ev.Leaderboard).Msg("leaderboard updated")
	case EvDisconnected:
		h.ui.Notify.Notify("lost connection to relay")
		h.net = nil
	}
}

func (h *HostDriver) finish() {
	h.Broadcast()
	h.log.Info().
		Str("score", h.world.Match.Scores.String()).
		Str("reason", h.world.Match.EndReason.String()).
		Msg("match ended")
	h.ui.Presenter.ShowMatchEnd(h.world.Match)
	h.rearm()
}

func (h *HostDriver) rearm() {
	if h.loop != nil {
		h.loop.Arm(h.Activities()...)
	}
}

func (h *HostDriver) reportGoal(ev Event) {
	if h.net == nil || h.aiActive {
		return
	}
	scorer := h.world.Player(ev.PlayerID)
	if scorer == nil {
		return
	}
	if err := h.net.ReportGoal(scorer.Name); err != nil {
		h.log.Debug().Err(err).Msg("report goal")
	}
}

// ClientDriver mirrors the host: it merges snapshots, smooths positions
// between them and sends the local intent upstream.
type ClientDriver struct {
	role  Role
	world *World
	rec   *Reconciler
	sync  SyncParams
	phys  PhysicsParams

	net InputSender
	ui  UI
	log zerolog.Logger

	lastSent ControlState
	sentOnce bool
}

// NewClientDriver creates a client or spectator driver
func NewClientDriver(cfg Config, role Role, net InputSender, ui UI, logger zerolog.Logger) (*ClientDriver, error) {
	ui = ui.withDefaults()
	rec, err := NewReconciler(DefaultPolicyTable(cfg.Sync.SnapThreshold), cfg.Field, ui.Events, ui.Presenter)
	if err != nil {
		return nil, err
	}
	return &ClientDriver{
		role:  role,
		world: NewWorld(cfg.Field, cfg.Physics.BallRadius),
		rec:   rec,
		sync:  cfg.Sync,
		phys:  cfg.Physics,
		net:   net,
		ui:    ui,
		log:   logger.With().Str("role", role.String()).Logger(),
	}, nil
}

// Role implements SimulationDriver
func (c *ClientDriver) Role() Role { return c.role }

// World implements SimulationDriver
func (c *ClientDriver) World() *World { return c.world }

// Activities implements SimulationDriver. Spectators never send input.
func (c *ClientDriver) Activities() []Activity {
	acts := []Activity{{Name: "frame", Interval: Every(c.sync.RenderHz), Run: c.Frame}}
	if c.role == RoleClient && c.ui.Input != nil && c.net != nil {
		acts = append(acts, Activity{Name: "input", Interval: Every(c.phys.TickRate), Run: c.PollInput})
	}
	return acts
}

// Frame eases positions toward their targets and renders
func (c *ClientDriver) Frame() {
	Interpolate(c.world, c.sync.InterpFactor, c.sync.SnapEpsilon)
	c.ui.Render.Render(NewFrameView(c.world))
}

// PollInput sends the local intent when it changed
func (c *ClientDriver) PollInput() {
	if c.role != RoleClient || c.ui.Input == nil || c.net == nil {
		return
	}
	ctl := c.ui.Input.Controls()
	if c.sentOnce && ctl == c.lastSent {
		return
	}
	if err := c.net.SendInput(ctl); err != nil {
		c.log.Debug().Err(err).Msg("send input")
		return
	}
	c.lastSent = ctl
	c.sentOnce = true
}

// HandleEvent implements SimulationDriver
func (c *ClientDriver) HandleEvent(ev PeerEvent) {
	switch ev.Type {
	case EvState:
		res := c.rec.Apply(c.world, ev.State)
		if len(res.Inserted) > 0 {
			c.log.Debug().Strs("players", res.Inserted).Msg("players appeared")
		}
	case EvHostDisconnected:
		c.ui.Notify.Notify("host left the game")
		c.endLocally(EndHostLeft)
	case EvPlayerJoined:
		c.ui.Notify.Notify(ev.Joined.PlayerName + " joined")
	case EvPlayerLeft:
		// snapshots carry no end reason, so record it before the host's
		// final state arrives
		c.ui.Notify.Notify("a player left")
		c.endLocally(EndPeerLeft)
	case EvChat:
		c.ui.Notify.Notify(ev.Chat.PlayerName + ": " + ev.Chat.Message)
	case EvLeaderboard:
		c.log.Info().Interface("leaderboard", ev.Leaderboard).Msg("leaderboard updated")
	case EvDisconnected:
		c.ui.Notify.Notify("lost connection to relay")
		c.endLocally(EndHostLeft)
		c.net = nil
	}
}

// endLocally ends the mirrored match without waiting for the host, which
// is gone.
func (c *ClientDriver) endLocally(reason EndReason) {
	if c.world.Match.Ended {
		return
	}
	ms := &c.world.Match
	ms.Active = false
	ms.Ended = true
	ms.EndReason = reason
	c.ui.Presenter.ShowMatchEnd(*ms)
}
