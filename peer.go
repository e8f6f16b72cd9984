package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	requestTimeout = 10 * time.Second
	frameLogEvery  = time.Second
)

// RunPeer runs a headless peer until ctx is done or the relay drops. With
// peer.ai set it plays one offline match against the bot and returns when
// that match ends. Otherwise it hosts a new room, or joins peer.room.
func RunPeer(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	console := NewConsole(logger, frameLogEvery)
	loop := NewLoop()

	if cfg.Peer.AI {
		return runOffline(ctx, cfg, loop, console, logger)
	}

	dialCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	rc, err := DialRelay(dialCtx, cfg.Peer.RelayURL)
	if err != nil {
		console.Notify("could not reach the relay")
		return err
	}
	defer rc.Close()

	var driver SimulationDriver
	if cfg.Peer.Room == "" {
		driver, err = hostRoom(dialCtx, cfg, rc, loop, console, logger)
	} else {
		driver, err = joinRoom(dialCtx, cfg, rc, console, logger)
	}
	if err != nil {
		return err
	}

	loop.Arm(driver.Activities()...)
	go pumpEvents(rc.Events(), loop, driver)
	loop.Run(ctx)
	return nil
}

func runOffline(ctx context.Context, cfg Config, loop *Loop, console *Console, logger zerolog.Logger) error {
	pilot := &Autopilot{PlayerID: HostPlayerID, Physics: cfg.Physics, AI: cfg.AI}
	ui := ConsoleUI(console, pilot)
	ui.Presenter = MatchPresenterFunc(func(ms MatchState) {
		console.ShowMatchEnd(ms)
		loop.Stop()
	})
	host := NewHostDriver(cfg, cfg.Peer.Name, nil, loop, ui, logger)
	pilot.World = host.World()
	host.AddBot()
	loop.Post(func() { host.StartMatch() })
	loop.Run(ctx)
	return nil
}

func hostRoom(ctx context.Context, cfg Config, rc *RelayClient, loop *Loop, console *Console, logger zerolog.Logger) (*HostDriver, error) {
	reply, err := rc.CreateRoom(ctx, CreateRoomMsg{
		PlayerName: cfg.Peer.Name,
		Duration:   cfg.Peer.Duration,
		Password:   cfg.Peer.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	logger.Info().Str("room", reply.RoomCode).Msg("room created, waiting for a player")

	pilot := &Autopilot{PlayerID: HostPlayerID, Physics: cfg.Physics, AI: cfg.AI}
	host := NewHostDriver(cfg, cfg.Peer.Name, rc, loop, ConsoleUI(console, pilot), logger.With().Str("room", reply.RoomCode).Logger())
	pilot.World = host.World()
	return host, nil
}

func joinRoom(ctx context.Context, cfg Config, rc *RelayClient, console *Console, logger zerolog.Logger) (*ClientDriver, error) {
	reply, err := rc.JoinRoom(ctx, JoinRoomMsg{
		RoomCode:   cfg.Peer.Room,
		PlayerName: cfg.Peer.Name,
		KitColor:   cfg.Peer.KitColor,
		Password:   cfg.Peer.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("join room %s: %w", cfg.Peer.Room, err)
	}
	role := RoleClient
	if reply.Role == RoleNameSpectator {
		role = RoleSpectator
	}
	logger.Info().
		Str("room", NormalizeCode(cfg.Peer.Room)).
		Str("role", role.String()).
		Int("duration", reply.Duration).
		Msg("joined room")

	pilot := &Autopilot{PlayerID: GuestPlayerID, Physics: cfg.Physics, AI: cfg.AI}
	var input InputSource
	if role == RoleClient {
		input = pilot
	}
	client, err := NewClientDriver(cfg, role, rc, ConsoleUI(console, input), logger)
	if err != nil {
		return nil, err
	}
	pilot.World = client.World()
	return client, nil
}

// pumpEvents hands relay events to the driver on the loop goroutine. The
// loop stops once the relay connection is gone.
func pumpEvents(events <-chan PeerEvent, loop *Loop, driver SimulationDriver) {
	for ev := range events {
		ev := ev
		if !loop.Post(func() { driver.HandleEvent(ev) }) {
			return
		}
		if ev.Type == EvDisconnected {
			loop.Post(loop.Stop)
			return
		}
	}
}
