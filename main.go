package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	fs := NewFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	cfg, err := LoadConfig(fs)
	if err != nil {
		SetupLogger(LogConfig{Level: "info"}, os.Stderr)
		log.Fatal().Err(err).Msg("load config")
	}
	logger := SetupLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cfg.Mode {
	case "peer":
		if err := RunPeer(ctx, cfg, logger); err != nil {
			logger.Fatal().Err(err).Msg("peer failed")
		}
	default:
		if err := runRelay(ctx, cfg.Relay, logger); err != nil {
			logger.Fatal().Err(err).Msg("relay failed")
		}
	}
}

func runRelay(ctx context.Context, cfg RelayConfig, logger zerolog.Logger) error {
	var db *DB
	if cfg.DBPath != "" {
		var err error
		db, err = OpenDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
	} else {
		logger.Warn().Msg("no database configured, leaderboard is not persisted")
	}

	hub := NewHub(cfg, db)
	hubCtx, cancelHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		hub.Run(hubCtx)
		close(hubDone)
	}()

	server := &http.Server{Addr: cfg.Addr, Handler: SetupRoutes(hub)}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("db", cfg.DBPath).Msg("relay starting")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		cancelHub()
		<-hubDone
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// hijacked websocket connections are not tracked by Shutdown
	if err := server.Shutdown(shutdownCtx); err != nil {
		server.Close()
	}
	cancelHub()
	<-hubDone
	return nil
}
