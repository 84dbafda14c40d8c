package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/crackersam/mediasoup-raw/internal/adapters/http"
	signalws "github.com/crackersam/mediasoup-raw/internal/adapters/signal"
	"github.com/crackersam/mediasoup-raw/internal/app"
	"github.com/crackersam/mediasoup-raw/internal/config"
	"github.com/crackersam/mediasoup-raw/internal/core"
	"github.com/crackersam/mediasoup-raw/internal/media/localengine"
	"github.com/crackersam/mediasoup-raw/internal/sfu"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// The local engine stands in for the media runtime; swap in a real
	// engine adapter here for deployments that forward packets.
	engine := localengine.New()
	engine.SetPortRange(cfg.RtcMinPort, cfg.RtcMaxPort)
	pool, err := sfu.NewPool(engine, cfg.Workers)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to boot worker pool")
	}
	defer pool.Close()

	orch := &app.Orchestrator{
		Registry: app.NewRegistry(),
		Cap:      cfg.ForwardingCap,
		Transport: core.TransportOptions{
			InitialOutgoingBitrate: cfg.InitialOutgoingBitrate,
			MaxIncomingBitrate:     cfg.MaxIncomingBitrate,
		},
	}
	orch.Rooms = app.NewRoomManager(pool, cfg.SpeakerPollInterval, orch.OnDominantSpeaker)

	ctl := signalws.NewController(orch)
	ctl.ReadLimit = cfg.ReadLimit
	ctl.PingPeriod = cfg.PingPeriod
	orch.Push = ctl

	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Int("workers", pool.Size()).Msg("conference server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
