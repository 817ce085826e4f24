package app

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/drawsync/internal/config"
	"github.com/vovakirdan/drawsync/internal/core"
	"github.com/vovakirdan/drawsync/internal/discovery"
	"github.com/vovakirdan/drawsync/internal/log"
	transporthttp "github.com/vovakirdan/drawsync/internal/transport/http"
)

// App wires together core, transport and discovery.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	cfg             config.Config
	log             *zerolog.Logger
	advertiser      *discovery.Advertiser
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	hub := core.NewHub(
		core.WithGracePeriod(cfg.RoomGracePeriod),
		core.WithLogger(log.Component(logger, "hub")),
	)
	server := transporthttp.NewServer(hub, cfg, log.Component(logger, "http"))

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		cfg:             cfg,
		log:             logger,
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	a.log.Info().
		Str("addr", a.cfg.Addr).
		Str("client_origin", a.cfg.ClientOrigin).
		Dur("room_grace_period", a.cfg.RoomGracePeriod).
		Msg("drawing server listening")
	a.advertise()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		a.cleanup()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}

func (a *App) advertise() {
	if !a.cfg.MDNSEnabled {
		return
	}
	port, err := discovery.PortOf(a.cfg.Addr)
	if err != nil {
		a.log.Warn().Err(err).Str("addr", a.cfg.Addr).Msg("mdns disabled: no fixed port")
		return
	}
	adv, err := discovery.Advertise(a.cfg.MDNSInstance, port)
	if err != nil {
		a.log.Warn().Err(err).Msg("mdns advertise failed")
		return
	}
	a.advertiser = adv
	a.log.Info().Int("port", port).Str("service", discovery.ServiceType).Msg("advertising on local network")
}

// cleanup withdraws the mDNS record.
func (a *App) cleanup() {
	if a.advertiser == nil {
		return
	}
	if err := a.advertiser.Shutdown(); err != nil {
		a.log.Warn().Err(err).Msg("failed to stop mdns")
	}
	a.advertiser = nil
}
