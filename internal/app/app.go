package app

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/core"
	"github.com/vovakirdan/roomrelay/internal/janitor"
	"github.com/vovakirdan/roomrelay/internal/ratelimit"
	"github.com/vovakirdan/roomrelay/internal/stream"
	transporthttp "github.com/vovakirdan/roomrelay/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	relay           *stream.Relay
	janitor         *janitor.Janitor
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	registry := core.NewRegistry(
		core.WithHistoryLimit(cfg.Rooms.HistoryLimit),
		core.WithEmptyGrace(cfg.Rooms.EmptyGrace),
	)
	limiter := ratelimit.New(cfg.RateLimit.Window, cfg.RateLimit.Max, nil)

	hub := core.NewHub(registry, limiter, logger)
	relay := stream.NewRelay(logger, stream.WithMaxChunk(int(cfg.Stream.MaxChunkBytes)))
	sweeper := janitor.New(registry, limiter, janitor.Config{
		Interval:        cfg.Rooms.SweepInterval,
		EmptyGrace:      cfg.Rooms.EmptyGrace,
		InactiveTimeout: cfg.Rooms.InactiveTimeout,
	}, logger)

	return &App{
		server:          transporthttp.NewServer(hub, relay, cfg, logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		relay:           relay,
		janitor:         sweeper,
		log:             logger,
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	// Hijacked websocket connections outlive Shutdown; tie them to ctx instead.
	a.server.BaseContext = func(net.Listener) context.Context { return ctx }

	go a.hub.Run(ctx)
	go a.janitor.Run(ctx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
