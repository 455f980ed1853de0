package app

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wsrelay/internal/config"
	"github.com/vovakirdan/wsrelay/internal/core"
	"github.com/vovakirdan/wsrelay/internal/metrics"
	transporthttp "github.com/vovakirdan/wsrelay/internal/transport/http"
)

const shutdownReason = "server shutting down"

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	relay           *core.Relay
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	relayLog := logger.With().Str("component", "relay").Logger()
	opts := []core.Option{core.WithLogger(&relayLog)}

	var rec *metrics.Recorder
	if cfg.MetricsEnabled {
		rec = metrics.New()
		opts = append(opts, core.WithObserver(rec))
	}

	relay := core.NewRelay(opts...)
	server := transporthttp.NewServer(relay, rec, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		relay:           relay,
		log:             logger,
	}
}

// Relay returns the relay shared by all connections.
func (a *App) Relay() *core.Relay {
	return a.relay
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.relay.Shutdown(shutdownReason)
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		err := a.server.Shutdown(shutdownCtx)
		// Hijacked WebSocket connections are not tracked by the server.
		a.relay.Shutdown(shutdownReason)
		if err != nil {
			return err
		}
		return <-serverErr
	}
}
