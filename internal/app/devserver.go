package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/auth"
	"github.com/sharanperla/Greenleaf-client/internal/config"
	"github.com/sharanperla/Greenleaf-client/internal/devserver"
	"github.com/sharanperla/Greenleaf-client/internal/store"
	"github.com/sharanperla/Greenleaf-client/internal/store/sqlite"
)

// DevServer wires the local backend emulator.
type DevServer struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *devserver.Hub
	store           store.Store
	log             *zerolog.Logger
}

// NewDevServer constructs the emulator with provided configuration.
func NewDevServer(ctx context.Context, cfg config.DevServerConfig, logger *zerolog.Logger) (*DevServer, error) {
	if logger == nil {
		disabled := zerolog.Nop()
		logger = &disabled
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	if err := devserver.Seed(ctx, st); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("seed: %w", err)
	}
	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	jwtConfig := &auth.JWTConfig{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     "greenleaf-devserver",
		Audience:   "greenleaf",
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	hub := devserver.NewHub(logger)
	router := devserver.NewRouter(st, authService, hub, cfg, logger)

	return &DevServer{
		server:          devserver.NewServer(router, cfg),
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (d *DevServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.server.Addr)
	if err != nil {
		d.cleanup()
		return fmt.Errorf("listen %s: %w", d.server.Addr, err)
	}
	return d.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (d *DevServer) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go d.hub.Run(hubCtx)

	serverErr := make(chan error, 1)
	go func() {
		d.log.Info().Str("addr", ln.Addr().String()).Msg("devserver listening")
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		d.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), d.shutdownTimeout)
		defer cancel()

		d.log.Info().Msg("shutting down http server")
		// Hijacked sockets are not tracked by Shutdown; stopping the hub ends them.
		stopHub()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			d.cleanup()
			return err
		}

		d.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (d *DevServer) cleanup() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.log.Warn().Err(err).Msg("failed to close store")
		} else {
			d.log.Info().Msg("store closed")
		}
	}
}
