package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/api"
	"github.com/sharanperla/Greenleaf-client/internal/auth"
	"github.com/sharanperla/Greenleaf-client/internal/chat"
	"github.com/sharanperla/Greenleaf-client/internal/config"
	"github.com/sharanperla/Greenleaf-client/internal/media"
	"github.com/sharanperla/Greenleaf-client/internal/realtime"
	"github.com/sharanperla/Greenleaf-client/internal/service/diseases"
	"github.com/sharanperla/Greenleaf-client/internal/service/predict"
	"github.com/sharanperla/Greenleaf-client/internal/store"
	"github.com/sharanperla/Greenleaf-client/internal/store/sqlite"
)

// App wires the client: credentials, REST and realtime transports, and the
// chat session components built on them.
type App struct {
	Auth       *auth.Manager
	API        *api.Client
	Dialer     *realtime.Dialer
	Session    *chat.Controller
	Rooms      *chat.Directory
	Dispatcher *chat.Dispatcher
	Media      *media.Library
	Diseases   *diseases.Catalog
	Predict    *predict.Service

	store store.Store
	log   *zerolog.Logger
}

// New constructs the client from configuration and restores any saved session.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if logger == nil {
		disabled := zerolog.Nop()
		logger = &disabled
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Debug().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	a, err := newApp(ctx, cfg, st, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

func newApp(ctx context.Context, cfg *config.Config, st store.Store, logger *zerolog.Logger) (*App, error) {
	opts := []api.Option{api.WithTimeout(cfg.RequestTimeout), api.WithLogger(logger)}

	authClient, err := api.NewAuthClient(cfg.APIBaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("init auth client: %w", err)
	}
	manager := auth.NewManager(st, authClient, logger)
	if err := manager.Load(ctx); err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	client, err := api.NewClient(cfg.APIBaseURL, manager, opts...)
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}

	dialer, err := realtime.NewDialer(realtime.Options{
		BaseURL:         cfg.RealtimeBaseURL(),
		Tokens:          manager,
		ConnectTimeout:  cfg.ConnectTimeout,
		InitialInterval: cfg.ReconnectInitialInterval,
		MaxInterval:     cfg.ReconnectMaxInterval,
		MaxRetries:      cfg.ReconnectMaxRetries,
		Resolve:         client.ResolveURL,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init realtime dialer: %w", err)
	}

	session := chat.NewController(chat.ControllerOptions{
		History:        client,
		Subscribe:      chat.RealtimeSubscriber(dialer),
		HistoryTimeout: cfg.HistoryTimeout,
		Logger:         logger,
	})
	library := media.NewLibrary(cfg.MediaAccess, logger)

	return &App{
		Auth:       manager,
		API:        client,
		Dialer:     dialer,
		Session:    session,
		Rooms:      chat.NewDirectory(client, logger),
		Dispatcher: chat.NewDispatcher(client, library, session, logger),
		Media:      library,
		Diseases:   diseases.New(client, logger),
		Predict:    predict.New(client, library, logger),
		store:      st,
		log:        logger,
	}, nil
}

// Close releases the local database.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
		return err
	}
	return nil
}
