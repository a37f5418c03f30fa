package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sharanperla/Greenleaf-client/internal/app"
	"github.com/sharanperla/Greenleaf-client/internal/config"
	"github.com/sharanperla/Greenleaf-client/internal/log"
)

type rootOptions struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "greenleaf",
		Short:         "Greenleaf community chat and leaf diagnosis client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default ./greenleaf.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newRoomsCmd(opts),
		newChatCmd(opts),
		newDiseasesCmd(opts),
		newPredictCmd(opts),
		newDevServerCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() error {
	level := o.logLevel
	if level == "" {
		level = "info"
	}
	bootstrap := log.New(level)

	cfg, path, err := config.Load(bootstrap, o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	o.cfg = cfg
	o.logger = log.New(cfg.LogLevel)
	o.logger.Debug().Str("config", path).Str("api", cfg.APIBaseURL).Msg("configuration loaded")
	return nil
}

// withApp opens the client, runs fn and closes it again.
func (o *rootOptions) withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := app.New(ctx, &o.cfg, o.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
