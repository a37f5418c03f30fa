package main

import (
	"github.com/spf13/cobra"

	"github.com/sharanperla/Greenleaf-client/internal/app"
)

func newDevServerCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local emulation of the Greenleaf backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg.DevServer
			if addr != "" {
				cfg.Addr = addr
			}

			srv, err := app.NewDevServer(cmd.Context(), cfg, opts.logger)
			if err != nil {
				return err
			}
			opts.logger.Info().Str("addr", cfg.Addr).Msg("starting greenleaf devserver")
			if err := srv.Run(cmd.Context()); err != nil {
				return err
			}
			opts.logger.Info().Msg("devserver stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides devserver.addr)")
	return cmd
}
