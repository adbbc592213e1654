package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ahems/SportsLeague/internal/app"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP functions until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}

			a, err := app.New(cfg, version, logger)
			if err != nil {
				logger.Error("failed to build service", "error", err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := a.Run(ctx); err != nil {
				logger.Error("service stopped with an error", "error", err)
				return err
			}
			logger.Info("service stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "override the listen address")
	return cmd
}
