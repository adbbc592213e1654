package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ahems/SportsLeague/internal/app"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "sportsleague",
		Short:         "SportsLeague catalog, cart and order API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML or JSON config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "override the log format (json, text)")

	cmd.AddCommand(newServeCommand(opts), newCheckTokenCommand(opts))
	return cmd
}

// load reads configuration and applies the logging flag overrides.
func (o *rootOptions) load(stderr io.Writer) (app.Config, *slog.Logger, error) {
	cfg, err := app.LoadConfig(o.configPath, nil)
	if err != nil {
		return app.Config{}, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if err := cfg.Log.Validate(); err != nil {
		return app.Config{}, nil, err
	}
	logger, err := app.NewLogger(cfg.Log, stderr)
	if err != nil {
		return app.Config{}, nil, err
	}
	return cfg, logger, nil
}
