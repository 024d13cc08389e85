package commands

import (
	"context"
	"os"

	"go-restaurant-pos/app"
	"go-restaurant-pos/config"
	"go-restaurant-pos/logging"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile  string
	LogLevel string
	Backend  string
}

// NewRootCommand creates the root command for the POS service.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "pos",
		Short:         "Restaurant POS back office",
		Long:          "Table billing, order entry, kitchen queue and dashboard service for a restaurant POS.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "override storage backend (memory|mongo|postgres)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

func (o *RootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.EnvFile)
	if err != nil {
		return nil, err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (o *RootOptions) open(ctx context.Context, cfg *config.Config) (*app.App, error) {
	log := logging.New(os.Stderr, cfg.LogLevel)
	return app.Open(ctx, cfg, log)
}
