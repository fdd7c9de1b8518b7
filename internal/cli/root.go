package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"blog-sync/internal/config"
	"blog-sync/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string

	// LoadConfig is swapped in tests.
	LoadConfig func() (config.Config, error)
}

// NewRootCommand creates the blogsync command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{LoadConfig: config.LoadConfig}

	cmd := &cobra.Command{
		Use:           "blogsync",
		Short:         "Blog view counters and GitHub Discussion sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewInstallationCommand(opts))

	return cmd
}

func (o *RootOptions) load() (config.Config, *zap.Logger, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return config.Config{}, nil, err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
