// Package cli holds the gametrace command tree: a tracker fed from stdin,
// a replayer for saved trace files, a synthetic load generator and the
// development collector.
package cli

import (
	"context"
	"os"

	"github.com/okian/gametrace/internal/config"
	"github.com/okian/gametrace/pkg/logger"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Verbose    bool

	// Config and Logger are set up on first use unless a caller sets them.
	Config *config.Config
	Logger logger.Logger
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "gametrace",
		Short:         "Record and deliver serious-game learning traces",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := opts.load(cmd.Context())
			return err
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (default $GAMETRACE_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "debug|info|warn|error, overrides log_level")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewCollectorCommand(opts))

	return cmd
}

// load initializes logging and reads the configuration once.
func (o *RootOptions) load(ctx context.Context) (*config.Config, error) {
	if o.Logger == nil {
		if err := logger.Init(); err != nil {
			return nil, err
		}
		o.Logger = logger.Get()
	}
	if o.Config != nil {
		return o.Config, nil
	}
	path := o.ConfigPath
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	cfg, err := config.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		o.Logger.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	o.Config = cfg
	return cfg, nil
}
