package cli

import (
	"fmt"
	"time"

	"github.com/okian/gametrace/internal/simulate"
	"github.com/spf13/cobra"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Players int
	Levels  int
	Actions int
	Pause   time.Duration
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}
	def := simulate.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate traces from concurrent synthetic players",
		Long: `Start a tracker and let several synthetic players play through levels
at the same time. The background flusher delivers while they play and the
queue is drained on exit.

Examples:
  gametrace simulate --players 16 --levels 5
  GAMETRACE_STORAGE_TYPE=local gametrace simulate --pause 100ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Players, "players", def.Players, "concurrent players")
	cmd.Flags().IntVar(&opts.Levels, "levels", def.Levels, "levels per player")
	cmd.Flags().IntVar(&opts.Actions, "actions", def.ActionsPerLevel, "actions per level")
	cmd.Flags().DurationVar(&opts.Pause, "pause", 0, "delay between levels")

	return cmd
}

func runSimulate(cmd *cobra.Command, opts *SimulateOptions) error {
	ctx := cmd.Context()
	cfg, err := opts.load(ctx)
	if err != nil {
		return err
	}

	log := opts.Logger.Named("simulate")
	s, err := openSession(ctx, cfg, log)
	if err != nil {
		return err
	}

	stats, runErr := simulate.Run(ctx, s.tracker, simulate.Config{
		Players:         opts.Players,
		Levels:          opts.Levels,
		ActionsPerLevel: opts.Actions,
		Pause:           opts.Pause,
		Verbose:         opts.Verbose,
		Logger:          log,
	})
	closeErr := s.close(ctx)

	fmt.Fprintf(cmd.OutOrStdout(), "attempted=%d accepted=%d rejected=%d duration=%s\n",
		stats.TracesAttempted, stats.TracesAccepted, stats.TracesRejected, stats.Duration)
	if runErr != nil {
		return runErr
	}
	return closeErr
}
