package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/gametrace/internal/app"
	"github.com/okian/gametrace/internal/domain/codec"
	"github.com/okian/gametrace/internal/domain/trace"
	"github.com/okian/gametrace/pkg/logger"
	"github.com/spf13/cobra"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	InputFormat string
	ObjectBase  string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Re-send a saved CSV log, backup or xAPI file",
		Long: `Read traces from a CSV log or backup file, or from an xAPI statement
array, and trace them again through a fresh tracker. Replayed traces are
stamped with the current time.

Examples:
  gametrace replay data/backup.csv
  gametrace replay statements.json --input-format xapi --object-base https://host/games/demo/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "csv or xapi (default: from the file extension)")
	cmd.Flags().StringVar(&opts.ObjectBase, "object-base", "", "prefix stripped from xAPI object ids")

	return cmd
}

func runReplay(cmd *cobra.Command, opts *ReplayOptions, path string) error {
	ctx := cmd.Context()
	cfg, err := opts.load(ctx)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	events, err := decodeFile(data, path, opts.InputFormat, opts.ObjectBase)
	if err != nil {
		return err
	}

	log := opts.Logger.Named("replay")
	s, err := openSession(ctx, cfg, log)
	if err != nil {
		return err
	}

	rejected := 0
	for _, e := range events {
		if err := replayEvent(ctx, s.tracker, e); err != nil {
			log.Warn(ctx, "event rejected", logger.String("target", e.Target.ID), logger.Error(err))
			rejected++
		}
	}
	closeErr := s.close(ctx)

	fmt.Fprintf(cmd.OutOrStdout(), "replayed=%d rejected=%d\n", len(events)-rejected, rejected)
	return closeErr
}

func decodeFile(data []byte, path, format, objectBase string) ([]trace.Event, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".xapi":
			format = string(codec.FormatXAPI)
		default:
			format = string(codec.FormatCSV)
		}
	}
	f, err := codec.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	switch {
	case f.IsJSON():
		return codec.UnmarshalXAPI(data, objectBase)
	case f == codec.FormatCSV:
		return codec.UnmarshalCSVBatch(string(data))
	default:
		return nil, fmt.Errorf("%w: cannot replay %s", codec.ErrUnknownFormat, f)
	}
}

// replayEvent stages e's result and traces it.
func replayEvent(ctx context.Context, tr *app.Tracker, e trace.Event) error {
	r := e.Result
	if r.Success.IsSet() {
		if err := tr.SetSuccess(ctx, r.Success.Bool()); err != nil {
			return err
		}
	}
	if r.Completion.IsSet() {
		if err := tr.SetCompletion(ctx, r.Completion.Bool()); err != nil {
			return err
		}
	}
	if r.Response != "" {
		if err := tr.SetResponse(ctx, r.Response); err != nil {
			return err
		}
	}
	if r.HasScore() {
		if err := tr.SetScore(ctx, r.Score); err != nil {
			return err
		}
	}
	for k, v := range r.Extensions {
		if err := tr.SetVar(ctx, k, v); err != nil {
			return err
		}
	}
	return tr.Trace(ctx, e.Verb.Name, e.Target.Type, e.Target.ID)
}
