package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/gametrace/internal/app"
	"github.com/okian/gametrace/internal/domain/codec"
	"github.com/okian/gametrace/internal/domain/trace"
	"github.com/okian/gametrace/pkg/logger"
	"github.com/spf13/cobra"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Input string
}

// RunResult summarizes a run.
type RunResult struct {
	Lines    int
	Traced   int
	Rejected int
	Flushes  int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Trace lines read from stdin or a file",
		Long: `Start a tracker and trace one line at a time.

Each line is verb,target_type,target_id followed by optional key,value
pairs that are staged on the trace. Commas inside values are written as \,.
A line reading "flush" flushes immediately; blank lines and lines starting
with # are ignored. The queue is drained on exit.

Examples:
  echo "accessed,screen,menu" | gametrace run
  gametrace run --input session.txt --config tracker.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "read lines from this file instead of stdin")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	ctx := cmd.Context()
	cfg, err := opts.load(ctx)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if opts.Input != "" {
		f, err := os.Open(opts.Input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	log := opts.Logger.Named("run")
	s, err := openSession(ctx, cfg, log)
	if err != nil {
		return err
	}

	res := feed(ctx, s.tracker, in, log)
	closeErr := s.close(ctx)

	fmt.Fprintf(cmd.OutOrStdout(), "lines=%d traced=%d rejected=%d flushes=%d\n",
		res.Lines, res.Traced, res.Rejected, res.Flushes)
	return closeErr
}

func feed(ctx context.Context, tr *app.Tracker, in io.Reader, log logger.Logger) RunResult {
	var res RunResult
	sc := bufio.NewScanner(in)
	for sc.Scan() && ctx.Err() == nil {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		res.Lines++
		if line == "flush" {
			if err := tr.Flush(ctx); err != nil {
				log.Warn(ctx, "flush failed", logger.Error(err))
			}
			res.Flushes++
			continue
		}
		if err := traceLine(ctx, tr, line); err != nil {
			log.Warn(ctx, "line rejected", logger.Int("line", res.Lines), logger.Error(err))
			res.Rejected++
			continue
		}
		res.Traced++
	}
	if err := sc.Err(); err != nil {
		log.Error(ctx, "read input failed", logger.Error(err))
	}
	return res
}

// traceLine stages the key/value pairs of line and traces its first three
// fields.
func traceLine(ctx context.Context, tr *app.Tracker, line string) error {
	fields := codec.SplitCSV(line)
	if len(fields) < 3 {
		return trace.NewKind("cli.run", trace.ErrTrace, "expected verb,target_type,target_id")
	}
	for i := 3; i+1 < len(fields); i += 2 {
		v := trace.ParseValue(fields[i+1])
		if fields[i] == trace.KeyResponse {
			v = trace.StringValue(fields[i+1])
		}
		if err := tr.SetVar(ctx, fields[i], v); err != nil {
			return err
		}
	}
	return tr.Trace(ctx, fields[0], fields[1], fields[2])
}
