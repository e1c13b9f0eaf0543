package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/multiio/internal/config"
	"github.com/roach88/multiio/internal/engine"
	"github.com/roach88/multiio/internal/journal"
	"github.com/roach88/multiio/internal/pipeline"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Async       bool
	Concurrency int
	Journal     string

	// IDs overrides the journal run id generator (for testing).
	// If nil, runs get UUIDv7 ids.
	IDs journal.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Run a pipeline config",
		Long: `Run the pipeline described by a YAML, JSON or CUE config file.

Every input is read and decoded, then written to every output following
the topology rule: N inputs to N outputs pair positionally, otherwise each
output receives all input records concatenated in declaration order.

Exit codes: 0 on success, 1 when an input or output failed, 2 when the
config is invalid. The failure report goes to stderr.

Example:
  multiio run pipeline.yaml
  multiio run --async --journal runs.db pipeline.cue`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Async, "async", false, "overlap independent inputs and outputs")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "max items in flight with --async (0 = unbounded)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the run in this SQLite journal")

	return cmd
}

func runPipeline(opts *RunOptions, path string, cmd *cobra.Command) error {
	// Outputs may target stdout, so every report goes to stderr.
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.ErrOrStderr(), ErrWriter: cmd.ErrOrStderr()}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := config.Load(path)
	if err != nil {
		return formatter.Failure(ExitCommandError, "failed to load config", err, nil)
	}
	logger.Debug("config loaded", "path", path, "config", cfg.String())

	b := pipeline.FromConfig(cfg, newRegistry()).
		WithLogger(logger).
		WithStdio(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()).
		WithEngineOptions(engine.WithConcurrency(opts.Concurrency))

	var j *journal.Journal
	if opts.Journal != "" {
		j, err = openJournal(opts.Journal, opts.IDs)
		if err != nil {
			return formatter.Failure(ExitCommandError, "failed to open journal", err, nil)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		seq, err := j.LastSeq(commandContext(cmd))
		if err != nil {
			return formatter.Failure(ExitCommandError, "failed to read journal", err, nil)
		}
		b.WithEngineOptions(engine.WithClock(engine.NewClockAt(seq)))
	}

	build := b.Build
	if opts.Async {
		build = b.BuildAsync
	}
	eng, err := build()
	if err != nil {
		return formatter.Failure(ExitCommandError, "cannot build pipeline", err, problemDetails(err))
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := eng.Run(ctx)

	var runID string
	if j != nil {
		runID, err = j.Record(context.WithoutCancel(ctx), journal.FromReport(path, report))
		if err != nil {
			return formatter.Failure(ExitCommandError, "failed to record run", err, nil)
		}
		logger.Debug("run recorded", "run_id", runID, "seq", report.Seq)
	}

	if runErr != nil {
		if formatter.JSON() {
			return formatter.Failure(ExitFailure, "pipeline failed", nil, newRunView(report, runID))
		}
		renderReport(formatter.ErrWriter, report)
		return NewExitError(ExitFailure, "pipeline failed")
	}

	if formatter.JSON() {
		return formatter.Success(newRunView(report, runID), nil)
	}
	return nil
}

func openJournal(path string, ids journal.IDGenerator) (*journal.Journal, error) {
	var opts []journal.Option
	if ids != nil {
		opts = append(opts, journal.WithIDGenerator(ids))
	}
	return journal.Open(path, opts...)
}

// commandContext returns the command's context, or Background when the
// command runs outside ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
