package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/multiio/internal/config"
	"github.com/roach88/multiio/internal/pipeline"
	"github.com/roach88/multiio/internal/value"
)

// RecordsOptions holds flags for the records command.
type RecordsOptions struct {
	*RootOptions
	Policy string
}

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "records <mode> <input>...",
		Short: "Stream records as JSON lines",
		Long: `Decode inputs record by record and print each record as one line of
JSON on stdout.

<mode> is "auto" (format per input, from its extension) or a format name
applied to every input: json (array or JSON Lines), csv (one record per
row), yaml (one record per document), text (one record per line), or any
other registered format.

With --policy accumulate a bad record is reported on stderr and the
stream continues; the exit code is 1 if any record failed.

Example:
  multiio records csv people.csv
  tail -f events.jsonl | multiio records json -`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Policy, "policy", string(config.FastFail), "error policy (fast_fail|accumulate)")

	return cmd
}

func runRecords(opts *RecordsOptions, mode string, inputs []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.ErrOrStderr(), ErrWriter: cmd.ErrOrStderr()}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	policy, err := config.ParseErrorPolicy(opts.Policy)
	if err != nil {
		return formatter.Failure(ExitCommandError, "invalid --policy", err, nil)
	}

	explicit := strings.ToLower(mode)
	if explicit == "auto" {
		explicit = ""
	}

	b := pipeline.NewBuilder(newRegistry()).
		WithPolicy(policy).
		WithLogger(logger).
		WithStdio(cmd.InOrStdin(), nil, nil).
		// Records are printed directly; the output only satisfies validation.
		AddOutput(config.OutputSpec{ID: "records", Kind: config.KindStdout, Format: "json"})
	for _, raw := range inputs {
		in, err := config.ParseInputArg(raw)
		if err != nil {
			return formatter.Failure(ExitCommandError, "invalid input", err, nil)
		}
		in.Format = explicit
		b.AddInput(in)
	}
	eng, err := b.Build()
	if err != nil {
		return formatter.Failure(ExitCommandError, "invalid records invocation", err, problemDetails(err))
	}

	ctx := commandContext(cmd)
	stream := eng.ReadRecordsAuto(ctx)
	defer stream.Close()

	out := cmd.OutOrStdout()
	var failed, total int
	for {
		item, ok := stream.Next(ctx)
		if !ok {
			break
		}
		if item.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "record error: %v\n", item.RecordError())
			continue
		}
		line, err := value.MarshalJSON(item.Value)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "record error: %s: record %d: %v\n", item.SourceID, item.Index, err)
			if policy.IsFastFail() {
				break
			}
			continue
		}
		total++
		if _, err := fmt.Fprintf(out, "%s\n", line); err != nil {
			return WrapExitError(ExitFailure, "failed to write record", err)
		}
	}

	logger.Debug("records streamed", "records", total, "failed", failed)
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d record(s) failed", failed))
	}
	return nil
}
