package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/multiio/internal/config"
	"github.com/roach88/multiio/internal/pipeline"
	"github.com/roach88/multiio/internal/value"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	Output    string
	FormatIn  string
	FormatOut string
	Policy    string
	Async     bool
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <input>... -o <output>",
		Short: "Convert inputs into one output",
		Long: `Read one or more inputs and write their records to a single output.

Formats are inferred from file extensions unless --format-in or
--format-out is given. Inputs are "-" (stdin), "=<text>" (inline),
"@<path>" or a plain path; the output is "-" (stdout), "stderr" or a path.

Array inputs are unwrapped into their records and the records of every
input are concatenated. One record is written as itself; several are
written as an array.

Example:
  multiio convert config.json -o config.yaml
  multiio convert a.csv b.csv -o all.json
  cat data.yaml | multiio convert - --format-in yaml -o - --format-out toml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output path, - for stdout (required)")
	cmd.Flags().StringVar(&opts.FormatIn, "format-in", "", "format of every input")
	cmd.Flags().StringVar(&opts.FormatOut, "format-out", "", "format of the output")
	cmd.Flags().StringVar(&opts.Policy, "policy", string(config.FastFail), "error policy (fast_fail|accumulate)")
	cmd.Flags().BoolVar(&opts.Async, "async", false, "read inputs concurrently")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runConvert(opts *ConvertOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.ErrOrStderr(), ErrWriter: cmd.ErrOrStderr()}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	policy, err := config.ParseErrorPolicy(opts.Policy)
	if err != nil {
		return formatter.Failure(ExitCommandError, "invalid --policy", err, nil)
	}

	b := pipeline.NewBuilder(newRegistry()).
		WithPolicy(policy).
		WithLogger(logger).
		WithStdio(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	for _, raw := range args {
		in, err := config.ParseInputArg(raw)
		if err != nil {
			return formatter.Failure(ExitCommandError, "invalid input", err, nil)
		}
		in.Format = opts.FormatIn
		b.AddInput(in)
	}
	out, err := config.ParseOutputArg(opts.Output)
	if err != nil {
		return formatter.Failure(ExitCommandError, "invalid output", err, nil)
	}
	out.Format = opts.FormatOut
	b.AddOutput(out)

	build := b.Build
	if opts.Async {
		build = b.BuildAsync
	}
	eng, err := build()
	if err != nil {
		return formatter.Failure(ExitCommandError, "invalid conversion", err, problemDetails(err))
	}

	ctx := commandContext(cmd)
	vals, err := eng.ReadAll(ctx)
	if err != nil {
		return failItems(formatter, "conversion failed", err)
	}

	var records []value.Value
	for _, v := range vals {
		if arr, ok := v.(value.Array); ok {
			records = append(records, arr...)
		} else {
			records = append(records, v)
		}
	}
	if len(records) == 1 {
		err = eng.WriteValue(ctx, records[0])
	} else {
		err = eng.WriteValues(ctx, records)
	}
	if err != nil {
		return failItems(formatter, "conversion failed", err)
	}
	logger.Debug("conversion finished", "inputs", len(args), "records", len(records))
	return nil
}

// failItems renders item failures and returns an ExitFailure.
func failItems(f *OutputFormatter, message string, err error) error {
	if f.JSON() {
		return f.Failure(ExitFailure, message, err, nil)
	}
	fmt.Fprintf(f.errWriter(), "Error: %s:\n", message)
	renderFailures(f.errWriter(), err)
	return WrapExitError(ExitFailure, message, err)
}
