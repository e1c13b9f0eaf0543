package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/multiio/internal/config"
	"github.com/roach88/multiio/internal/pipeline"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Inputs   int                 `json:"inputs"`
	Outputs  int                 `json:"outputs"`
	Policy   string              `json:"policy"`
	Problems []map[string]string `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a pipeline config without running it",
		Long: `Validate a YAML, JSON or CUE pipeline config without reading or
writing anything.

Every problem is reported at once: empty input or output lists, duplicate
ids, unknown endpoint kinds, and inputs or outputs whose format cannot be
resolved.

Exit codes: 0 when valid, 1 when the config has problems, 2 when it
cannot be loaded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}

	cfg, err := config.Load(path)
	if err != nil {
		return formatter.Failure(ExitCommandError, "failed to load config", err, nil)
	}

	result := ValidationResult{
		Valid:   true,
		Inputs:  len(cfg.Inputs),
		Outputs: len(cfg.Outputs),
		Policy:  cfg.Policy().String(),
	}

	err = pipeline.FromConfig(cfg, newRegistry()).Validate()
	var ce *pipeline.ConfigError
	switch {
	case err == nil:
	case errors.As(err, &ce):
		result.Valid = false
		result.Problems, _ = problemDetails(ce).([]map[string]string)
	default:
		return formatter.Failure(ExitCommandError, "cannot validate pipeline", err, nil)
	}

	if !result.Valid {
		if formatter.JSON() {
			return formatter.Failure(ExitFailure, fmt.Sprintf("config has %d problem(s)", len(ce.Problems)), nil, result)
		}
		w := formatter.Writer
		fmt.Fprintf(w, "✗ %s has %d problem(s)\n\n", path, len(ce.Problems))
		for _, p := range ce.Problems {
			fmt.Fprintf(w, "  %s\n", p.Error())
		}
		return NewExitError(ExitFailure, fmt.Sprintf("config has %d problem(s)", len(ce.Problems)))
	}

	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s is valid (%d inputs, %d outputs, %s)\n", path, result.Inputs, result.Outputs, result.Policy)
	})
}
