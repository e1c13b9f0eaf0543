package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/multiio/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Limit   int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history --journal <db>",
		Short: "List journaled pipeline runs",
		Long: `List runs recorded with "multiio run --journal", most recent first,
with every failed input and output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (required)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "max runs to list (0 = all)")
	_ = cmd.MarkFlagRequired("journal")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}

	j, err := journal.Open(opts.Journal)
	if err != nil {
		return formatter.Failure(ExitCommandError, "failed to open journal", err, nil)
	}
	defer j.Close()

	runs, err := j.List(commandContext(cmd), opts.Limit)
	if err != nil {
		return formatter.Failure(ExitCommandError, "failed to list runs", err, nil)
	}

	views := make([]runView, len(runs))
	for i, r := range runs {
		views[i] = historyView(r)
	}
	return formatter.Success(views, func(w io.Writer) {
		if len(runs) == 0 {
			fmt.Fprintln(w, "no runs recorded")
			return
		}
		for _, r := range runs {
			renderHistoryRun(w, r)
		}
	})
}

func historyView(r journal.Run) runView {
	v := runView{
		Seq:      r.Seq,
		RunID:    r.ID,
		Status:   r.Status,
		Policy:   r.Policy,
		Async:    r.Async,
		Duration: r.Finished.Sub(r.Started).String(),
	}
	for _, it := range r.Items {
		v.Items = append(v.Items, outcomeView{
			Direction: it.Direction,
			ID:        it.ID,
			Position:  it.Position,
			Format:    it.Format,
			Status:    it.Status,
			Stage:     it.Stage,
			Error:     it.Error,
		})
	}
	return v
}

func renderHistoryRun(w io.Writer, r journal.Run) {
	fmt.Fprintf(w, "#%d %s %s %s %s\n", r.Seq, r.ID, r.Status, r.Policy, r.Started.Format("2006-01-02T15:04:05Z07:00"))
	if r.Config != "" {
		fmt.Fprintf(w, "    config: %s\n", r.Config)
	}
	for _, it := range r.Items {
		if it.Status != "failed" {
			continue
		}
		fmt.Fprintf(w, "    %s %q (#%d): %s: %s\n", it.Direction, it.ID, it.Position, it.Stage, it.Error)
	}
}
