package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// formatView describes one registered format.
type formatView struct {
	Name       string   `json:"name"`
	Custom     bool     `json:"custom"`
	Extensions []string `json:"extensions"`
}

// NewFormatsCommand creates the formats command.
func NewFormatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List registered formats and their extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}

			reg := newRegistry()
			var views []formatView
			for _, k := range reg.Kinds() {
				views = append(views, formatView{Name: k.String(), Custom: k.IsCustom(), Extensions: reg.Extensions(k)})
			}

			return formatter.Success(views, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "FORMAT\tKIND\tEXTENSIONS")
				for _, v := range views {
					kind := "builtin"
					if v.Custom {
						kind = "custom"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Name, kind, strings.Join(v.Extensions, ", "))
				}
				tw.Flush()
			})
		},
	}
}
