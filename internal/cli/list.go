package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ralt/releasetap/internal/descriptor"
	"github.com/ralt/releasetap/internal/models"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd(opts *GlobalOptions) *cobra.Command {
	var ic models.InstallConfig

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every descriptor of a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.config.ApplyInstall(&ic, cmd.Flags())

			table, err := loadTable(ic.TablePath, ic.KeyringPath)
			if err != nil {
				return err
			}

			return printTable(cmd.OutOrStdout(), table)
		},
	}

	addTableFlags(cmd, &ic)

	return cmd
}

func printTable(out io.Writer, table *descriptor.Table) error {
	latest := table.Latest()

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tPLATFORM\tSHA256\tURL")
	for _, d := range table.Descriptors() {
		version := d.Version
		if version == latest {
			version += " (latest)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.Name, version, d.Platform, d.SHA256, d.URL)
	}
	return w.Flush()
}
