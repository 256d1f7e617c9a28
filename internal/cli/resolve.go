package cli

import (
	"github.com/ralt/releasetap/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewResolveCmd creates the resolve command
func NewResolveCmd(opts *GlobalOptions) *cobra.Command {
	var ic models.InstallConfig

	cmd := &cobra.Command{
		Use:   "resolve [version]",
		Short: "Print the descriptor selected for one version and platform",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.config.ApplyInstall(&ic, cmd.Flags())
			if len(args) == 1 {
				ic.Version = args[0]
			}

			table, err := loadTable(ic.TablePath, ic.KeyringPath)
			if err != nil {
				return err
			}

			p, err := resolvePlatform(&ic)
			if err != nil {
				return err
			}

			d, err := table.Resolve(ic.Version, p)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(d); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	addTableFlags(cmd, &ic)
	addPlatformFlags(cmd, &ic)

	return cmd
}
