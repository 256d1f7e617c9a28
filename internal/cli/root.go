package cli

import (
	"github.com/ralt/releasetap/internal/config"
	"github.com/spf13/cobra"
)

// GlobalOptions carries the persistent flags and the loaded configuration
// to every subcommand
type GlobalOptions struct {
	ConfigPath string
	Verbose    bool

	config *config.Config
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "releasetap",
		Short: "Install prebuilt release binaries from a verified descriptor table",
		Long: `Releasetap turns a Homebrew style release formula into a table of
per-platform descriptors (URL, SHA-256, binary) and installs the binary for
the current machine after verifying its checksum.

Commands:
  - install   download, verify and install a release binary
  - list      print every descriptor of a table
  - resolve   print the descriptor selected for one platform
  - generate  build table.yaml and Formula/{name}.rb from release archives`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Setup configuration and logging
			cfg, err := config.LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			cfg.SetupLogging(opts.Verbose)
			opts.config = cfg
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Config file (default ./releasetap.yaml or $HOME/.config/releasetap/releasetap.yaml)")

	// Add subcommands
	rootCmd.AddCommand(NewInstallCmd(opts))
	rootCmd.AddCommand(NewListCmd(opts))
	rootCmd.AddCommand(NewResolveCmd(opts))
	rootCmd.AddCommand(NewGenerateCmd(opts))

	return rootCmd
}
