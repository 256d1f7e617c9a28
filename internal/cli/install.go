package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/ralt/releasetap/internal/cache"
	"github.com/ralt/releasetap/internal/config"
	"github.com/ralt/releasetap/internal/fetcher"
	"github.com/ralt/releasetap/internal/installer"
	"github.com/ralt/releasetap/internal/models"
	"github.com/ralt/releasetap/internal/platform"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewInstallCmd creates the install command
func NewInstallCmd(opts *GlobalOptions) *cobra.Command {
	var ic models.InstallConfig

	cmd := &cobra.Command{
		Use:   "install [version]",
		Short: "Download, verify and install a release binary",
		Long: `Resolves the descriptor for the requested version and platform, downloads
the artifact, verifies its SHA-256 checksum and installs the binary into
the target directory. Nothing is written unless the checksum matches.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.config.ApplyInstall(&ic, cmd.Flags())
			if len(args) == 1 {
				ic.Version = args[0]
			}

			if err := validateInstallConfig(&ic); err != nil {
				return err
			}

			logrus.Debugf("Configuration: %+v", ic)

			return runInstall(cmd.Context(), &ic, cmd.OutOrStdout())
		},
	}

	addTableFlags(cmd, &ic)
	addPlatformFlags(cmd, &ic)

	// Output flags
	cmd.Flags().StringVarP(&ic.BinDir, "bin-dir", "b", config.DefaultBinDir, "Directory to install the binary into")

	// Transport flags
	cmd.Flags().DurationVar(&ic.Timeout, "timeout", fetcher.DefaultTimeout, "Download timeout")
	cmd.Flags().StringVar(&ic.UserAgent, "user-agent", fetcher.DefaultUserAgent, "HTTP User-Agent header")
	cmd.Flags().Int64Var(&ic.MaxSize, "max-size", fetcher.DefaultMaxSize, "Maximum artifact size in bytes")

	// Behaviour flags
	cmd.Flags().StringVar(&ic.CacheDir, "cache-dir", "", "Cache verified artifacts in this directory")
	cmd.Flags().BoolVar(&ic.SkipSmoke, "skip-smoke", false, "Do not run '<binary> -h' after installing")

	return cmd
}

// addTableFlags registers the descriptor source flags
func addTableFlags(cmd *cobra.Command, ic *models.InstallConfig) {
	cmd.Flags().StringVarP(&ic.TablePath, "table", "t", "", "Descriptor table (.yaml), Homebrew formula (.rb) or tap directory; default is the bundled table")
	cmd.Flags().StringVar(&ic.KeyringPath, "keyring", "", "Public keyring that must have signed <table>.asc")
}

// addPlatformFlags registers the target selection flags
func addPlatformFlags(cmd *cobra.Command, ic *models.InstallConfig) {
	cmd.Flags().StringVar(&ic.Version, "version", "", "Version to install (default latest)")
	cmd.Flags().StringVar(&ic.OS, "os", "", "Target operating system (default host)")
	cmd.Flags().StringVar(&ic.Arch, "arch", "", "Target architecture (default host)")
	cmd.Flags().IntVar(&ic.Bits, "bits", 0, "Target bit width, 32 or 64 (default derived from arch)")
	cmd.Flags().StringVar(&ic.Platform, "platform", "", "Target as os/arch[/bits], e.g. macos/arm or linux/intel/32")
}

// resolvePlatform returns the target platform from either --platform or
// the --os/--arch/--bits triple, falling back to the host
func resolvePlatform(ic *models.InstallConfig) (models.Platform, error) {
	if ic.Platform == "" {
		return platform.Resolve(ic.OS, ic.Arch, ic.Bits)
	}
	if ic.OS != "" || ic.Arch != "" || ic.Bits != 0 {
		return models.Platform{}, models.NewError(models.ErrInvalidConfig, "", "platform %q cannot be combined with os, arch or bits", ic.Platform)
	}
	return platform.Parse(ic.Platform)
}

func validateInstallConfig(ic *models.InstallConfig) error {
	if ic.BinDir == "" {
		return models.NewError(models.ErrInvalidConfig, "", "bin-dir is required")
	}
	if ic.Timeout <= 0 {
		return models.NewError(models.ErrInvalidConfig, "", "timeout must be positive")
	}
	if ic.MaxSize <= 0 {
		return models.NewError(models.ErrInvalidConfig, "", "max-size must be positive")
	}
	if ic.UserAgent == "" {
		ic.UserAgent = fetcher.DefaultUserAgent
	}
	return nil
}

func runInstall(ctx context.Context, ic *models.InstallConfig, out io.Writer) error {
	// Step 1: Load the descriptor table
	table, err := loadTable(ic.TablePath, ic.KeyringPath)
	if err != nil {
		return err
	}

	// Step 2: Determine the target platform
	p, err := resolvePlatform(ic)
	if err != nil {
		return err
	}

	// Step 3: Assemble the pipeline
	f := fetcher.New(
		fetcher.WithTimeout(ic.Timeout),
		fetcher.WithUserAgent(ic.UserAgent),
		fetcher.WithMaxSize(ic.MaxSize),
	)

	options := []installer.Option{installer.WithSmokeTest(!ic.SkipSmoke)}
	if ic.CacheDir != "" {
		c, err := cache.New(ic.CacheDir)
		if err != nil {
			return err
		}
		options = append(options, installer.WithCache(c))
	}

	// Step 4: Run it
	result, err := installer.New(table, f, options...).Run(ctx, installer.Request{
		Version:   ic.Version,
		Platform:  p,
		TargetDir: ic.BinDir,
	})
	if err != nil {
		logrus.WithField("state", result.State.String()).Debug("Install aborted")
		return err
	}

	source := "downloaded"
	if result.FromCache {
		source = "cached"
	}
	logrus.Infof("Installed %s %s for %s (%s)", result.Descriptor.Name, result.Descriptor.Version, p, source)
	fmt.Fprintln(out, result.Path)

	return nil
}
