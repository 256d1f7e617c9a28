package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ralt/releasetap/internal/descriptor"
	"github.com/ralt/releasetap/internal/generator"
	"github.com/ralt/releasetap/internal/generator/homebrew"
	tablegen "github.com/ralt/releasetap/internal/generator/table"
	"github.com/ralt/releasetap/internal/models"
	"github.com/ralt/releasetap/internal/scanner"
	"github.com/ralt/releasetap/internal/signer"
	"github.com/ralt/releasetap/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewGenerateCmd creates the generate command
func NewGenerateCmd(opts *GlobalOptions) *cobra.Command {
	var config models.GenerateConfig

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a descriptor table and Homebrew formulas",
		Long: `Scans input directory for {name}_{version}_{os}_{arch}.tar.gz release
archives and generates table.yaml (optionally signed) and Formula/{name}.rb
with download URLs under --base-url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.config.ApplyGenerate(&config, cmd.Flags())

			// Validate configuration
			if err := validateGenerateConfig(&config); err != nil {
				return err
			}

			logrus.Info("Starting table generation...")
			logrus.Debugf("Input: %s, output: %s, base URL: %s", config.InputDir, config.OutputDir, config.BaseURL)

			// Run generation
			return runGeneration(cmd.Context(), &config)
		},
	}

	// Input/Output flags
	cmd.Flags().StringVarP(&config.InputDir, "input-dir", "i", ".", "Input directory to scan")
	cmd.Flags().StringVarP(&config.OutputDir, "output-dir", "o", "./tap", "Output directory")

	// GPG signing flags
	cmd.Flags().StringVarP(&config.GPGKeyPath, "gpg-key", "k", "", "Path to GPG private key")
	cmd.Flags().StringVarP(&config.GPGPassphrase, "gpg-passphrase", "p", "", "GPG key passphrase")

	// Formula metadata flags
	cmd.Flags().StringVar(&config.Name, "name", "", "Only include archives of this name")
	cmd.Flags().StringVar(&config.Description, "description", "", "Formula description")
	cmd.Flags().StringVar(&config.Homepage, "homepage", "", "Formula homepage")
	cmd.Flags().StringVar(&config.BaseURL, "base-url", "", "Release base URL, e.g. https://github.com/owner/repo/releases")

	// Behaviour flags
	cmd.Flags().BoolVar(&config.CopyArtifacts, "copy-artifacts", false, "Copy archives to <output-dir>/download/v<version>/")
	cmd.Flags().BoolVar(&config.Incremental, "incremental", false, "Merge with an existing <output-dir>/table.yaml")

	return cmd
}

func validateGenerateConfig(config *models.GenerateConfig) error {
	if config.InputDir == "" {
		return models.NewError(models.ErrInvalidConfig, "", "input-dir is required")
	}

	if config.OutputDir == "" {
		return models.NewError(models.ErrInvalidConfig, "", "output-dir is required")
	}

	if config.BaseURL == "" {
		return models.NewError(models.ErrInvalidConfig, "", "base-url is required")
	}

	return nil
}

func runGeneration(ctx context.Context, config *models.GenerateConfig) error {
	// Step 1: Scan for release archives
	logrus.Infof("Scanning directory: %s", config.InputDir)
	sc := scanner.NewFileSystemScanner()
	artifacts, err := sc.Scan(ctx, config.InputDir)
	if err != nil {
		return models.NewError(models.ErrInvalidConfig, "", "failed to scan directory: %v", err)
	}

	// Step 2: Build the table, starting from the existing one if requested
	table := descriptor.NewTable()
	if config.Incremental {
		existing, err := loadExisting(config.OutputDir)
		if err != nil {
			return err
		}
		if existing != nil {
			if err := table.Merge(existing); err != nil {
				return err
			}
		}
	}

	added := 0
	for _, a := range artifacts {
		if config.Name != "" && a.Name != config.Name {
			logrus.Debugf("Skipping %s: name %s does not match %s", a.Path, a.Name, config.Name)
			continue
		}

		checksums, err := utils.CalculateChecksums(a.Path)
		if err != nil {
			return fmt.Errorf("failed to checksum %s: %w", a.Path, err)
		}

		filename := filepath.Base(a.Path)
		d := models.Descriptor{
			Name:     a.Name,
			Version:  a.Version,
			Platform: a.Platform,
			URL:      descriptor.DownloadURL(config.BaseURL, a.Version, filename),
			SHA256:   checksums.SHA256,
		}

		if err := addOrKeep(table, d); err != nil {
			return err
		}
		added++

		if config.CopyArtifacts {
			dstPath := filepath.Join(config.OutputDir, "download", "v"+a.Version, filename)
			if err := utils.CopyFile(a.Path, dstPath); err != nil {
				return fmt.Errorf("failed to copy artifact: %w", err)
			}
		}
	}

	if table.Len() == 0 {
		logrus.Warn("No release archives found in input directory")
		return nil
	}

	logrus.Infof("Table has %d descriptors (%d from this scan)", table.Len(), added)

	// Step 3: Initialize signer
	var gpgSigner signer.Signer
	if config.GPGKeyPath != "" {
		s, err := signer.NewGPGSigner(config.GPGKeyPath, config.GPGPassphrase)
		if err != nil {
			return models.NewError(models.ErrInvalidConfig, "", "failed to initialize GPG signer: %v", err)
		}
		gpgSigner = s
		logrus.Info("GPG signer initialized")
	}

	// Step 4: Render every output format
	generators := []generator.Generator{
		tablegen.NewGenerator(gpgSigner),
		homebrew.NewGenerator(),
	}

	for _, gen := range generators {
		if err := gen.ValidateTable(table); err != nil {
			return models.NewError(models.ErrInvalidConfig, "", "%s: %v", gen.GetFormat(), err)
		}

		if err := gen.Generate(ctx, config, table); err != nil {
			return fmt.Errorf("failed to generate %s output: %w", gen.GetFormat(), err)
		}
	}

	logrus.Info("Generation completed successfully!")
	logrus.Infof("Output directory: %s", config.OutputDir)

	return nil
}

// loadExisting reads the table of a previous run from outputDir, recovering
// it from the formulas when table.yaml is missing. It returns nil for a
// fresh output directory.
func loadExisting(outputDir string) (*descriptor.Table, error) {
	existingPath := filepath.Join(outputDir, tablegen.FileName)
	if utils.FileExists(existingPath) {
		existing, err := descriptor.LoadYAML(existingPath)
		if err != nil {
			return nil, err
		}
		logrus.Infof("Loaded %d existing descriptors from %s", existing.Len(), existingPath)
		return existing, nil
	}

	formulas, _ := filepath.Glob(filepath.Join(outputDir, "Formula", "*.rb"))
	if len(formulas) == 0 {
		return nil, nil
	}

	existing, err := (&homebrew.Generator{}).ParseExistingTable(outputDir)
	if err != nil {
		return nil, models.NewError(models.ErrParse, "", "failed to recover table from formulas: %v", err)
	}
	logrus.Infof("Recovered %d existing descriptors from formulas in %s", existing.Len(), outputDir)
	return existing, nil
}

// addOrKeep adds d unless an identical descriptor is already present, which
// happens when an incremental run rescans published archives
func addOrKeep(table *descriptor.Table, d models.Descriptor) error {
	if existing, err := table.Resolve(d.Version, d.Platform); err == nil && *existing == d {
		return nil
	}
	return table.Add(d)
}
