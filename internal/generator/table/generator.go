package table

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ralt/releasetap/internal/descriptor"
	"github.com/ralt/releasetap/internal/generator"
	"github.com/ralt/releasetap/internal/models"
	"github.com/ralt/releasetap/internal/signer"
	"github.com/ralt/releasetap/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	// FileName is the descriptor table written under the output directory
	FileName = "table.yaml"

	// PublicKeyFileName holds the armored key that verifies FileName
	PublicKeyFileName = "table.pub.asc"
)

// Generator implements the generator.Generator interface for YAML tables
type Generator struct {
	signer signer.Signer
}

// NewGenerator creates a new table generator; s may be nil for unsigned output
func NewGenerator(s signer.Signer) generator.Generator {
	return &Generator{
		signer: s,
	}
}

// Generate writes table.yaml and, when a signer is configured, its detached
// signature and the public key
func (g *Generator) Generate(ctx context.Context, config *models.GenerateConfig, table *descriptor.Table) error {
	logrus.Info("Generating descriptor table...")

	if err := g.ValidateTable(table); err != nil {
		return err
	}

	data, err := table.EncodeYAML()
	if err != nil {
		return err
	}

	if err := utils.EnsureDir(config.OutputDir); err != nil {
		return err
	}

	tablePath := filepath.Join(config.OutputDir, FileName)
	if err := utils.WriteFileAtomic(tablePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}

	if g.signer == nil {
		logrus.Warn("No signing key configured, table is unsigned")
		return removeStale(tablePath+signer.SignatureSuffix, filepath.Join(config.OutputDir, PublicKeyFileName))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	signature, err := g.signer.SignDetached(data)
	if err != nil {
		return fmt.Errorf("failed to sign table: %w", err)
	}
	if err := utils.WriteFile(tablePath+signer.SignatureSuffix, signature, 0644); err != nil {
		return fmt.Errorf("failed to write signature: %w", err)
	}

	publicKey, err := g.signer.GetPublicKey()
	if err != nil {
		return fmt.Errorf("failed to export public key: %w", err)
	}
	if err := utils.WriteFile(filepath.Join(config.OutputDir, PublicKeyFileName), publicKey, 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	logrus.Infof("Descriptor table generated and signed (%d descriptors)", table.Len())
	return nil
}

// removeStale deletes signature files left by an earlier signed run, which
// no longer match the table
func removeStale(paths ...string) error {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// ValidateTable checks that the table is non-empty
func (g *Generator) ValidateTable(table *descriptor.Table) error {
	if table.Len() == 0 {
		return fmt.Errorf("descriptor table is empty")
	}
	return nil
}

// GetFormat returns the output format this generator produces
func (g *Generator) GetFormat() string {
	return "table"
}
