package generator

import (
	"context"

	"github.com/ralt/releasetap/internal/descriptor"
	"github.com/ralt/releasetap/internal/models"
)

// Generator interface for descriptor table renderers
type Generator interface {
	// Generate writes the table in this generator's format under config.OutputDir
	Generate(ctx context.Context, config *models.GenerateConfig, table *descriptor.Table) error

	// ValidateTable checks if the table can be rendered by this generator
	ValidateTable(table *descriptor.Table) error

	// GetFormat returns the output format this generator produces
	GetFormat() string
}
