package scanner

import (
	"context"

	"github.com/ralt/releasetap/internal/archive"
	"github.com/ralt/releasetap/internal/models"
)

// ScannedArtifact represents a release archive found during scanning
type ScannedArtifact struct {
	Path     string
	Format   archive.Format
	Size     int64
	Name     string
	Version  string
	Platform models.Platform
}

// Scanner interface for detecting and scanning release archives
type Scanner interface {
	// Scan recursively scans a directory for release archives
	Scan(ctx context.Context, dir string) ([]ScannedArtifact, error)

	// DetectFormat determines the archive format of a file
	DetectFormat(path string) (archive.Format, error)
}
