package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ralt/releasetap/internal/archive"
	"github.com/sirupsen/logrus"
)

// FileSystemScanner implements Scanner interface for filesystem scanning
type FileSystemScanner struct{}

// NewFileSystemScanner creates a new filesystem scanner
func NewFileSystemScanner() *FileSystemScanner {
	return &FileSystemScanner{}
}

// Scan recursively scans a directory for release archives
func (s *FileSystemScanner) Scan(ctx context.Context, dir string) ([]ScannedArtifact, error) {
	var artifacts []ScannedArtifact

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			return nil
		}

		name, version, p, err := ParseArtifactName(path)
		if err != nil {
			logrus.Debugf("Skipping %s: %v", path, err)
			return nil
		}

		format, err := s.DetectFormat(path)
		if err != nil {
			logrus.Warnf("Failed to detect format for %s: %v", path, err)
			return nil
		}

		// Skip files that only look like archives by name
		if format == archive.FormatUnknown {
			logrus.Warnf("Skipping %s: content is not a recognised archive", path)
			return nil
		}
		if named := archive.FormatFromName(path); named != format {
			logrus.Warnf("Skipping %s: named %s but contains %s", path, named, format)
			return nil
		}

		logrus.Debugf("Found %s archive: %s", format, path)

		artifacts = append(artifacts, ScannedArtifact{
			Path:     path,
			Format:   format,
			Size:     info.Size(),
			Name:     name,
			Version:  version,
			Platform: p,
		})

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	logrus.Infof("Found %d release archives in %s", len(artifacts), dir)
	return artifacts, nil
}

// DetectFormat determines the archive format of a file
func (s *FileSystemScanner) DetectFormat(path string) (archive.Format, error) {
	return DetectArchiveFormat(path)
}
