package scanner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ralt/releasetap/internal/archive"
	"github.com/ralt/releasetap/internal/descriptor"
	"github.com/ralt/releasetap/internal/models"
	"github.com/ralt/releasetap/internal/platform"
)

// artifactNameRe matches {name}_{version}_{os}_{arch}.tar[.gz|.xz|.zst]
var artifactNameRe = regexp.MustCompile(`^(.+)_v?(\d+\.\d+\.\d+[^_]*)_([a-z]+)_([a-z0-9_]+?)\.(tar\.gz|tgz|tar\.xz|tar\.zst|tar)$`)

// DetectArchiveFormat determines the archive format from magic bytes.
// Content that matches no known format is FormatUnknown whatever its name.
func DetectArchiveFormat(path string) (archive.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return archive.FormatUnknown, err
	}
	defer f.Close()

	// Read first 512 bytes for magic byte detection
	header := make([]byte, 512)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return archive.FormatUnknown, err
	}

	return archive.DetectFormat(header[:n]), nil
}

// ParseArtifactName splits a release archive file name into its name,
// version and platform
func ParseArtifactName(filename string) (name, version string, p models.Platform, err error) {
	matches := artifactNameRe.FindStringSubmatch(filepath.Base(filename))
	if matches == nil {
		return "", "", models.Platform{}, fmt.Errorf("%s does not follow {name}_{version}_{os}_{arch}.tar.gz", filename)
	}

	name = matches[1]
	version = descriptor.NormalizeVersion(matches[2])

	arch := matches[4]
	// goreleaser may suffix the GOAMD64 level, e.g. linux_amd64_v1
	arch = strings.TrimSuffix(arch, "_v1")

	p, err = platform.New(matches[3], arch, 0)
	if err != nil {
		return "", "", models.Platform{}, err
	}

	return name, version, p, nil
}
