package descriptor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ralt/releasetap/internal/models"
	"github.com/ralt/releasetap/internal/platform"
	"github.com/ralt/releasetap/internal/utils"
	"golang.org/x/mod/semver"
)

// Key identifies exactly one descriptor
type Key struct {
	Version  string
	Platform models.Platform
}

// Table maps (version, platform) keys to release descriptors. Each version
// is independently authoritative for its own platforms.
type Table struct {
	entries map[Key]models.Descriptor
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{
		entries: make(map[Key]models.Descriptor),
	}
}

// NormalizeVersion strips a leading "v" and surrounding whitespace
func NormalizeVersion(version string) string {
	return strings.TrimPrefix(strings.TrimSpace(version), "v")
}

// Add inserts a descriptor. A second descriptor for the same key is
// rejected, and a different checksum for a published key is reported as an
// integrity error.
func (t *Table) Add(d models.Descriptor) error {
	d.Version = NormalizeVersion(d.Version)
	d.SHA256 = strings.ToLower(strings.TrimSpace(d.SHA256))

	if d.Name == "" {
		return models.NewError(models.ErrParse, d.URL, "descriptor has no name")
	}
	if !semver.IsValid("v" + d.Version) {
		return models.NewError(models.ErrParse, d.Name, "invalid version %q", d.Version)
	}
	if d.URL == "" {
		return models.NewError(models.ErrParse, d.Identity(), "descriptor has no url")
	}
	if !utils.ValidChecksum(d.SHA256) {
		return models.NewError(models.ErrParse, d.Identity(), "invalid sha256 %q", d.SHA256)
	}

	p, err := platform.New(d.Platform.OS, d.Platform.Arch, d.Platform.Bits)
	if err != nil {
		return err
	}
	d.Platform = p

	key := Key{Version: d.Version, Platform: p}
	if existing, ok := t.entries[key]; ok {
		if existing.SHA256 != d.SHA256 {
			return models.NewError(models.ErrIntegrity, d.Identity(),
				"checksum changed for published artifact: %s -> %s", existing.SHA256, d.SHA256)
		}
		return models.NewError(models.ErrParse, d.Identity(), "duplicate descriptor")
	}

	t.entries[key] = d
	return nil
}

// Merge adds every descriptor of other to t
func (t *Table) Merge(other *Table) error {
	for _, d := range other.Descriptors() {
		if err := t.Add(d); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of descriptors
func (t *Table) Len() int {
	return len(t.entries)
}

// Resolve returns the single descriptor for version and platform. An empty
// version selects the latest one.
func (t *Table) Resolve(version string, p models.Platform) (*models.Descriptor, error) {
	version = NormalizeVersion(version)
	if version == "" {
		version = t.Latest()
		if version == "" {
			return nil, models.NewError(models.ErrNotSupported, "", "descriptor table is empty")
		}
	}

	if !t.HasVersion(version) {
		return nil, models.NewError(models.ErrNotSupported, version, "unknown version")
	}

	d, ok := t.entries[Key{Version: version, Platform: p}]
	if !ok {
		return nil, models.NewError(models.ErrNotSupported, version, "no artifact for platform %s", p)
	}

	return &d, nil
}

// HasVersion reports whether any descriptor exists for version
func (t *Table) HasVersion(version string) bool {
	version = NormalizeVersion(version)
	for key := range t.entries {
		if key.Version == version {
			return true
		}
	}
	return false
}

// Versions returns all versions in ascending semantic order
func (t *Table) Versions() []string {
	seen := make(map[string]bool)
	var versions []string
	for key := range t.entries {
		if !seen[key.Version] {
			seen[key.Version] = true
			versions = append(versions, key.Version)
		}
	}

	sort.Slice(versions, func(i, j int) bool {
		return semver.Compare("v"+versions[i], "v"+versions[j]) < 0
	})
	return versions
}

// Latest returns the highest version, or "" for an empty table
func (t *Table) Latest() string {
	versions := t.Versions()
	if len(versions) == 0 {
		return ""
	}
	return versions[len(versions)-1]
}

// Platforms returns the platforms supported by version
func (t *Table) Platforms(version string) []models.Platform {
	version = NormalizeVersion(version)
	var platforms []models.Platform
	for key := range t.entries {
		if key.Version == version {
			platforms = append(platforms, key.Platform)
		}
	}

	sort.Slice(platforms, func(i, j int) bool {
		return platformLess(platforms[i], platforms[j])
	})
	return platforms
}

// Descriptors returns every descriptor ordered by version then platform
func (t *Table) Descriptors() []models.Descriptor {
	descriptors := make([]models.Descriptor, 0, len(t.entries))
	for _, d := range t.entries {
		descriptors = append(descriptors, d)
	}

	sort.Slice(descriptors, func(i, j int) bool {
		a, b := descriptors[i], descriptors[j]
		if c := semver.Compare("v"+a.Version, "v"+b.Version); c != 0 {
			return c < 0
		}
		return platformLess(a.Platform, b.Platform)
	})
	return descriptors
}

func platformLess(a, b models.Platform) bool {
	if a.OS != b.OS {
		return a.OS < b.OS
	}
	if a.Arch != b.Arch {
		return a.Arch < b.Arch
	}
	return a.Bits < b.Bits
}

// ArtifactURL expands the release artifact template
// {base}/download/v{version}/{name}_{version}_{os}_{arch}.tar.gz
func ArtifactURL(baseURL, name, version string, p models.Platform) string {
	version = NormalizeVersion(version)
	return DownloadURL(baseURL, version, fmt.Sprintf("%s_%s_%s_%s.tar.gz", name, version, platform.URLToken(p.OS), p.Arch))
}

// DownloadURL returns {base}/download/v{version}/{filename}
func DownloadURL(baseURL, version, filename string) string {
	return fmt.Sprintf("%s/download/v%s/%s", strings.TrimRight(baseURL, "/"), NormalizeVersion(version), filename)
}
