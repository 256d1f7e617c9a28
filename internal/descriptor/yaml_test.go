package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ralt/releasetap/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundledTable(t *testing.T) {
	table, err := Bundled()
	require.NoError(t, err)

	assert.Equal(t, []string{"0.1.0"}, table.Versions())
	assert.Equal(t, 4, table.Len())

	d, err := table.Resolve("0.1.0", mustPlatform(t, "linux", "amd64", 0))
	require.NoError(t, err)
	assert.Equal(t, "d37d5c70567f370a83b0fea477161db7a5527aa0a10d4f452e04fe999283f84e", d.SHA256)
	assert.Equal(t, ArtifactURL(BundledBaseURL, "flux-build", "0.1.0", d.Platform), d.URL)

	// The first release never shipped 32-bit ARM
	_, err = table.Resolve("0.1.0", mustPlatform(t, "linux", "arm", 32))
	assert.True(t, models.IsErrorType(err, models.ErrNotSupported))
}

func TestBundledTableResolvesCPUFamilies(t *testing.T) {
	table, err := Bundled()
	require.NoError(t, err)

	tests := []struct {
		os, arch string
		bits     int
		want     string
	}{
		{"linux", "arm", 64, "flux-build_0.1.0_linux_arm64.tar.gz"},
		{"macos", "arm", 0, "flux-build_0.1.0_darwin_arm64.tar.gz"},
		{"macos", "arm", 64, "flux-build_0.1.0_darwin_arm64.tar.gz"},
		{"darwin", "intel", 0, "flux-build_0.1.0_darwin_amd64.tar.gz"},
		{"linux", "intel", 64, "flux-build_0.1.0_linux_amd64.tar.gz"},
	}

	for _, tt := range tests {
		d, err := table.Resolve("0.1.0", mustPlatform(t, tt.os, tt.arch, tt.bits))
		require.NoError(t, err, "%s/%s/%d", tt.os, tt.arch, tt.bits)
		assert.Equal(t, tt.want, filepath.Base(d.URL))
	}
}

func TestParseYAMLDerivesBits(t *testing.T) {
	data := []byte(`
name: flux-build
versions:
  - version: v3.0.10
    artifacts:
      - os: darwin
        arch: x86_64
        url: https://example.com/flux-build_3.0.10_darwin_amd64.tar.gz
        sha256: ` + sumA + `
`)
	table, err := ParseYAML(data)
	require.NoError(t, err)

	d, err := table.Resolve("3.0.10", mustPlatform(t, "macos", "amd64", 64))
	require.NoError(t, err)
	assert.Equal(t, "flux-build", d.BinaryName())
}

func TestParseYAMLRejectsDuplicates(t *testing.T) {
	data := []byte(`
name: flux-build
versions:
  - version: 3.0.10
    artifacts:
      - {os: linux, arch: amd64, url: "https://example.com/a.tar.gz", sha256: ` + sumA + `}
      - {os: linux, arch: x86_64, url: "https://example.com/b.tar.gz", sha256: ` + sumA + `}
`)
	_, err := ParseYAML(data)
	assert.True(t, models.IsErrorType(err, models.ErrParse))
}

func TestParseYAMLRejectsUnknownFields(t *testing.T) {
	_, err := ParseYAML([]byte("name: x\nchecksum: nope\n"))
	assert.True(t, models.IsErrorType(err, models.ErrParse))

	_, err = ParseYAML([]byte("versions: []\n"))
	assert.True(t, models.IsErrorType(err, models.ErrParse))
}

func TestEncodeYAMLReloads(t *testing.T) {
	table := threeReleases(t)
	data, err := table.EncodeYAML()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "table.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	reloaded, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, table.Descriptors(), reloaded.Descriptors())
}

func TestLoadYAMLMissingFile(t *testing.T) {
	_, err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, models.IsErrorType(err, models.ErrInvalidConfig))
}
