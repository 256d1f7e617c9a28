package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fluxBuildEntries() []Entry {
	return []Entry{
		{Name: "LICENSE", Data: []byte("Apache-2.0")},
		{Name: "README.md", Data: []byte("# flux-build")},
		{Name: "flux-build", Mode: 0755, Data: []byte("#!/bin/sh\nexit 0\n")},
	}
}

func TestExtractFileAllFormats(t *testing.T) {
	for _, format := range []Format{FormatGzip, FormatXz, FormatZstd, FormatTar} {
		t.Run(format.String(), func(t *testing.T) {
			data, err := Pack(format, fluxBuildEntries())
			require.NoError(t, err)
			assert.Equal(t, format, DetectFormat(data))

			contents, mode, err := ExtractFile(data, "flux-build", 0)
			require.NoError(t, err)
			assert.Equal(t, "#!/bin/sh\nexit 0\n", string(contents))
			assert.Equal(t, int64(0755), mode)
		})
	}
}

func TestExtractFileNestedEntry(t *testing.T) {
	data, err := Pack(FormatGzip, []Entry{
		{Name: "flux-build_3.0.10_linux_amd64/flux-build", Mode: 0755, Data: []byte("bin")},
	})
	require.NoError(t, err)

	contents, _, err := ExtractFile(data, "flux-build", 0)
	require.NoError(t, err)
	assert.Equal(t, "bin", string(contents))
}

func TestExtractFilePrefersExactMatch(t *testing.T) {
	data, err := Pack(FormatGzip, []Entry{
		{Name: "docs/flux-build", Data: []byte("man page")},
		{Name: "flux-build", Mode: 0755, Data: []byte("bin")},
		{Name: "extra/flux-build", Data: []byte("other")},
	})
	require.NoError(t, err)

	contents, _, err := ExtractFile(data, "flux-build", 0)
	require.NoError(t, err)
	assert.Equal(t, "bin", string(contents))
}

func TestExtractFileErrors(t *testing.T) {
	missing, err := Pack(FormatGzip, []Entry{{Name: "README.md", Data: []byte("x")}})
	require.NoError(t, err)
	_, _, err = ExtractFile(missing, "flux-build", 0)
	assert.ErrorContains(t, err, "not found")

	ambiguous, err := Pack(FormatGzip, []Entry{
		{Name: "a/flux-build", Data: []byte("1")},
		{Name: "b/flux-build", Data: []byte("2")},
	})
	require.NoError(t, err)
	_, _, err = ExtractFile(ambiguous, "flux-build", 0)
	assert.ErrorContains(t, err, "ambiguous")

	traversal, err := Pack(FormatGzip, []Entry{{Name: "../flux-build", Data: []byte("x")}})
	require.NoError(t, err)
	_, _, err = ExtractFile(traversal, "flux-build", 0)
	assert.Error(t, err)

	big, err := Pack(FormatGzip, []Entry{{Name: "flux-build", Data: make([]byte, 64)}})
	require.NoError(t, err)
	_, _, err = ExtractFile(big, "flux-build", 32)
	assert.Error(t, err)

	_, _, err = ExtractFile([]byte("not an archive"), "flux-build", 0)
	assert.ErrorContains(t, err, "unrecognised")
}

func TestFormatFromName(t *testing.T) {
	assert.Equal(t, FormatGzip, FormatFromName("flux-build_3.0.10_linux_amd64.tar.gz"))
	assert.Equal(t, FormatXz, FormatFromName("x.tar.xz"))
	assert.Equal(t, FormatZstd, FormatFromName("x.tar.zst"))
	assert.Equal(t, FormatUnknown, FormatFromName("checksums.txt"))
}
