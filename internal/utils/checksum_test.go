package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sha256("hello\n")
const helloSum = "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03"

func TestCalculateChecksum(t *testing.T) {
	assert.Equal(t, helloSum, CalculateChecksum([]byte("hello\n")))
}

func TestCalculateChecksumsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0644))

	sum, err := CalculateChecksums(path)
	require.NoError(t, err)
	assert.Equal(t, helloSum, sum.SHA256)
	assert.Equal(t, int64(6), sum.Size)
}

func TestVerifyChecksum(t *testing.T) {
	data := []byte("hello\n")
	require.NoError(t, VerifyChecksum(data, helloSum))
	require.NoError(t, VerifyChecksum(data, "  "+"5891B5B522D5DF086D0FF0B110FBD9D21BB4FC7163AF34D08286A2E846F6BE03"))

	corrupted := []byte("hellp\n")
	assert.Error(t, VerifyChecksum(corrupted, helloSum))

	assert.Error(t, VerifyChecksum(data, "abc"))
	assert.Error(t, VerifyChecksum(data, ""))
}

func TestValidChecksum(t *testing.T) {
	assert.True(t, ValidChecksum(helloSum))
	assert.False(t, ValidChecksum(helloSum[:63]))
	assert.False(t, ValidChecksum("z"+helloSum[1:]))
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bin", "tool")

	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0755))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0755))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileAndDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "table.yaml")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	assert.True(t, FileExists(file))
	assert.False(t, DirExists(file))
	assert.True(t, DirExists(dir))
	assert.False(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
}
