package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ralt/releasetap/internal/models"
	"github.com/ralt/releasetap/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGet(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)

	data := []byte("artifact bytes")
	sum := utils.CalculateChecksum(data)

	_, ok := c.Get(sum)
	assert.False(t, ok)

	require.NoError(t, c.Put(sum, data))

	got, ok := c.Get(sum)
	require.True(t, ok)
	assert.Equal(t, data, got)
}

func TestPutRefusesMismatch(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	sum := utils.CalculateChecksum([]byte("expected"))
	err = c.Put(sum, []byte("something else"))
	assert.True(t, models.IsErrorType(err, models.ErrIntegrity))

	_, statErr := os.Stat(c.Filename(sum))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGetDropsCorruptedEntry(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	data := []byte("artifact bytes")
	sum := utils.CalculateChecksum(data)
	require.NoError(t, c.Put(sum, data))

	require.NoError(t, os.WriteFile(c.Filename(sum), []byte("artifact bytez"), 0644))

	_, ok := c.Get(sum)
	assert.False(t, ok)

	_, statErr := os.Stat(c.Filename(sum))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGetIgnoresMalformedKey(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	_, ok := c.Get("../../etc/passwd")
	assert.False(t, ok)
}
