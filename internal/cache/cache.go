// Package cache keeps verified release artifacts on disk, keyed by their
// SHA-256 digest, so repeated installs of one version skip the download.
package cache

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ralt/releasetap/internal/models"
	"github.com/ralt/releasetap/internal/utils"
	"github.com/sirupsen/logrus"
)

// Cache is a directory of artifacts named by digest
type Cache struct {
	dir string
}

// New creates the cache directory if needed
func New(dir string) (*Cache, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, &models.TapError{
			Type:    models.ErrInvalidConfig,
			Package: dir,
			Err:     err,
		}
	}
	return &Cache{dir: dir}, nil
}

// Filename returns the path an artifact with digest sum is stored at
func (c *Cache) Filename(sum string) string {
	return filepath.Join(c.dir, strings.ToLower(sum)+".artifact")
}

// Get returns the cached artifact for sum. An entry whose contents no
// longer hash to sum is removed and reported as a miss.
func (c *Cache) Get(sum string) ([]byte, bool) {
	if !utils.ValidChecksum(sum) {
		return nil, false
	}

	path := c.Filename(sum)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	if err := utils.VerifyChecksum(data, sum); err != nil {
		logrus.Warnf("Dropping corrupted cache entry %s: %v", path, err)
		os.Remove(path)
		return nil, false
	}

	logrus.Debugf("Cache hit for %s", sum)
	return data, true
}

// Put stores data under sum. Data that does not match sum is refused.
func (c *Cache) Put(sum string, data []byte) error {
	if err := utils.VerifyChecksum(data, sum); err != nil {
		return &models.TapError{
			Type:    models.ErrIntegrity,
			Package: sum,
			Err:     err,
		}
	}
	return utils.WriteFileAtomic(c.Filename(sum), data, 0644)
}
