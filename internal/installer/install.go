package installer

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/ralt/releasetap/internal/archive"
	"github.com/ralt/releasetap/internal/models"
	"github.com/ralt/releasetap/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	// BinaryMode is applied to every installed binary
	BinaryMode os.FileMode = 0o755

	// binaryChecksumFunction double-checks the bytes go-update writes
	binaryChecksumFunction = crypto.SHA256
)

// Verify recomputes the artifact digest and fails closed on mismatch
func Verify(data []byte, d *models.Descriptor) error {
	if err := utils.VerifyChecksum(data, d.SHA256); err != nil {
		return &models.TapError{
			Type:    models.ErrIntegrity,
			Package: d.Identity(),
			Err:     err,
		}
	}
	return nil
}

// Install extracts the descriptor's binary from the verified artifact and
// places it in targetDir with executable permission. Installing the same
// bytes twice leaves the same file behind.
func Install(data []byte, d *models.Descriptor, targetDir string, maxEntrySize int64) (string, error) {
	name := d.BinaryName()

	binary, _, err := archive.ExtractFile(data, name, maxEntrySize)
	if err != nil {
		return "", &models.TapError{
			Type:    models.ErrInstall,
			Package: d.Identity(),
			Err:     fmt.Errorf("failed to extract %s: %w", name, err),
		}
	}

	if err := utils.EnsureDir(targetDir); err != nil {
		return "", &models.TapError{
			Type:    models.ErrInstall,
			Package: targetDir,
			Err:     err,
		}
	}

	targetPath := filepath.Join(targetDir, name)
	if err := place(binary, targetPath); err != nil {
		return "", &models.TapError{
			Type:    models.ErrInstall,
			Package: targetPath,
			Err:     err,
		}
	}

	logrus.Infof("Installed %s %s to %s", d.Name, d.Version, targetPath)
	return targetPath, nil
}

// place swaps binary into targetPath atomically
func place(binary []byte, targetPath string) error {
	// go-update renames the previous file out of the way, so one must exist
	placeholder := false
	if _, err := os.Stat(targetPath); os.IsNotExist(err) {
		f, err := os.OpenFile(targetPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, BinaryMode)
		if err != nil {
			return err
		}
		placeholder = true
		if err := f.Close(); err != nil {
			os.Remove(targetPath)
			return err
		}
	}

	sum := sha256.Sum256(binary)
	options := goupdate.Options{
		TargetPath: targetPath,
		TargetMode: BinaryMode,
		Checksum:   sum[:],
		Hash:       binaryChecksumFunction,
	}

	if err := goupdate.Apply(bytes.NewReader(binary), options); err != nil {
		if placeholder {
			if rmErr := os.Remove(targetPath); rmErr != nil && !os.IsNotExist(rmErr) {
				logrus.Warnf("Failed to remove placeholder %s: %v", targetPath, rmErr)
			}
		}
		return fmt.Errorf("failed to place binary: %w", err)
	}

	oldPath := filepath.Join(filepath.Dir(targetPath), "."+filepath.Base(targetPath)+".old")
	if _, err := os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	// TargetMode is subject to the umask
	return os.Chmod(targetPath, BinaryMode)
}
