package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/ralt/releasetap/internal/descriptor"
	"github.com/ralt/releasetap/internal/generator/homebrew"
	tablegen "github.com/ralt/releasetap/internal/generator/table"
	"github.com/ralt/releasetap/internal/models"
	"github.com/ralt/releasetap/internal/signer"
	"github.com/ralt/releasetap/internal/utils"
	"github.com/sirupsen/logrus"
)

// loadTable returns the descriptor table at path, or the bundled one when
// path is empty. Files ending in .rb are parsed as Homebrew formulas, anything
// else as YAML. A directory is read as a generated tap: its table.yaml when
// present, otherwise every Formula/*.rb. With a keyring, path+".asc" must be
// a valid detached signature over the exact bytes that are parsed.
func loadTable(path, keyringPath string) (*descriptor.Table, error) {
	if path == "" {
		if keyringPath != "" {
			logrus.Warn("Ignoring keyring for the bundled table")
		}
		logrus.Debug("Using bundled descriptor table")
		return descriptor.Bundled()
	}

	if utils.DirExists(path) {
		tablePath := filepath.Join(path, tablegen.FileName)
		if utils.FileExists(tablePath) {
			return loadTable(tablePath, keyringPath)
		}
		return loadFormulaDir(path, keyringPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewError(models.ErrInvalidConfig, "", "failed to read table: %v", err)
	}

	if keyringPath != "" {
		if err := verifyTable(path, data, keyringPath); err != nil {
			return nil, err
		}
		logrus.Infof("Signature on %s verified", path)
	}

	if !strings.HasSuffix(path, ".rb") {
		return descriptor.ParseYAML(data)
	}

	descriptors, err := homebrew.ParseFormula(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	table := descriptor.NewTable()
	for _, d := range descriptors {
		if err := table.Add(d); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// loadFormulaDir reads the Formula directory of a tap without a table.yaml
func loadFormulaDir(dir, keyringPath string) (*descriptor.Table, error) {
	if keyringPath != "" {
		return nil, models.NewError(models.ErrInvalidConfig, "", "%s has no signed %s to verify", dir, tablegen.FileName)
	}

	table, err := (&homebrew.Generator{}).ParseExistingTable(dir)
	if err != nil {
		return nil, models.NewError(models.ErrInvalidConfig, "", "failed to read tap: %v", err)
	}
	logrus.Debugf("Loaded %d descriptors from formulas in %s", table.Len(), dir)
	return table, nil
}

func verifyTable(path string, data []byte, keyringPath string) error {
	verifier, err := signer.NewVerifier(keyringPath)
	if err != nil {
		return models.NewError(models.ErrInvalidConfig, "", "failed to load keyring: %v", err)
	}

	signature, err := os.ReadFile(path + signer.SignatureSuffix)
	if err != nil {
		return models.NewError(models.ErrIntegrity, "", "missing signature for %s: %v", path, err)
	}

	if err := verifier.VerifyDetached(data, signature); err != nil {
		return models.NewError(models.ErrIntegrity, "", "%s: %v", path, err)
	}
	return nil
}
