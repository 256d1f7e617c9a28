package homebrew

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ralt/releasetap/internal/descriptor"
	"github.com/ralt/releasetap/internal/models"
	"github.com/ralt/releasetap/internal/platform"
	"github.com/ralt/releasetap/internal/scanner"
	"github.com/sirupsen/logrus"
)

var (
	versionRe = regexp.MustCompile(`^version\s+"([^"]+)"`)
	urlRe     = regexp.MustCompile(`^url\s+"([^"]+)"`)
	sha256Re  = regexp.MustCompile(`^sha256\s+"([^"]+)"`)
	installRe = regexp.MustCompile(`^bin\.install\s+"([^"]+)"`)
	onOSRe    = regexp.MustCompile(`^on_([a-z]+)\s+do`)
	cpuRe     = regexp.MustCompile(`^if\s+Hardware::CPU\.(intel|arm)\?(.*)$`)
)

// formulaEntry is one url/sha256 pair with the block context it was found in
type formulaEntry struct {
	url    string
	sha256 string
	binary string
	os     string
	family string
	bits   int
}

// ParseExistingTable reads Formula/*.rb under outputDir into a descriptor table
func (g *Generator) ParseExistingTable(outputDir string) (*descriptor.Table, error) {
	formulaFiles, err := filepath.Glob(filepath.Join(outputDir, "Formula", "*.rb"))
	if err != nil {
		return nil, err
	}

	if len(formulaFiles) == 0 {
		return nil, fmt.Errorf("no existing Homebrew formulas found in %s", outputDir)
	}

	table := descriptor.NewTable()
	for _, formulaPath := range formulaFiles {
		descriptors, err := ParseFormulaFile(formulaPath)
		if err != nil {
			logrus.Warnf("Skipping formula %s: %v", formulaPath, err)
			continue
		}
		for _, d := range descriptors {
			if err := table.Add(d); err != nil {
				return nil, err
			}
		}
	}

	if table.Len() == 0 {
		return nil, fmt.Errorf("no descriptors found in Formula files")
	}

	return table, nil
}

// ParseFormulaFile parses a goreleaser style formula from disk
func ParseFormulaFile(path string) ([]models.Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.NewError(models.ErrInvalidConfig, "", "failed to open formula: %v", err)
	}
	defer f.Close()

	return ParseFormula(f)
}

// ParseFormula extracts one descriptor per url/sha256 pair of a formula.
// The platform comes from the artifact file name when it follows the
// release naming scheme, otherwise from the on_os/Hardware::CPU blocks.
func ParseFormula(r io.Reader) ([]models.Descriptor, error) {
	var (
		version string
		osName  string
		family  string
		bits    int
		entries []*formulaEntry
		current *formulaEntry
	)

	s := bufio.NewScanner(r)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())

		if matches := versionRe.FindStringSubmatch(line); matches != nil {
			version = descriptor.NormalizeVersion(matches[1])
			continue
		}
		if matches := onOSRe.FindStringSubmatch(line); matches != nil {
			osName = matches[1]
			family, bits = "", 0
			continue
		}
		if matches := cpuRe.FindStringSubmatch(line); matches != nil {
			family = matches[1]
			bits = 0
			switch {
			case strings.Contains(matches[2], "!Hardware::CPU.is_64_bit?"):
				bits = 32
			case strings.Contains(matches[2], "Hardware::CPU.is_64_bit?"):
				bits = 64
			}
			continue
		}
		if matches := urlRe.FindStringSubmatch(line); matches != nil {
			current = &formulaEntry{url: matches[1], os: osName, family: family, bits: bits}
			entries = append(entries, current)
			continue
		}
		if matches := sha256Re.FindStringSubmatch(line); matches != nil {
			if current == nil || current.sha256 != "" {
				return nil, models.NewError(models.ErrParse, "", "line %d: sha256 without url", lineNo)
			}
			current.sha256 = strings.ToLower(matches[1])
			continue
		}
		if matches := installRe.FindStringSubmatch(line); matches != nil && current != nil {
			current.binary = matches[1]
		}
	}
	if err := s.Err(); err != nil {
		return nil, models.NewError(models.ErrParse, "", "failed to read formula: %v", err)
	}

	if version == "" {
		return nil, models.NewError(models.ErrParse, "", "formula has no version")
	}

	descriptors := make([]models.Descriptor, 0, len(entries))
	for _, e := range entries {
		d, err := e.descriptor(version)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}

func (e *formulaEntry) descriptor(version string) (models.Descriptor, error) {
	if e.sha256 == "" {
		return models.Descriptor{}, models.NewError(models.ErrParse, "", "url %s has no sha256", e.url)
	}

	name, urlVersion, p, err := scanner.ParseArtifactName(urlBase(e.url))
	if err != nil {
		p, err = e.contextPlatform()
		if err != nil {
			return models.Descriptor{}, models.NewError(models.ErrParse, "", "cannot determine platform of %s: %v", e.url, err)
		}
		name = e.binary
	} else if urlVersion != version {
		return models.Descriptor{}, models.NewError(models.ErrParse, name,
			"url %s does not match formula version %s", e.url, version)
	}

	if name == "" {
		return models.Descriptor{}, models.NewError(models.ErrParse, "", "cannot determine name of %s", e.url)
	}

	d := models.Descriptor{
		Name:     name,
		Version:  version,
		Platform: p,
		URL:      e.url,
		SHA256:   e.sha256,
	}
	if e.binary != "" && e.binary != name {
		d.Binary = e.binary
	}
	return d, nil
}

// contextPlatform derives the platform from the enclosing on_os and
// Hardware::CPU blocks
func (e *formulaEntry) contextPlatform() (models.Platform, error) {
	if e.os == "" || e.family == "" {
		return models.Platform{}, fmt.Errorf("url outside of an on_os/Hardware::CPU block")
	}

	return platform.New(e.os, e.family, e.bits)
}

func urlBase(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return url[strings.LastIndex(url, "/")+1:]
}
