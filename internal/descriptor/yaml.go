package descriptor

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ralt/releasetap/internal/models"
	"gopkg.in/yaml.v3"
)

// yamlTable is the on-disk table layout
type yamlTable struct {
	Name     string        `yaml:"name"`
	Binary   string        `yaml:"binary,omitempty"`
	Versions []yamlVersion `yaml:"versions"`
}

type yamlVersion struct {
	Version   string         `yaml:"version"`
	Artifacts []yamlArtifact `yaml:"artifacts"`
}

type yamlArtifact struct {
	OS     string `yaml:"os"`
	Arch   string `yaml:"arch"`
	Bits   int    `yaml:"bits,omitempty"`
	URL    string `yaml:"url"`
	SHA256 string `yaml:"sha256"`
}

// ParseYAML reads a table from its YAML representation
func ParseYAML(data []byte) (*Table, error) {
	var raw yamlTable
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, &models.TapError{
			Type: models.ErrParse,
			Err:  fmt.Errorf("failed to decode descriptor table: %w", err),
		}
	}

	if raw.Name == "" {
		return nil, models.NewError(models.ErrParse, "", "descriptor table has no name")
	}

	table := NewTable()
	for _, v := range raw.Versions {
		for _, a := range v.Artifacts {
			err := table.Add(models.Descriptor{
				Name:     raw.Name,
				Version:  v.Version,
				Platform: models.Platform{OS: a.OS, Arch: a.Arch, Bits: a.Bits},
				URL:      a.URL,
				SHA256:   a.SHA256,
				Binary:   raw.Binary,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	return table, nil
}

// LoadYAML reads a table from a YAML file
func LoadYAML(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.TapError{
			Type:    models.ErrInvalidConfig,
			Package: path,
			Err:     err,
		}
	}
	return ParseYAML(data)
}

// EncodeYAML renders the table. All descriptors must share one name.
func (t *Table) EncodeYAML() ([]byte, error) {
	var raw yamlTable
	index := make(map[string]int)

	for _, d := range t.Descriptors() {
		if raw.Name == "" {
			raw.Name = d.Name
			if d.Binary != d.Name {
				raw.Binary = d.Binary
			}
		} else if raw.Name != d.Name {
			return nil, fmt.Errorf("table mixes %s and %s", raw.Name, d.Name)
		}

		i, ok := index[d.Version]
		if !ok {
			i = len(raw.Versions)
			index[d.Version] = i
			raw.Versions = append(raw.Versions, yamlVersion{Version: d.Version})
		}

		raw.Versions[i].Artifacts = append(raw.Versions[i].Artifacts, yamlArtifact{
			OS:     d.Platform.OS,
			Arch:   d.Platform.Arch,
			Bits:   d.Platform.Bits,
			URL:    d.URL,
			SHA256: d.SHA256,
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
