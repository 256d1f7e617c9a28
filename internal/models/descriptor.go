package models

import "fmt"

// Platform is the (operating system, architecture, bit-width) key used to
// select a descriptor
type Platform struct {
	OS   string `yaml:"os"`
	Arch string `yaml:"arch"`
	Bits int    `yaml:"bits"`
}

// String returns the platform as os/arch/bits
func (p Platform) String() string {
	return fmt.Sprintf("%s/%s/%d", p.OS, p.Arch, p.Bits)
}

// Descriptor is the URL, checksum and install action published for one
// version on one platform
type Descriptor struct {
	Name     string   `yaml:"name"`
	Version  string   `yaml:"version"`
	Platform Platform `yaml:"platform"`
	URL      string   `yaml:"url"`
	SHA256   string   `yaml:"sha256"`

	// Binary is the archive entry copied into the target directory
	Binary string `yaml:"binary,omitempty"`
}

// BinaryName returns the archive entry to install, defaulting to Name
func (d *Descriptor) BinaryName() string {
	if d.Binary != "" {
		return d.Binary
	}
	return d.Name
}

// Identity returns a unique identifier for the descriptor key
func (d *Descriptor) Identity() string {
	return fmt.Sprintf("%s:%s:%s", d.Name, d.Version, d.Platform)
}
