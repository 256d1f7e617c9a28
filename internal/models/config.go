package models

import "time"

// InstallConfig contains configuration for an install run
type InstallConfig struct {
	// Descriptor source
	TablePath   string // YAML table or Homebrew formula; empty uses the bundled table
	KeyringPath string // Armored public keyring for verifying TablePath + ".asc"

	// Target selection
	Version string // Empty selects the latest version in the table
	OS      string // Empty uses the host
	Arch    string // Empty uses the host
	Bits    int    // Zero derives from Arch

	// Platform is an os/arch[/bits] shorthand exclusive with OS, Arch and Bits
	Platform string

	// Output
	BinDir string

	// Transport
	Timeout   time.Duration
	UserAgent string
	MaxSize   int64 // Upper bound on artifact size in bytes

	// Behaviour
	CacheDir  string // Empty disables the download cache
	SkipSmoke bool   // Do not run "<binary> -h" after install
}

// GenerateConfig contains configuration for table and formula generation
type GenerateConfig struct {
	// Input/Output
	InputDir  string
	OutputDir string

	// Formula metadata
	Name        string
	Description string
	Homepage    string
	BaseURL     string // e.g. https://github.com/owner/repo/releases

	// Signing
	GPGKeyPath    string
	GPGPassphrase string

	// Behaviour
	CopyArtifacts bool // Mirror archives under OutputDir/download/v{version}/
	Incremental   bool // Merge into an existing OutputDir/table.yaml
}
