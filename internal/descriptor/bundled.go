package descriptor

import (
	_ "embed"
)

// BundledBaseURL is the release location of the bundled artifacts
const BundledBaseURL = "https://github.com/DoodleScheduling/flux-build/releases"

//go:embed bundled.yaml
var bundledYAML []byte

// Bundled returns the descriptor table shipped with the binary
func Bundled() (*Table, error) {
	return ParseYAML(bundledYAML)
}
