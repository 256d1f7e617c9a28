package platform

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ralt/releasetap/internal/models"
)

// Canonical operating systems
const (
	MacOS = "macos"
	Linux = "linux"
)

var osAliases = map[string]string{
	"macos":  MacOS,
	"darwin": MacOS,
	"osx":    MacOS,
	"mac":    MacOS,
	"linux":  Linux,
}

var archAliases = map[string]string{
	"amd64":   "amd64",
	"x86_64":  "amd64",
	"arm64":   "arm64",
	"aarch64": "arm64",
	"arm":     "arm",
	"armv6":   "arm",
	"armv7":   "arm",
	"386":     "386",
	"i386":    "386",
	"i686":    "386",
}

// cpuFamily names a CPU family whose architecture depends on the bit-width,
// as in Homebrew's Hardware::CPU.arm? and Hardware::CPU.intel?
type cpuFamily struct {
	arch64 string
	arch32 string
}

var cpuFamilies = map[string]cpuFamily{
	"arm":   {arch64: "arm64", arch32: "arm"},
	"intel": {arch64: "amd64", arch32: "386"},
}

var archBits = map[string]int{
	"amd64": 64,
	"arm64": 64,
	"arm":   32,
	"386":   32,
}

// NormalizeOS maps an operating system name or alias to its canonical form
func NormalizeOS(name string) (string, error) {
	if os, ok := osAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return os, nil
	}
	return "", models.NewError(models.ErrNotSupported, "", "unknown operating system %q", name)
}

// NormalizeArch maps an architecture name or alias to its canonical form
func NormalizeArch(name string) (string, error) {
	if arch, ok := archAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return arch, nil
	}
	return "", models.NewError(models.ErrNotSupported, "", "unknown architecture %q", name)
}

// DefaultBits returns the native bit-width of a canonical architecture
func DefaultBits(arch string) int {
	return archBits[arch]
}

// New builds a canonical platform key. A zero bits value is derived from
// the architecture. "arm" and "intel" name a CPU family: the bit-width picks
// the architecture, and "arm" without one is arm64 on macOS and 32-bit arm
// (Go's GOARCH=arm) elsewhere. A bit-width contradicting the architecture is
// not supported.
func New(os, arch string, bits int) (models.Platform, error) {
	normOS, err := NormalizeOS(os)
	if err != nil {
		return models.Platform{}, err
	}

	if bits != 0 && bits != 32 && bits != 64 {
		return models.Platform{}, models.NewError(models.ErrNotSupported, "", "unsupported bit-width %d", bits)
	}

	normArch, err := familyArch(normOS, arch, bits)
	if err != nil {
		return models.Platform{}, err
	}

	native := DefaultBits(normArch)
	if bits == 0 {
		bits = native
	}
	if bits != native {
		return models.Platform{}, models.NewError(models.ErrNotSupported, "",
			"architecture %s is %d-bit, not %d-bit", normArch, native, bits)
	}

	return models.Platform{OS: normOS, Arch: normArch, Bits: bits}, nil
}

// familyArch resolves arch to a canonical architecture, using bits and the
// operating system for CPU family names
func familyArch(normOS, arch string, bits int) (string, error) {
	family, ok := cpuFamilies[strings.ToLower(strings.TrimSpace(arch))]
	if !ok {
		return NormalizeArch(arch)
	}

	switch {
	case bits == 64:
		return family.arch64, nil
	case bits == 32:
		return family.arch32, nil
	case family.arch64 == "amd64" || normOS == MacOS:
		return family.arch64, nil
	default:
		return family.arch32, nil
	}
}

// Resolve fills empty fields of the requested platform from the host
func Resolve(os, arch string, bits int) (models.Platform, error) {
	if os == "" {
		os = runtime.GOOS
	}
	if arch == "" {
		arch = runtime.GOARCH
	}
	return New(os, arch, bits)
}

// URLToken returns the operating system token used in release artifact names
func URLToken(os string) string {
	if os == MacOS {
		return "darwin"
	}
	return os
}

// Parse reads a platform from an "os/arch" or "os/arch/bits" string
func Parse(s string) (models.Platform, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return models.Platform{}, models.NewError(models.ErrParse, "", "invalid platform %q, expected os/arch[/bits]", s)
	}

	bits := 0
	if len(parts) == 3 {
		if _, err := fmt.Sscanf(parts[2], "%d", &bits); err != nil {
			return models.Platform{}, models.NewError(models.ErrParse, "", "invalid bit-width in %q", s)
		}
	}

	return New(parts[0], parts[1], bits)
}
