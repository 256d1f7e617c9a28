package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// SHA256HexLen is the length of a hex-encoded SHA-256 digest
const SHA256HexLen = sha256.Size * 2

// Checksum contains the digest and size of a file
type Checksum struct {
	SHA256 string
	Size   int64
}

// CalculateChecksums calculates the SHA-256 checksum of a file in a single pass
func CalculateChecksums(path string) (*Checksum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, err
	}

	return &Checksum{
		SHA256: hex.EncodeToString(h.Sum(nil)),
		Size:   n,
	}, nil
}

// CalculateChecksum returns the hex SHA-256 digest of data
func CalculateChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidChecksum reports whether s looks like a hex SHA-256 digest
func ValidChecksum(s string) bool {
	if len(s) != SHA256HexLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// VerifyChecksum recomputes the digest of data and compares it to expected
func VerifyChecksum(data []byte, expected string) error {
	expected = strings.ToLower(strings.TrimSpace(expected))
	want, err := hex.DecodeString(expected)
	if err != nil || len(want) != sha256.Size {
		return fmt.Errorf("malformed sha256 %q", expected)
	}

	got := sha256.Sum256(data)
	if subtle.ConstantTimeCompare(got[:], want) != 1 {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, hex.EncodeToString(got[:]))
	}

	return nil
}
