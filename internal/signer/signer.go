package signer

// Signer interface for signing descriptor tables
type Signer interface {
	// SignDetached creates an armored detached signature (for table.yaml.asc)
	SignDetached(data []byte) ([]byte, error)

	// GetPublicKey returns the public key
	GetPublicKey() ([]byte, error)
}

// SignatureSuffix is appended to a signed file's name
const SignatureSuffix = ".asc"
