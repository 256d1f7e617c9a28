package signer

import (
	"bytes"
	"fmt"

	"github.com/ProtonMail/go-crypto/openpgp"
)

const armoredSignatureHeader = "-----BEGIN PGP SIGNATURE-----"

// Verifier checks detached signatures against a public keyring
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier loads an armored or binary public keyring
func NewVerifier(keyringPath string) (*Verifier, error) {
	keyring, err := readKeyRing(keyringPath)
	if err != nil {
		return nil, err
	}
	return &Verifier{keyring: keyring}, nil
}

// NewVerifierFromKey builds a verifier from armored public key bytes
func NewVerifierFromKey(armored []byte) (*Verifier, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(armored))
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}
	return &Verifier{keyring: keyring}, nil
}

// VerifyDetached checks an armored or binary detached signature over data
func (v *Verifier) VerifyDetached(data, signature []byte) error {
	var err error
	if bytes.HasPrefix(bytes.TrimSpace(signature), []byte(armoredSignatureHeader)) {
		_, err = openpgp.CheckArmoredDetachedSignature(v.keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	} else {
		_, err = openpgp.CheckDetachedSignature(v.keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	}
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}
