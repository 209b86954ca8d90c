// Package keys defines caller identities and the deterministic record keys
// derived from them.
//
// Identities are ed25519 public keys. Record keys are SHA-256 digests over a
// namespace tag and a list of seeds, so a client can compute the key of a
// group or expense before the record exists. Both render as base58 text.
package keys

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// IdentitySize is the byte length of an Identity.
const IdentitySize = ed25519.PublicKeySize

var ErrInvalidIdentity = errors.New("invalid identity")

// Identity is the ed25519 public key of a caller.
type Identity [IdentitySize]byte

// IdentityFromPublicKey converts an ed25519 public key into an Identity.
func IdentityFromPublicKey(pub ed25519.PublicKey) (Identity, error) {
	var id Identity
	if len(pub) != IdentitySize {
		return id, errors.Wrapf(ErrInvalidIdentity, "public key has %d bytes", len(pub))
	}
	copy(id[:], pub)
	return id, nil
}

// ParseIdentity decodes a base58 identity.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw, err := base58.Decode(s)
	if err != nil {
		return id, errors.Wrapf(ErrInvalidIdentity, "decode %q: %v", s, err)
	}
	return IdentityFromPublicKey(raw)
}

// PublicKey returns the identity as an ed25519 public key.
func (i Identity) PublicKey() ed25519.PublicKey {
	return ed25519.PublicKey(i[:])
}

func (i Identity) String() string {
	return base58.Encode(i[:])
}

func (i Identity) IsZero() bool {
	return i == Identity{}
}

func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
