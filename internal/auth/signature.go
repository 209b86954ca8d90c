package auth

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/roomiesplit/pkg/keys"
)

// DefaultLoginSkew is how far a login's issued_at may drift from the server clock.
const DefaultLoginSkew = 5 * time.Minute

var (
	ErrInvalidSignature = errors.New("invalid login signature")
	ErrStaleLogin       = errors.New("login issued_at outside the accepted window")
)

// LoginMessage is the exact byte string a client signs to log in.
func LoginMessage(identity keys.Identity, issuedAt int64) []byte {
	return []byte(fmt.Sprintf("roomiesplit login %s %d", identity, issuedAt))
}

// SignLogin signs the login message for the key's identity. Clients and
// tests use it; the server only verifies.
func SignLogin(priv ed25519.PrivateKey, issuedAt int64) (keys.Identity, []byte, error) {
	identity, err := keys.IdentityFromPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return keys.Identity{}, nil, err
	}
	return identity, ed25519.Sign(priv, LoginMessage(identity, issuedAt)), nil
}

// SignatureAuthenticator accepts an ed25519 signature over LoginMessage.
type SignatureAuthenticator struct {
	skew time.Duration
	now  func() time.Time
}

// NewSignatureAuthenticator creates an authenticator that accepts logins
// issued within skew of the current time. A non-positive skew uses
// DefaultLoginSkew.
func NewSignatureAuthenticator(skew time.Duration) *SignatureAuthenticator {
	if skew <= 0 {
		skew = DefaultLoginSkew
	}
	return &SignatureAuthenticator{skew: skew, now: time.Now}
}

// Authenticate checks the issued_at window and then the signature.
func (a *SignatureAuthenticator) Authenticate(_ context.Context, identity keys.Identity, issuedAt int64, signature []byte) error {
	drift := a.now().Sub(time.Unix(issuedAt, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > a.skew {
		return fmt.Errorf("%w: drift %s exceeds %s", ErrStaleLogin, drift, a.skew)
	}

	if len(signature) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}
	if !ed25519.Verify(identity.PublicKey(), LoginMessage(identity, issuedAt), signature) {
		return ErrInvalidSignature
	}
	return nil
}
