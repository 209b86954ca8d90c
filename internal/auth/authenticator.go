package auth

import (
	"context"

	"github.com/mmynk/roomiesplit/pkg/keys"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping login methods without changing the
// service layer code.
type Authenticator interface {
	// Authenticate proves that the caller controls identity. The proof
	// format depends on the implementation.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, identity keys.Identity, issuedAt int64, proof []byte) error
}
