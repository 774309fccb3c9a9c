// Package argon2 defines the public Argon2 hashing surface: parameter sets
// with OWASP-aligned defaults, the PHC digest codec, and the Hasher
// interface implemented by both the in-process engine (Native) and the
// wasm-backed bridge in internal/wasm.
package argon2

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// Sentinel errors returned by hashers. Wrapped errors carry detail; match
// with errors.Is.
var (
	// ErrInvalidParams reports a parameter set the algorithm rejects.
	ErrInvalidParams = errors.New("argon2: invalid parameters")

	// ErrInvalidArgument reports a host-supplied buffer that cannot be
	// hashed (e.g. an out-of-range salt). Raised before any work happens.
	ErrInvalidArgument = errors.New("argon2: invalid argument")

	// ErrInvalidDigest reports a digest string that does not parse as a
	// PHC-formatted Argon2 record.
	ErrInvalidDigest = errors.New("argon2: invalid digest")

	// ErrUnsupported reports a feature the selected engine cannot provide
	// (the native engine lacks argon2d, version 0x10, and secrets).
	ErrUnsupported = errors.New("argon2: unsupported by this engine")
)

// Hasher produces and verifies PHC-formatted Argon2 digests.
//
// Implementations are safe for concurrent use. Hash and Verify either
// succeed or fail the whole call; there is no partial result and no retry.
type Hasher interface {
	// Hash derives a digest for password with the given salt. A nil params
	// is equivalent to a zero Params: every field takes its default.
	Hash(ctx context.Context, password, salt []byte, params *Params) (string, error)

	// Verify reports whether password (and optional secret) matches the
	// PHC digest. The cost parameters are read from the digest itself.
	Verify(ctx context.Context, digest string, password, secret []byte) (bool, error)
}

// ValidateSalt rejects salts outside the accepted length bounds before any
// hashing work is done.
func ValidateSalt(salt []byte) error {
	if len(salt) < MinSaltLength || len(salt) > MaxSaltLength {
		return fmt.Errorf("%w: salt must be %d-%d bytes, got %d",
			ErrInvalidArgument, MinSaltLength, MaxSaltLength, len(salt))
	}
	return nil
}

// RandomSalt returns n cryptographically random bytes.
func RandomSalt(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("argon2: failed to generate salt: %w", err)
	}
	return b, nil
}
