package argon2

import (
	"context"
	"crypto/subtle"
	"fmt"

	xargon2 "golang.org/x/crypto/argon2"
)

// Native is an in-process Hasher backed by golang.org/x/crypto/argon2.
//
// It covers argon2i and argon2id at version 0x13 without a secret; anything
// outside that surface (argon2d, version 0x10, keyed hashing) needs the
// wasm-backed bridge and is reported as ErrUnsupported here. Native is
// stateless and safe for concurrent use.
type Native struct{}

// NewNative returns the in-process engine.
func NewNative() *Native {
	return &Native{}
}

// Hash derives a PHC digest for password with the given salt.
func (n *Native) Hash(ctx context.Context, password, salt []byte, params *Params) (string, error) {
	p := Params{}
	if params != nil {
		p = *params
	}
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return "", err
	}
	if err := ValidateSalt(salt); err != nil {
		return "", err
	}
	if len(p.Secret) > 0 {
		return "", fmt.Errorf("%w: keyed hashing (secret)", ErrUnsupported)
	}

	output, err := nativeKey(p.Algorithm, p.Version, password, salt, p.Time, p.Memory, p.Threads)
	if err != nil {
		return "", err
	}

	d := Digest{
		Algorithm: p.Algorithm,
		Version:   p.Version,
		Memory:    p.Memory,
		Time:      p.Time,
		Threads:   p.Threads,
		Salt:      salt,
		Output:    output,
	}
	return d.String(), nil
}

// Verify recomputes the digest with the parameters stored in it and compares
// in constant time.
func (n *Native) Verify(ctx context.Context, digest string, password, secret []byte) (bool, error) {
	if len(secret) > 0 {
		return false, fmt.Errorf("%w: keyed hashing (secret)", ErrUnsupported)
	}

	d, err := ParseDigest(digest)
	if err != nil {
		return false, err
	}

	computed, err := nativeKeyLen(d.Algorithm, d.Version, password, d.Salt,
		d.Time, d.Memory, d.Threads, uint32(len(d.Output)))
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(computed, d.Output) == 1, nil
}

func nativeKey(alg Algorithm, version Version, password, salt []byte, time, memory uint32, threads uint8) ([]byte, error) {
	return nativeKeyLen(alg, version, password, salt, time, memory, threads, DefaultKeyLength)
}

func nativeKeyLen(alg Algorithm, version Version, password, salt []byte, time, memory uint32, threads uint8, keyLen uint32) ([]byte, error) {
	if version != Version13 {
		return nil, fmt.Errorf("%w: version 0x%x", ErrUnsupported, uint32(version))
	}
	switch alg {
	case Argon2i:
		return xargon2.Key(password, salt, time, memory, threads, keyLen), nil
	case Argon2id:
		return xargon2.IDKey(password, salt, time, memory, threads, keyLen), nil
	case Argon2d:
		return nil, fmt.Errorf("%w: argon2d", ErrUnsupported)
	}
	return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidParams, string(alg))
}
