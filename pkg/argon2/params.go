package argon2

import (
	"encoding/binary"
	"fmt"
)

// Algorithm identifies an Argon2 variant.
type Algorithm string

const (
	// Argon2d uses data-dependent memory access. Fastest, but vulnerable to
	// side-channel attacks; not recommended for password hashing.
	Argon2d Algorithm = "argon2d"

	// Argon2i uses data-independent memory access, suitable for hashing
	// secret data where side channels are a concern.
	Argon2i Algorithm = "argon2i"

	// Argon2id is the hybrid recommended by RFC 9106 and OWASP.
	Argon2id Algorithm = "argon2id"
)

// Valid reports whether a names a known Argon2 variant.
func (a Algorithm) Valid() bool {
	switch a {
	case Argon2d, Argon2i, Argon2id:
		return true
	}
	return false
}

// Tag returns the variant's wire tag: a fixed 4-byte ASCII identifier
// ("d___", "i___", "id__", trailing underscores are padding) packed into a
// single little-endian uint32. This is the historical encoding the wasm
// guest matches byte-for-byte; it must not be changed.
//
// Tag returns 0 for an unknown algorithm; call Valid first.
func (a Algorithm) Tag() uint32 {
	switch a {
	case Argon2d:
		return binary.LittleEndian.Uint32([]byte("d___"))
	case Argon2i:
		return binary.LittleEndian.Uint32([]byte("i___"))
	case Argon2id:
		return binary.LittleEndian.Uint32([]byte("id__"))
	}
	return 0
}

// Version is the Argon2 specification version encoded into digests.
type Version uint32

const (
	// Version10 is the legacy 1.0 (0x10) version.
	Version10 Version = 0x10

	// Version13 is the current 1.3 (0x13) version, encoded as v=19.
	Version13 Version = 0x13
)

// Valid reports whether v is a version the guest accepts.
func (v Version) Valid() bool {
	return v == Version10 || v == Version13
}

// Default cost parameters. The argon2id values follow the OWASP password
// storage cheat sheet (19 MiB, 2 iterations); argon2i trades memory for an
// extra pass (12 MiB, 3 iterations), mirroring the same guidance.
const (
	DefaultMemory  uint32 = 19456
	DefaultTime    uint32 = 2
	DefaultThreads uint8  = 1

	// Argon2i-specific defaults.
	DefaultMemoryArgon2i uint32 = 12288
	DefaultTimeArgon2i   uint32 = 3

	// DefaultKeyLength is the digest output length in bytes.
	DefaultKeyLength uint32 = 32
)

// Salt length bounds accepted by hashers, in bytes.
const (
	MinSaltLength = 8
	MaxSaltLength = 64
)

// Params holds the Argon2 tuning knobs for a single hash operation.
//
// The zero value is usable: WithDefaults fills every unset field. Params is
// constructed per call and never mutated after the hasher reads it.
type Params struct {
	// Algorithm selects the Argon2 variant. Default: Argon2id.
	Algorithm Algorithm

	// Version selects the specification version. Default: Version13.
	Version Version

	// Memory is the memory cost in KiB. Minimum 8×Threads.
	Memory uint32

	// Time is the number of passes over memory. Minimum 1.
	Time uint32

	// Threads is the degree of parallelism. Minimum 1.
	Threads uint8

	// Secret is an optional keyed-hashing pepper mixed into the
	// computation. Nil or empty means no secret.
	Secret []byte
}

// WithDefaults returns a copy of p with every unset field replaced by its
// default. Argon2i gets different memory/time defaults than the other
// variants; parallelism is uniform.
func (p Params) WithDefaults() Params {
	if p.Algorithm == "" {
		p.Algorithm = Argon2id
	}
	if p.Version == 0 {
		p.Version = Version13
	}
	if p.Memory == 0 {
		if p.Algorithm == Argon2i {
			p.Memory = DefaultMemoryArgon2i
		} else {
			p.Memory = DefaultMemory
		}
	}
	if p.Time == 0 {
		if p.Algorithm == Argon2i {
			p.Time = DefaultTimeArgon2i
		} else {
			p.Time = DefaultTime
		}
	}
	if p.Threads == 0 {
		p.Threads = DefaultThreads
	}
	return p
}

// Validate checks that p describes a parameter set the guest will accept.
// It is called before any guest memory is touched, so a rejection here
// never requires cleanup.
func (p Params) Validate() error {
	if !p.Algorithm.Valid() {
		return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidParams, string(p.Algorithm))
	}
	if !p.Version.Valid() {
		return fmt.Errorf("%w: unknown version 0x%x", ErrInvalidParams, uint32(p.Version))
	}
	if p.Time < 1 {
		return fmt.Errorf("%w: time cost must be >= 1, got %d", ErrInvalidParams, p.Time)
	}
	if p.Threads < 1 {
		return fmt.Errorf("%w: parallelism must be >= 1, got %d", ErrInvalidParams, p.Threads)
	}
	if p.Memory < 8*uint32(p.Threads) {
		return fmt.Errorf("%w: memory cost (%d KiB) must be >= 8*threads (%d KiB)",
			ErrInvalidParams, p.Memory, 8*uint32(p.Threads))
	}
	return nil
}
