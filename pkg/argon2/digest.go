package argon2

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Digest holds the components of a PHC-formatted Argon2 record:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt_base64>$<output_base64>
//
// Base64 segments use the standard alphabet without padding (RFC 4648 §5
// minus "="), the convention shared by the Argon2 reference implementation
// and the wasm guest. A Digest round-trips exactly through String and
// ParseDigest.
type Digest struct {
	Algorithm Algorithm
	Version   Version
	Memory    uint32
	Time      uint32
	Threads   uint8
	Salt      []byte
	Output    []byte
}

// String serialises d in PHC string format.
func (d *Digest) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		string(d.Algorithm),
		uint32(d.Version),
		d.Memory,
		d.Time,
		d.Threads,
		base64.RawStdEncoding.EncodeToString(d.Salt),
		base64.RawStdEncoding.EncodeToString(d.Output),
	)
}

// ParseDigest parses a PHC-formatted Argon2 digest string.
//
// Expected layout: 6 dollar-delimited segments, the first empty:
//
//	$<variant>$v=<version>$m=<m>,t=<t>,p=<p>$<salt>$<output>
func ParseDigest(encoded string) (*Digest, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 5-segment PHC string, got %d segments",
			ErrInvalidDigest, len(parts)-1)
	}

	alg := Algorithm(parts[1])
	if !alg.Valid() {
		return nil, fmt.Errorf("%w: unknown variant %q", ErrInvalidDigest, parts[1])
	}

	version, err := parseKV(parts[2], "v")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}

	costs, err := parseCosts(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
	memory, ok1 := costs["m"]
	time, ok2 := costs["t"]
	threads, ok3 := costs["p"]
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: missing m/t/p in cost segment %q", ErrInvalidDigest, parts[3])
	}
	if threads < 1 || threads > 255 {
		return nil, fmt.Errorf("%w: parallelism %d out of range", ErrInvalidDigest, threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid salt base64: %v", ErrInvalidDigest, err)
	}

	output, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid output base64: %v", ErrInvalidDigest, err)
	}

	return &Digest{
		Algorithm: alg,
		Version:   Version(version),
		Memory:    uint32(memory),
		Time:      uint32(time),
		Threads:   uint8(threads),
		Salt:      salt,
		Output:    output,
	}, nil
}

// parseKV parses a "key=value" segment and returns the numeric value.
func parseKV(s, key string) (uint64, error) {
	prefix := key + "="
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("expected %q prefix in %q", prefix, s)
	}
	return strconv.ParseUint(s[len(prefix):], 10, 32)
}

// parseCosts splits "m=19456,t=2,p=1" into a map.
func parseCosts(s string) (map[string]uint64, error) {
	out := make(map[string]uint64)
	for _, kv := range strings.Split(s, ",") {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("malformed cost %q", kv)
		}
		v, err := strconv.ParseUint(kv[eq+1:], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("non-numeric value in %q: %v", kv, err)
		}
		out[kv[:eq]] = v
	}
	return out, nil
}
