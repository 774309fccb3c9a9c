package argon2_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hashforge/argonbridge/pkg/argon2"
)

// fastNativeParams keeps test hashing cheap. Deliberately weak costs.
func fastNativeParams() *argon2.Params {
	return &argon2.Params{
		Algorithm: argon2.Argon2id,
		Memory:    16,
		Time:      1,
		Threads:   1,
	}
}

func TestNativeRoundTrip(t *testing.T) {
	native := argon2.NewNative()
	ctx := context.Background()

	for _, alg := range []argon2.Algorithm{argon2.Argon2i, argon2.Argon2id} {
		t.Run(string(alg), func(t *testing.T) {
			params := &argon2.Params{Algorithm: alg, Memory: 16, Time: 1, Threads: 1}

			digest, err := native.Hash(ctx, []byte("hunter2"), []byte("0123456789abcdef"), params)
			if err != nil {
				t.Fatalf("Hash: %v", err)
			}

			ok, err := native.Verify(ctx, digest, []byte("hunter2"), nil)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if !ok {
				t.Error("Verify = false for the hashed password")
			}

			ok, err = native.Verify(ctx, digest, []byte("hunter3"), nil)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if ok {
				t.Error("Verify = true for a different password")
			}
		})
	}
}

func TestNativeKnownAnswer(t *testing.T) {
	native := argon2.NewNative()

	digest, err := native.Hash(context.Background(),
		[]byte("here's a very cool password"),
		[]byte("xenon2's so cool"),
		&argon2.Params{
			Algorithm: argon2.Argon2id,
			Version:   argon2.Version13,
			Memory:    65536,
			Time:      2,
			Threads:   1,
		})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	const want = "$argon2id$v=19$m=65536,t=2,p=1$eGVub24yJ3Mgc28gY29vbA$l2g9IkHxa2w5HAL0YuofExQCjELI/9wyYkmrNHhoa28"
	if digest != want {
		t.Errorf("known-answer digest mismatch:\ngot  %s\nwant %s", digest, want)
	}
}

func TestNativeDefaulting(t *testing.T) {
	native := argon2.NewNative()
	ctx := context.Background()

	salt := []byte("0123456789abcdef")
	implicit, err := native.Hash(ctx, []byte("pw"), salt, nil)
	if err != nil {
		t.Fatalf("Hash with nil params: %v", err)
	}

	explicit, err := native.Hash(ctx, []byte("pw"), salt, &argon2.Params{
		Algorithm: argon2.Argon2id,
		Version:   argon2.Version13,
		Memory:    19456,
		Time:      2,
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("Hash with explicit defaults: %v", err)
	}

	if implicit != explicit {
		t.Errorf("nil-params digest differs from explicit defaults:\n%s\n%s", implicit, explicit)
	}
}

func TestNativeUnsupported(t *testing.T) {
	native := argon2.NewNative()
	ctx := context.Background()
	salt := []byte("0123456789abcdef")

	tests := []struct {
		name   string
		hash   func() error
	}{
		{"argon2d", func() error {
			_, err := native.Hash(ctx, []byte("pw"), salt,
				&argon2.Params{Algorithm: argon2.Argon2d, Memory: 16, Time: 1, Threads: 1})
			return err
		}},
		{"legacy version", func() error {
			_, err := native.Hash(ctx, []byte("pw"), salt,
				&argon2.Params{Version: argon2.Version10, Memory: 16, Time: 1, Threads: 1})
			return err
		}},
		{"secret", func() error {
			_, err := native.Hash(ctx, []byte("pw"), salt,
				&argon2.Params{Memory: 16, Time: 1, Threads: 1, Secret: []byte("pepper")})
			return err
		}},
		{"verify with secret", func() error {
			_, err := native.Verify(ctx, "$argon2id$v=19$m=16,t=1,p=1$c2FsdHNhbHQ$aGFzaA",
				[]byte("pw"), []byte("pepper"))
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.hash(); !errors.Is(err, argon2.ErrUnsupported) {
				t.Errorf("error = %v, want ErrUnsupported", err)
			}
		})
	}
}

func TestNativeRejectsBadArguments(t *testing.T) {
	native := argon2.NewNative()
	ctx := context.Background()

	if _, err := native.Hash(ctx, []byte("pw"), []byte("abc"), fastNativeParams()); !errors.Is(err, argon2.ErrInvalidArgument) {
		t.Errorf("short salt: error = %v, want ErrInvalidArgument", err)
	}
	if _, err := native.Hash(ctx, []byte("pw"), []byte("0123456789abcdef"),
		&argon2.Params{Memory: 4, Time: 1, Threads: 1}); !errors.Is(err, argon2.ErrInvalidParams) {
		t.Errorf("bad memory: error = %v, want ErrInvalidParams", err)
	}
	if _, err := native.Verify(ctx, "not a digest", []byte("pw"), nil); !errors.Is(err, argon2.ErrInvalidDigest) {
		t.Errorf("bad digest: error = %v, want ErrInvalidDigest", err)
	}
}
