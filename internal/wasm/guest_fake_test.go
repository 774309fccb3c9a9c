package wasm

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	xargon2 "golang.org/x/crypto/argon2"

	"github.com/hashforge/argonbridge/pkg/argon2"
)

// fakeGuest is an in-process stand-in for the Argon2 wasm module. It owns a
// fixed linear memory with a bump allocator that tracks every live
// (ptr, size) pair, so tests can assert that the bridge frees exactly what
// it allocated — including after an injected guest panic.
//
// Hashing is computed with golang.org/x/crypto/argon2 so digests are real
// Argon2 output. Two deliberate test-double deviations: argon2d is computed
// as argon2id (x/crypto has no argon2d), and a secret is mixed in by
// appending it to the password. Both are self-consistent between Hash and
// Verify, which is all the bridge contract needs.
type fakeGuest struct {
	mem  []byte
	next uint32

	live       map[uint32]uint32
	allocCount int
	misuse     []string

	params struct {
		tag, version, mCost, tCost, pCost uint32
		set                               bool
	}

	lastHashSecret guestBuffer

	panicOnHash   string
	panicOnVerify string
}

func newFakeGuest() *fakeGuest {
	return &fakeGuest{
		mem:  make([]byte, 1<<20),
		next: 8,
		live: make(map[uint32]uint32),
	}
}

func (g *fakeGuest) liveCount() int {
	return len(g.live)
}

func (g *fakeGuest) Alloc(_ context.Context, size uint32) (uint32, error) {
	reserve := size
	if reserve == 0 {
		reserve = 1
	}
	aligned := (reserve + 7) &^ 7
	if g.next+aligned > uint32(len(g.mem)) {
		return 0, &MemoryAccessError{
			Operation: "alloc",
			Length:    size,
			Err:       fmt.Errorf("fake guest heap exhausted"),
		}
	}
	ptr := g.next
	g.next += aligned
	g.live[ptr] = size
	g.allocCount++
	return ptr, nil
}

func (g *fakeGuest) Dealloc(_ context.Context, ptr, size uint32) error {
	got, ok := g.live[ptr]
	if !ok {
		g.misuse = append(g.misuse, fmt.Sprintf("free of unallocated ptr %d (size %d)", ptr, size))
		return nil
	}
	if got != size {
		g.misuse = append(g.misuse, fmt.Sprintf("size mismatch freeing ptr %d: allocated %d, freed %d", ptr, got, size))
	}
	delete(g.live, ptr)
	return nil
}

func (g *fakeGuest) SetupParams(_ context.Context, tag, version, mCost, tCost, pCost uint32) error {
	g.params.tag = tag
	g.params.version = version
	g.params.mCost = mCost
	g.params.tCost = tCost
	g.params.pCost = pCost
	g.params.set = true
	return nil
}

func (g *fakeGuest) Hash(ctx context.Context, passwordPtr, passwordLen, saltPtr, saltLen, secretPtr, secretLen, outputLocPtr uint32) error {
	if g.panicOnHash != "" {
		return &GuestPanicError{Message: g.panicOnHash}
	}
	if !g.params.set {
		return &GuestPanicError{Message: "parameters not set"}
	}

	g.lastHashSecret = guestBuffer{ptr: secretPtr, size: secretLen}

	alg, err := g.algorithm()
	if err != nil {
		return err
	}

	password := g.slice(passwordPtr, passwordLen)
	salt := g.slice(saltPtr, saltLen)
	if secretPtr != 0 {
		password = append(append([]byte{}, password...), g.slice(secretPtr, secretLen)...)
	}

	d := argon2.Digest{
		Algorithm: alg,
		Version:   argon2.Version(g.params.version),
		Memory:    g.params.mCost,
		Time:      g.params.tCost,
		Threads:   uint8(g.params.pCost),
		Salt:      append([]byte{}, salt...),
		Output:    g.derive(alg, password, salt, g.params.tCost, g.params.mCost, uint8(g.params.pCost), 32),
	}

	out := append([]byte(d.String()), 0)
	ptr, err := g.Alloc(ctx, uint32(len(out)))
	if err != nil {
		return err
	}
	copy(g.mem[ptr:], out)
	binary.LittleEndian.PutUint32(g.mem[outputLocPtr:], ptr)
	return nil
}

func (g *fakeGuest) Verify(_ context.Context, digestPtr, digestLen, passwordPtr, passwordLen, secretPtr, secretLen, matchesPtr uint32) error {
	if g.panicOnVerify != "" {
		return &GuestPanicError{Message: g.panicOnVerify}
	}

	d, err := argon2.ParseDigest(string(g.slice(digestPtr, digestLen)))
	if err != nil {
		return &GuestPanicError{Message: "Invalid digest format"}
	}

	password := g.slice(passwordPtr, passwordLen)
	if secretPtr != 0 {
		password = append(append([]byte{}, password...), g.slice(secretPtr, secretLen)...)
	}

	computed := g.derive(d.Algorithm, password, d.Salt, d.Time, d.Memory, d.Threads, uint32(len(d.Output)))

	var matches uint32
	if bytes.Equal(computed, d.Output) {
		matches = 1
	}
	binary.LittleEndian.PutUint32(g.mem[matchesPtr:], matches)
	return nil
}

func (g *fakeGuest) Memory() Memory {
	return g
}

func (g *fakeGuest) Read(ptr, length uint32) ([]byte, bool) {
	if uint64(ptr)+uint64(length) > uint64(len(g.mem)) {
		return nil, false
	}
	return g.mem[ptr : ptr+length], true
}

func (g *fakeGuest) Write(ptr uint32, data []byte) bool {
	if uint64(ptr)+uint64(len(data)) > uint64(len(g.mem)) {
		return false
	}
	copy(g.mem[ptr:], data)
	return true
}

func (g *fakeGuest) ReadUint32(ptr uint32) (uint32, bool) {
	if uint64(ptr)+4 > uint64(len(g.mem)) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(g.mem[ptr:]), true
}

func (g *fakeGuest) WriteUint32(ptr uint32, v uint32) bool {
	if uint64(ptr)+4 > uint64(len(g.mem)) {
		return false
	}
	binary.LittleEndian.PutUint32(g.mem[ptr:], v)
	return true
}

func (g *fakeGuest) Size() uint32 {
	return uint32(len(g.mem))
}

// algorithm decodes the tag register the way the guest does, panicking on
// an unknown tag.
func (g *fakeGuest) algorithm() (argon2.Algorithm, error) {
	switch g.params.tag {
	case argon2.Argon2d.Tag():
		return argon2.Argon2d, nil
	case argon2.Argon2i.Tag():
		return argon2.Argon2i, nil
	case argon2.Argon2id.Tag():
		return argon2.Argon2id, nil
	}
	return "", &GuestPanicError{Message: "Invalid algorithm"}
}

func (g *fakeGuest) derive(alg argon2.Algorithm, password, salt []byte, time, memory uint32, threads uint8, keyLen uint32) []byte {
	if alg == argon2.Argon2i {
		return xargon2.Key(password, salt, time, memory, threads, keyLen)
	}
	return xargon2.IDKey(password, salt, time, memory, threads, keyLen)
}

// slice returns a copy of guest memory, mirroring how the bridge must treat
// views.
func (g *fakeGuest) slice(ptr, length uint32) []byte {
	return append([]byte{}, g.mem[ptr:ptr+length]...)
}
