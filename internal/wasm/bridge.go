package wasm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hashforge/argonbridge/pkg/argon2"
)

// guest is the exported call surface of the Argon2 wasm module. *Instance
// is the production implementation; tests substitute an in-process fake.
type guest interface {
	Alloc(ctx context.Context, size uint32) (uint32, error)
	Dealloc(ctx context.Context, ptr, size uint32) error
	SetupParams(ctx context.Context, tag, version, mCost, tCost, pCost uint32) error
	Hash(ctx context.Context, passwordPtr, passwordLen, saltPtr, saltLen, secretPtr, secretLen, outputLocPtr uint32) error
	Verify(ctx context.Context, digestPtr, digestLen, passwordPtr, passwordLen, secretPtr, secretLen, matchesPtr uint32) error
	Memory() Memory
}

// guestBuffer is a handle to a guest-owned byte region. The zero value
// means "absent": it is returned for a missing optional buffer and must
// never be passed to Dealloc.
type guestBuffer struct {
	ptr  uint32
	size uint32
}

func (b guestBuffer) absent() bool {
	return b.ptr == 0 && b.size == 0
}

// pointerSize is the width of a guest pointer slot.
const pointerSize = 4

// cstringScanChunk is the read granularity when scanning for the digest's
// null terminator.
const cstringScanChunk = 256

// Bridge marshals hash/verify calls into the Argon2 guest: it encodes
// parameters into the guest's register layout, copies inputs into guest
// linear memory, invokes the entry point, reads back the null-terminated
// result, and releases every guest allocation it made — on the success path
// and when the guest panics mid-call.
//
// The guest keeps a single shared parameter register set, so the
// (setup_params, entry point) pair must never interleave between two
// invocations. Bridge serializes each whole call under one mutex, which
// also matches the guest's single-threaded execution model. Bridge
// implements argon2.Hasher.
type Bridge struct {
	guest  guest
	logger *zap.Logger

	// mu makes parameter encoding and the entry-point call one atomic
	// region per invocation.
	mu sync.Mutex
}

// NewBridge wraps an instantiated guest module.
func NewBridge(instance *Instance, logger *zap.Logger) *Bridge {
	return newBridge(instance, logger)
}

func newBridge(g guest, logger *zap.Logger) *Bridge {
	return &Bridge{
		guest:  g,
		logger: logger.With(zap.String("component", "wasm-bridge")),
	}
}

// Hash derives a PHC digest for password with the given salt by driving the
// guest hash entry point. A nil params takes every default.
//
// Every guest allocation made during the call is freed before Hash returns,
// whether the call succeeds or the guest panics after some inputs were
// already transferred.
func (b *Bridge) Hash(ctx context.Context, password, salt []byte, params *argon2.Params) (digest string, err error) {
	p := argon2.Params{}
	if params != nil {
		p = *params
	}
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return "", err
	}
	if err := argon2.ValidateSalt(salt); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.guest.SetupParams(ctx, p.Algorithm.Tag(), uint32(p.Version),
		p.Memory, p.Time, uint32(p.Threads)); err != nil {
		return "", err
	}

	var held []guestBuffer
	defer func() {
		b.release(ctx, held)
	}()

	passwordBuf, err := b.transfer(ctx, password)
	if err != nil {
		return "", err
	}
	held = append(held, passwordBuf)

	saltBuf, err := b.transfer(ctx, salt)
	if err != nil {
		return "", err
	}
	held = append(held, saltBuf)

	secretBuf, err := b.maybeTransfer(ctx, p.Secret)
	if err != nil {
		return "", err
	}
	held = append(held, secretBuf)

	outputLoc, err := b.allocSlot(ctx)
	if err != nil {
		return "", err
	}
	held = append(held, outputLoc)

	if err := b.guest.Hash(ctx,
		passwordBuf.ptr, passwordBuf.size,
		saltBuf.ptr, saltBuf.size,
		secretBuf.ptr, secretBuf.size,
		outputLoc.ptr); err != nil {
		return "", err
	}

	return b.readOutput(ctx, outputLoc.ptr)
}

// Verify drives the guest verify entry point and reports whether password
// (and optional secret) matches the digest. The digest is forwarded as an
// opaque byte buffer; the guest parses it.
func (b *Bridge) Verify(ctx context.Context, digest string, password, secret []byte) (matched bool, err error) {
	if digest == "" {
		return false, fmt.Errorf("%w: empty digest", argon2.ErrInvalidDigest)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var held []guestBuffer
	defer func() {
		b.release(ctx, held)
	}()

	digestBuf, err := b.transfer(ctx, []byte(digest))
	if err != nil {
		return false, err
	}
	held = append(held, digestBuf)

	passwordBuf, err := b.transfer(ctx, password)
	if err != nil {
		return false, err
	}
	held = append(held, passwordBuf)

	secretBuf, err := b.maybeTransfer(ctx, secret)
	if err != nil {
		return false, err
	}
	held = append(held, secretBuf)

	matchesSlot, err := b.allocSlot(ctx)
	if err != nil {
		return false, err
	}
	held = append(held, matchesSlot)

	if err := b.guest.Verify(ctx,
		digestBuf.ptr, digestBuf.size,
		passwordBuf.ptr, passwordBuf.size,
		secretBuf.ptr, secretBuf.size,
		matchesSlot.ptr); err != nil {
		return false, err
	}

	matches, ok := b.guest.Memory().ReadUint32(matchesSlot.ptr)
	if !ok {
		return false, &MemoryAccessError{
			Operation: "read",
			Address:   matchesSlot.ptr,
			Length:    pointerSize,
			Err:       errors.New("matches slot out of range"),
		}
	}

	return matches != 0, nil
}

// transfer copies a host buffer into freshly allocated guest memory and
// returns the handle. The caller owns the handle until it frees it.
func (b *Bridge) transfer(ctx context.Context, data []byte) (guestBuffer, error) {
	size := uint32(len(data))
	ptr, err := b.guest.Alloc(ctx, size)
	if err != nil {
		return guestBuffer{}, err
	}
	if !b.guest.Memory().Write(ptr, data) {
		// Undo the allocation we just made; nothing else references it.
		if derr := b.guest.Dealloc(ctx, ptr, size); derr != nil {
			b.logger.Warn("Failed to free guest buffer after write failure", zap.Error(derr))
		}
		return guestBuffer{}, &MemoryAccessError{
			Operation: "write",
			Address:   ptr,
			Length:    size,
			Err:       errors.New("write out of range"),
		}
	}
	return guestBuffer{ptr: ptr, size: size}, nil
}

// maybeTransfer transfers an optional buffer. An absent (nil or empty)
// buffer yields the zero handle without touching the guest allocator; the
// guest reads a null pointer as "no secret".
func (b *Bridge) maybeTransfer(ctx context.Context, data []byte) (guestBuffer, error) {
	if len(data) == 0 {
		return guestBuffer{}, nil
	}
	return b.transfer(ctx, data)
}

// allocSlot allocates a zeroed 4-byte guest region used as an out-parameter
// slot (output-location pointer, match result).
func (b *Bridge) allocSlot(ctx context.Context) (guestBuffer, error) {
	ptr, err := b.guest.Alloc(ctx, pointerSize)
	if err != nil {
		return guestBuffer{}, err
	}
	// The guest allocator does not zero memory.
	if !b.guest.Memory().WriteUint32(ptr, 0) {
		if derr := b.guest.Dealloc(ctx, ptr, pointerSize); derr != nil {
			b.logger.Warn("Failed to free guest slot after write failure", zap.Error(derr))
		}
		return guestBuffer{}, &MemoryAccessError{
			Operation: "write",
			Address:   ptr,
			Length:    pointerSize,
			Err:       errors.New("slot out of range"),
		}
	}
	return guestBuffer{ptr: ptr, size: pointerSize}, nil
}

// readOutput decodes the hash result: the guest wrote a pointer to a
// null-terminated digest string at outputLocPtr. The digest region is freed
// with length+1 to account for the terminator the guest allocated.
func (b *Bridge) readOutput(ctx context.Context, outputLocPtr uint32) (string, error) {
	mem := b.guest.Memory()

	outputPtr, ok := mem.ReadUint32(outputLocPtr)
	if !ok {
		return "", &MemoryAccessError{
			Operation: "read",
			Address:   outputLocPtr,
			Length:    pointerSize,
			Err:       errors.New("output location out of range"),
		}
	}

	length, ok := cstringLen(mem, outputPtr)
	if !ok {
		return "", &MemoryAccessError{
			Operation: "scan",
			Address:   outputPtr,
			Err:       errors.New("unterminated output string"),
		}
	}

	view, ok := mem.Read(outputPtr, length)
	if !ok {
		return "", &MemoryAccessError{
			Operation: "read",
			Address:   outputPtr,
			Length:    length,
			Err:       errors.New("output out of range"),
		}
	}
	// The view aliases guest memory; copy before the dealloc call below.
	digest := string(view)

	if err := b.guest.Dealloc(ctx, outputPtr, length+1); err != nil {
		return "", err
	}

	return digest, nil
}

// release frees every held guest buffer, skipping absent handles. Dealloc
// failures are logged, not propagated: release runs on error paths where
// the original error matters more.
func (b *Bridge) release(ctx context.Context, buffers []guestBuffer) {
	for _, buf := range buffers {
		if buf.absent() {
			continue
		}
		if err := b.guest.Dealloc(ctx, buf.ptr, buf.size); err != nil {
			b.logger.Warn("Failed to free guest buffer",
				zap.Uint32("ptr", buf.ptr),
				zap.Uint32("size", buf.size),
				zap.Error(err),
			)
		}
	}
}

// cstringLen scans guest memory forward from ptr for the first zero byte
// and returns the string length excluding the terminator. The digest is
// guaranteed printable, so a zero byte is an unambiguous terminator.
func cstringLen(mem Memory, ptr uint32) (uint32, bool) {
	var n uint32
	memSize := mem.Size()
	for {
		if ptr+n >= memSize {
			return 0, false
		}
		chunk := uint32(cstringScanChunk)
		if remaining := memSize - (ptr + n); chunk > remaining {
			chunk = remaining
		}
		buf, ok := mem.Read(ptr+n, chunk)
		if !ok {
			return 0, false
		}
		if i := bytes.IndexByte(buf, 0); i >= 0 {
			return n + uint32(i), true
		}
		n += uint32(len(buf))
	}
}
