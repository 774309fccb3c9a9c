package wasm

import (
	"github.com/tetratelabs/wazero/api"
)

// Memory is a byte-addressable view over guest linear memory.
//
// The guest's backing buffer can relocate whenever an allocation grows it,
// so implementations must consult the module's current memory on every
// operation instead of caching a byte slice across calls. Slices returned
// by Read alias the backing buffer and are only valid until the next guest
// call; callers that keep data must copy it out first.
//
// All multi-byte scalars crossing the boundary are little-endian, matching
// the guest's compiled target.
type Memory interface {
	// Read returns length bytes at ptr, or false if out of range.
	Read(ptr, length uint32) ([]byte, bool)

	// Write copies data into guest memory at ptr.
	Write(ptr uint32, data []byte) bool

	// ReadUint32 reads a little-endian uint32 at ptr.
	ReadUint32(ptr uint32) (uint32, bool)

	// WriteUint32 writes a little-endian uint32 at ptr.
	WriteUint32(ptr uint32, v uint32) bool

	// Size returns the current memory size in bytes.
	Size() uint32
}

// moduleMemory adapts a wazero module's linear memory to Memory. It holds
// the module, not an api.Memory snapshot, so growth between operations is
// always observed.
type moduleMemory struct {
	mod api.Module
}

func (m moduleMemory) Read(ptr, length uint32) ([]byte, bool) {
	return m.mod.Memory().Read(ptr, length)
}

func (m moduleMemory) Write(ptr uint32, data []byte) bool {
	return m.mod.Memory().Write(ptr, data)
}

func (m moduleMemory) ReadUint32(ptr uint32) (uint32, bool) {
	return m.mod.Memory().ReadUint32Le(ptr)
}

func (m moduleMemory) WriteUint32(ptr uint32, v uint32) bool {
	return m.mod.Memory().WriteUint32Le(ptr, v)
}

func (m moduleMemory) Size() uint32 {
	return m.mod.Memory().Size()
}
