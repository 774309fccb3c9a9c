package wasm

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// panicRelay implements the single host import the guest requires:
// env.panic(ptr, len). The guest calls it to report an unrecoverable
// condition (invalid parameter combination, corrupt digest, allocator
// exhaustion) and never resumes afterwards — its panic handler spins
// forever — so the relay must unwind the in-flight wasm call from the host
// side.
type panicRelay struct {
	logger *zap.Logger

	mu      sync.Mutex
	pending *GuestPanicError
}

func newPanicRelay(logger *zap.Logger) *panicRelay {
	return &panicRelay{
		logger: logger.With(zap.String("component", "wasm-panic-relay")),
	}
}

// raise is exported to the guest as env.panic. It decodes the UTF-8 message
// from guest memory, best-effort frees the message region, records the
// failure, and panics to unwind the guest call stack. Instance.call
// recovers the unwound call and surfaces the recorded error.
func (r *panicRelay) raise(ctx context.Context, mod api.Module, ptr, length uint32) {
	message := "unknown guest panic"
	if buf, ok := mod.Memory().Read(ptr, length); ok {
		message = string(buf)
	} else {
		r.logger.Error("Failed to read guest panic message",
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
		)
	}

	// The message was allocated by the guest's own allocator; release it
	// before unwinding. The guest is already wedged, so a failure here is
	// only worth a log line.
	if dealloc := mod.ExportedFunction("dealloc"); dealloc != nil {
		if _, err := dealloc.Call(ctx, uint64(ptr), uint64(length)); err != nil {
			r.logger.Warn("Failed to free guest panic message", zap.Error(err))
		}
	}

	guestErr := &GuestPanicError{Message: message}

	r.mu.Lock()
	r.pending = guestErr
	r.mu.Unlock()

	r.logger.Error("Guest panic", zap.String("message", message))

	panic(guestErr)
}

// take returns and clears the recorded panic, if any.
func (r *panicRelay) take() *GuestPanicError {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.pending
	r.pending = nil
	return p
}
