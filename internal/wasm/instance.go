package wasm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// Guest export names the bridge depends on.
const (
	exportAlloc       = "alloc"
	exportDealloc     = "dealloc"
	exportSetupParams = "setup_params"
	exportHash        = "hash"
	exportVerify      = "verify"
)

// RequiredExports lists every function the Argon2 guest must export.
var RequiredExports = []string{
	exportAlloc,
	exportDealloc,
	exportSetupParams,
	exportHash,
	exportVerify,
}

// hostModuleName is the import namespace the guest expects its panic
// callback under.
const hostModuleName = "env"

// Instance is an instantiated Argon2 guest module. It exposes the guest's
// export surface as typed Go methods and converts guest panics relayed
// through env.panic into *GuestPanicError values.
//
// A wazero runtime hosts a single Instance: the env host module backing the
// panic relay is registered once per runtime.
type Instance struct {
	module api.Module
	relay  *panicRelay
	logger *zap.Logger

	// Exported functions, resolved once at instantiation.
	alloc       api.Function
	dealloc     api.Function
	setupParams api.Function
	hash        api.Function
	verify      api.Function
}

// NewInstance instantiates a compiled Argon2 guest in the runtime, wiring
// the env.panic host import and resolving the required exports.
func NewInstance(ctx context.Context, runtime *Runtime, compiled *CompiledModule, logger *zap.Logger) (*Instance, error) {
	relay := newPanicRelay(logger)

	_, err := runtime.runtime.NewHostModuleBuilder(hostModuleName).
		NewFunctionBuilder().
		WithFunc(relay.raise).
		WithParameterNames("ptr", "len").
		Export("panic").
		Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate host module: %w", err)
	}

	moduleConfig := wazero.NewModuleConfig().
		WithName(compiled.Name).
		WithStartFunctions() // the guest has no _start

	module, err := runtime.runtime.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		return nil, &InstantiationError{
			ModuleName: compiled.Name,
			Err:        err,
		}
	}

	if module.Memory() == nil {
		_ = module.Close(ctx)
		return nil, &InstantiationError{
			ModuleName: compiled.Name,
			Err:        errors.New("module does not export linear memory"),
		}
	}

	inst := &Instance{
		module: module,
		relay:  relay,
		logger: logger.With(zap.String("component", "wasm-instance")),
	}

	for _, bind := range []struct {
		name string
		fn   *api.Function
	}{
		{exportAlloc, &inst.alloc},
		{exportDealloc, &inst.dealloc},
		{exportSetupParams, &inst.setupParams},
		{exportHash, &inst.hash},
		{exportVerify, &inst.verify},
	} {
		f := module.ExportedFunction(bind.name)
		if f == nil {
			_ = module.Close(ctx)
			return nil, &FunctionNotFoundError{
				ModuleName:   compiled.Name,
				FunctionName: bind.name,
			}
		}
		*bind.fn = f
	}

	inst.logger.Info("Guest module instantiated",
		zap.String("module", compiled.Name),
		zap.Uint32("memory_bytes", module.Memory().Size()),
	)

	return inst, nil
}

// Close releases the instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.module.Close(ctx)
}

// Memory returns a growth-safe view over the guest's linear memory.
func (i *Instance) Memory() Memory {
	return moduleMemory{mod: i.module}
}

// call invokes a guest export and converts a relayed guest panic into the
// recorded *GuestPanicError. wazero wraps the host-side panic value when it
// unwinds the call stack, so the relay's recorded error is the reliable
// channel, not the returned error chain.
func (i *Instance) call(ctx context.Context, name string, fn api.Function, params ...uint64) ([]uint64, error) {
	results, err := fn.Call(ctx, params...)
	if err != nil {
		if p := i.relay.take(); p != nil {
			return nil, p
		}
		return nil, fmt.Errorf("call to guest '%s' failed: %w", name, err)
	}
	return results, nil
}

// Alloc requests a guest-owned region of exactly size bytes.
func (i *Instance) Alloc(ctx context.Context, size uint32) (uint32, error) {
	results, err := i.call(ctx, exportAlloc, i.alloc, uint64(size))
	if err != nil {
		return 0, err
	}
	ptr := uint32(results[0])
	if ptr == 0 {
		return 0, &MemoryAccessError{
			Operation: "alloc",
			Length:    size,
			Err:       errors.New("guest allocator returned null"),
		}
	}
	return ptr, nil
}

// Dealloc releases a region previously returned by Alloc. The (ptr, size)
// pair must match the original allocation exactly; the guest allocator
// makes a double free or a mismatched size undefined.
func (i *Instance) Dealloc(ctx context.Context, ptr, size uint32) error {
	_, err := i.call(ctx, exportDealloc, i.dealloc, uint64(ptr), uint64(size))
	return err
}

// SetupParams writes the algorithm tag and cost parameters into the guest's
// parameter registers, to be read by the immediately following hash or
// verify call.
func (i *Instance) SetupParams(ctx context.Context, tag, version, mCost, tCost, pCost uint32) error {
	_, err := i.call(ctx, exportSetupParams, i.setupParams,
		uint64(tag), uint64(version), uint64(mCost), uint64(tCost), uint64(pCost))
	return err
}

// Hash invokes the guest hash entry point. The guest writes a pointer to a
// null-terminated digest string at outputLocPtr.
func (i *Instance) Hash(ctx context.Context, passwordPtr, passwordLen, saltPtr, saltLen, secretPtr, secretLen, outputLocPtr uint32) error {
	_, err := i.call(ctx, exportHash, i.hash,
		uint64(passwordPtr), uint64(passwordLen),
		uint64(saltPtr), uint64(saltLen),
		uint64(secretPtr), uint64(secretLen),
		uint64(outputLocPtr))
	return err
}

// Verify invokes the guest verify entry point. The guest writes a 4-byte
// little-endian 0/1 at matchesPtr.
func (i *Instance) Verify(ctx context.Context, digestPtr, digestLen, passwordPtr, passwordLen, secretPtr, secretLen, matchesPtr uint32) error {
	_, err := i.call(ctx, exportVerify, i.verify,
		uint64(digestPtr), uint64(digestLen),
		uint64(passwordPtr), uint64(passwordLen),
		uint64(secretPtr), uint64(secretLen),
		uint64(matchesPtr))
	return err
}
