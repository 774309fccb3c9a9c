// Package wasm drives the compiled Argon2 guest module: wazero runtime
// lifecycle, module loading, instance management, guest memory access, the
// host panic relay, and the Bridge that marshals hash/verify calls across
// the linear-memory boundary.
package wasm

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

// Runtime manages the wazero runtime lifecycle. One Runtime serves the
// whole process; compiled modules are cached by name so the same binary is
// never compiled twice.
type Runtime struct {
	runtime wazero.Runtime

	// Compiled module cache (module name -> *CompiledModule).
	modules sync.Map

	config *RuntimeConfig
	logger *zap.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// RuntimeConfig holds runtime configuration.
type RuntimeConfig struct {
	// MemoryPages caps guest memory growth (64KiB pages).
	// Default: 256 pages = 16MB.
	MemoryPages uint32

	// CacheDir is the persistent compilation cache directory. Empty means
	// compile in-process every start.
	CacheDir string

	// Debug enables verbose bridge logging.
	Debug bool
}

// DefaultRuntimeConfig returns sensible defaults.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MemoryPages: 256, // 16MB
		CacheDir:    "",
		Debug:       false,
	}
}

// CompiledModule wraps a wazero.CompiledModule with metadata.
type CompiledModule struct {
	Module wazero.CompiledModule

	Name      string
	Source    string
	SizeBytes int64

	CompiledAt int64
}

// NewRuntime creates and initializes a wazero runtime. Call once during
// startup and Close on shutdown.
func NewRuntime(ctx context.Context, logger *zap.Logger, config *RuntimeConfig) (*Runtime, error) {
	if config == nil {
		config = DefaultRuntimeConfig()
	}

	rc := wazero.NewRuntimeConfig()
	if config.MemoryPages > 0 {
		rc = rc.WithMemoryLimitPages(config.MemoryPages)
	}
	if config.CacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(config.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache at '%s': %w", config.CacheDir, err)
		}
		rc = rc.WithCompilationCache(cache)
	}

	r := wazero.NewRuntimeWithConfig(ctx, rc)

	runtime := &Runtime{
		runtime: r,
		config:  config,
		logger:  logger.With(zap.String("component", "wasm-runtime")),
		closed:  make(chan struct{}),
	}

	runtime.logger.Info("Wasm runtime initialized",
		zap.Uint32("memory_pages", config.MemoryPages),
		zap.String("cache_dir", config.CacheDir),
		zap.Bool("debug", config.Debug),
	)

	return runtime, nil
}

// Close gracefully shuts down the runtime and every module instantiated in
// it. Safe to call multiple times.
func (r *Runtime) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		r.logger.Info("Shutting down Wasm runtime")

		// Closing the runtime closes compiled modules and live instances.
		err = r.runtime.Close(ctx)

		close(r.closed)
		r.logger.Info("Wasm runtime shutdown complete")
	})

	return err
}

// GetCompiledModule retrieves a compiled module from the cache.
func (r *Runtime) GetCompiledModule(name string) (*CompiledModule, bool) {
	if val, ok := r.modules.Load(name); ok {
		if mod, ok := val.(*CompiledModule); ok {
			return mod, true
		}
	}
	return nil, false
}

// StoreCompiledModule stores a compiled module in the cache.
func (r *Runtime) StoreCompiledModule(module *CompiledModule) {
	r.modules.Store(module.Name, module)
}

// IsClosed reports whether the runtime has been closed.
func (r *Runtime) IsClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}
