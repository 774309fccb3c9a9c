package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hashforge/argonbridge/internal/wasm"
)

// Artifact is a loaded guest binary: parsed manifest plus compiled module.
type Artifact struct {
	Manifest *Manifest
	Compiled *wasm.CompiledModule
	LoadedAt time.Time
}

// Name returns the artifact name.
func (a *Artifact) Name() string {
	return a.Manifest.Name
}

// Version returns the artifact version.
func (a *Artifact) Version() string {
	return a.Manifest.Version
}

// Loader handles loading artifacts from disk.
type Loader struct {
	moduleLoader *wasm.ModuleLoader
	logger       *zap.Logger
}

// NewLoader creates an artifact loader bound to a runtime.
func NewLoader(runtime *wasm.Runtime, logger *zap.Logger) *Loader {
	return &Loader{
		moduleLoader: wasm.NewModuleLoader(runtime, logger),
		logger:       logger.With(zap.String("component", "artifact-loader")),
	}
}

// Load reads the manifest in dir, verifies the binary's checksum when one
// is pinned, compiles it, and checks the compiled module exports the full
// surface the bridge depends on.
func (l *Loader) Load(ctx context.Context, dir string) (*Artifact, error) {
	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loading artifact",
		zap.String("name", manifest.Name),
		zap.String("version", manifest.Version),
		zap.String("wasm", manifest.Wasm.File),
	)

	if err := verifyChecksum(manifest); err != nil {
		return nil, err
	}

	compiled, err := l.moduleLoader.LoadModuleFromFile(ctx, manifest.WasmPath())
	if err != nil {
		return nil, &LoadError{
			ArtifactName: manifest.Name,
			Err:          err,
		}
	}

	if err := checkExports(manifest.Name, compiled); err != nil {
		return nil, err
	}

	artifact := &Artifact{
		Manifest: manifest,
		Compiled: compiled,
		LoadedAt: time.Now(),
	}

	l.logger.Info("Artifact loaded successfully",
		zap.String("name", manifest.Name),
		zap.Int64("size_bytes", compiled.SizeBytes),
	)

	return artifact, nil
}

// verifyChecksum compares the binary's sha256 digest against the manifest
// pin. A manifest without a checksum skips verification.
func verifyChecksum(manifest *Manifest) error {
	pinned := manifest.Wasm.Checksum
	if pinned == "" {
		return nil
	}

	data, err := os.ReadFile(manifest.WasmPath())
	if err != nil {
		return &LoadError{
			ArtifactName: manifest.Name,
			Err:          fmt.Errorf("failed to read wasm binary: %w", err),
		}
	}

	sum := sha256.Sum256(data)
	got := checksumPrefix + hex.EncodeToString(sum[:])
	if got != pinned {
		return &ChecksumMismatchError{
			Path: manifest.WasmPath(),
			Want: pinned,
			Got:  got,
		}
	}
	return nil
}

// checkExports validates the compiled module's export surface against what
// the bridge calls, so a wrong binary fails at load time instead of at the
// first hash.
func checkExports(name string, compiled *wasm.CompiledModule) error {
	exports := compiled.Module.ExportedFunctions()
	for _, required := range wasm.RequiredExports {
		if _, ok := exports[required]; !ok {
			return &MissingExportError{
				ArtifactName: name,
				Export:       required,
			}
		}
	}

	if len(compiled.Module.ExportedMemories()) == 0 {
		return &MissingExportError{
			ArtifactName: name,
			Export:       "memory",
		}
	}

	return nil
}
