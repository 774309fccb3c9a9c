// Package artifact loads the compiled Argon2 guest binary and its
// manifest: a small YAML file describing the wasm artifact, its version,
// and an optional sha256 checksum verified before compilation.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest represents the artifact manifest.yaml structure.
type Manifest struct {
	Name    string   `yaml:"name"`
	Version string   `yaml:"version"`
	Wasm    WasmFile `yaml:"wasm"`

	dir string
}

// WasmFile describes the wasm binary the manifest points at.
type WasmFile struct {
	// File is the binary's path, relative to the manifest directory.
	File string `yaml:"file"`

	// Checksum is an optional "sha256:<hex>" digest of the binary.
	Checksum string `yaml:"checksum"`
}

// checksumPrefix is the only digest scheme the loader accepts.
const checksumPrefix = "sha256:"

// ParseManifest reads and parses manifest.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, "manifest.yaml")

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "name",
			Message: "name is required",
		}
	}

	if m.Wasm.File == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "wasm.file",
			Message: "wasm.file is required",
		}
	}

	if m.Wasm.Checksum != "" && !strings.HasPrefix(m.Wasm.Checksum, checksumPrefix) {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "wasm.checksum",
			Message: fmt.Sprintf("checksum %q must use the %q scheme", m.Wasm.Checksum, checksumPrefix),
		}
	}

	if _, err := os.Stat(m.WasmPath()); os.IsNotExist(err) {
		return &WasmNotFoundError{
			ManifestPath: m.Path(),
			WasmFile:     m.Wasm.File,
		}
	}

	return nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, "manifest.yaml")
}

// WasmPath returns the absolute path to the wasm binary.
func (m *Manifest) WasmPath() string {
	return filepath.Join(m.dir, m.Wasm.File)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
