package artifact

import (
	"fmt"
)

// ManifestNotFoundError occurs when manifest.yaml is not found in a directory.
type ManifestNotFoundError struct {
	Path string
	Err  error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("manifest not found at '%s': %v", e.Path, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestParseError occurs when manifest.yaml cannot be parsed as valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest at '%s': %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError occurs when manifest.yaml fails validation.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest validation failed at '%s': %s (field: %s)",
			e.Path, e.Message, e.Field)
	}
	return fmt.Sprintf("manifest validation failed at '%s': %s", e.Path, e.Message)
}

// WasmNotFoundError occurs when the wasm binary referenced in the manifest
// doesn't exist.
type WasmNotFoundError struct {
	ManifestPath string
	WasmFile     string
}

func (e *WasmNotFoundError) Error() string {
	return fmt.Sprintf("Wasm file '%s' not found (referenced in manifest '%s')",
		e.WasmFile, e.ManifestPath)
}

// ChecksumMismatchError occurs when the wasm binary does not match the
// checksum pinned in the manifest.
type ChecksumMismatchError struct {
	Path string
	Want string
	Got  string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for '%s': manifest pins %s, file is %s",
		e.Path, e.Want, e.Got)
}

// MissingExportError occurs when the compiled module lacks a function the
// bridge requires.
type MissingExportError struct {
	ArtifactName string
	Export       string
}

func (e *MissingExportError) Error() string {
	return fmt.Sprintf("artifact '%s' does not export required function '%s'",
		e.ArtifactName, e.Export)
}

// LoadError occurs when artifact loading fails.
type LoadError struct {
	ArtifactName string
	Err          error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load artifact '%s': %v", e.ArtifactName, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
