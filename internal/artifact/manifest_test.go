package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeArtifactDir creates a manifest.yaml (and optionally a wasm file)
// in a temp directory.
func writeArtifactDir(t *testing.T, manifest string, wasmData []byte) string {
	t.Helper()
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if wasmData != nil {
		if err := os.WriteFile(filepath.Join(dir, "argon2.wasm"), wasmData, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

const validManifest = `name: argon2
version: 0.1.0
wasm:
  file: argon2.wasm
`

func TestParseManifest(t *testing.T) {
	dir := writeArtifactDir(t, validManifest, []byte("fake wasm"))

	m, err := ParseManifest(dir)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}

	if m.Name != "argon2" {
		t.Errorf("Name = %q, want argon2", m.Name)
	}
	if m.Version != "0.1.0" {
		t.Errorf("Version = %q, want 0.1.0", m.Version)
	}
	if m.WasmPath() != filepath.Join(dir, "argon2.wasm") {
		t.Errorf("WasmPath = %q", m.WasmPath())
	}
}

func TestParseManifestMissing(t *testing.T) {
	_, err := ParseManifest(t.TempDir())

	var notFound *ManifestNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("error = %v, want ManifestNotFoundError", err)
	}
}

func TestParseManifestBadYAML(t *testing.T) {
	dir := writeArtifactDir(t, "name: [unclosed", nil)

	_, err := ParseManifest(dir)

	var parseErr *ManifestParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("error = %v, want ManifestParseError", err)
	}
}

func TestParseManifestValidation(t *testing.T) {
	tests := []struct {
		name      string
		manifest  string
		wasmData  []byte
		wantField string
	}{
		{"missing name", "version: 0.1.0\nwasm:\n  file: argon2.wasm\n", []byte("x"), "name"},
		{"missing wasm file", "name: argon2\n", nil, "wasm.file"},
		{"bad checksum scheme", "name: argon2\nwasm:\n  file: argon2.wasm\n  checksum: md5:abc\n", []byte("x"), "wasm.checksum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeArtifactDir(t, tt.manifest, tt.wasmData)

			_, err := ParseManifest(dir)

			var valErr *ManifestValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("error = %v, want ManifestValidationError", err)
			}
			if valErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", valErr.Field, tt.wantField)
			}
		})
	}
}

func TestParseManifestWasmFileMissing(t *testing.T) {
	dir := writeArtifactDir(t, validManifest, nil)

	_, err := ParseManifest(dir)

	var notFound *WasmNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("error = %v, want WasmNotFoundError", err)
	}
}
