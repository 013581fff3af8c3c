package manifest

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/figdock/figdock/internal/platform/errors"
)

// DefaultPath is where services look for the manifest when no path is given.
const DefaultPath = "figdock.yaml"

// Parse decodes a manifest document, rejects unknown fields, and fills
// defaults. Callers still run Validate before acting on the result.
func Parse(data []byte) (*Manifest, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var m Manifest
	if err := decoder.Decode(&m); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeManifestSyntax, "decode manifest", err)
	}
	m.Normalize()
	return &m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}
