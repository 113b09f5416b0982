// Package manifest reads project manifest files (package.json) and exposes
// the named scripts a project declares.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// Filename is the manifest file name expected at every project root.
const Filename = "package.json"

// FallbackName is used when a manifest declares no name.
const FallbackName = "Unknown Project"

// Script is one named runnable entry from the manifest's scripts map.
type Script struct {
	Name    string
	Command string
}

// Manifest is the parsed view of a project manifest. Scripts preserve the
// order they appear in the document.
type Manifest struct {
	Name    string
	Scripts []Script
}

// Parse parses raw manifest bytes. Only the name field and the keys of the
// scripts map are consumed; script bodies are carried along untouched since
// the external runtime interprets them.
func Parse(data []byte) (*Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("manifest is not valid JSON")
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("manifest root is not an object")
	}

	m := &Manifest{Name: FallbackName}
	if name := root.Get("name"); name.Type == gjson.String && name.String() != "" {
		m.Name = name.String()
	}

	scripts := root.Get("scripts")
	if scripts.IsObject() {
		scripts.ForEach(func(key, value gjson.Result) bool {
			m.Scripts = append(m.Scripts, Script{
				Name:    key.String(),
				Command: value.String(),
			})
			return true
		})
	}

	return m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return m, nil
}

// LoadDir reads the manifest found at <dir>/package.json.
func LoadDir(dir string) (*Manifest, error) {
	return Load(filepath.Join(dir, Filename))
}

// Exists reports whether a manifest file is present at the project root.
func Exists(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, Filename))
	return err == nil && !info.IsDir()
}

// ScriptNames returns the ordered task names declared by the manifest.
func (m *Manifest) ScriptNames() []string {
	names := make([]string, 0, len(m.Scripts))
	for _, s := range m.Scripts {
		names = append(names, s.Name)
	}
	return names
}
