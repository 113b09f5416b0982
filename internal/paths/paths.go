// Package paths resolves the application's on-disk locations.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const appDir = "bob"

// Manager knows where bob keeps its files: configuration and the project
// list under the user config dir, the runtime cache and logs under the user
// cache dir.
type Manager struct {
	configDir string
	cacheDir  string
}

// NewManager resolves the per-user directories.
func NewManager() (*Manager, error) {
	configRoot, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config directory: %w", err)
	}
	cacheRoot, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory: %w", err)
	}
	return &Manager{
		configDir: filepath.Join(configRoot, appDir),
		cacheDir:  filepath.Join(cacheRoot, appDir),
	}, nil
}

// ConfigPath returns the optional YAML configuration file path.
func (m *Manager) ConfigPath() string {
	return filepath.Join(m.configDir, "config.yaml")
}

// ProjectsPath returns the persisted project list path.
func (m *Manager) ProjectsPath() string {
	return filepath.Join(m.configDir, "projects.json")
}

// RuntimeDir returns the cache directory holding the runtime binary.
func (m *Manager) RuntimeDir() string {
	return m.cacheDir
}

// LogPath returns the application log file path. The TUI owns the terminal,
// so logs go to a file.
func (m *Manager) LogPath() string {
	return filepath.Join(m.cacheDir, "bob.log")
}

// LockPath returns the single-instance lock file path.
func (m *Manager) LockPath() string {
	return filepath.Join(m.cacheDir, "bob.pid")
}

// EnsureDirectories creates the config and cache directories.
func (m *Manager) EnsureDirectories() error {
	for _, dir := range []string{m.configDir, m.cacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
