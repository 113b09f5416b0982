// Package runtime acquires and caches the external script runtime (bun).
// The binary is downloaded once per machine into the user cache directory;
// acquisition failures surface to the caller and are never retried
// automatically.
package runtime

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
)

const bunVersion = "1.3.2"

// binaryName returns the runtime executable name for this OS.
func binaryName() string {
	if goruntime.GOOS == "windows" {
		return "bun.exe"
	}
	return "bun"
}

// downloadURL resolves the release archive for this OS/arch.
func downloadURL() (string, error) {
	var osPart string
	switch goruntime.GOOS {
	case "windows":
		osPart = "windows"
	case "darwin":
		osPart = "darwin"
	case "linux":
		osPart = "linux"
	default:
		return "", fmt.Errorf("unsupported OS %q", goruntime.GOOS)
	}

	var archPart string
	switch goruntime.GOARCH {
	case "amd64":
		archPart = "x64"
	case "arm64":
		archPart = "aarch64"
	default:
		return "", fmt.Errorf("unsupported architecture %q", goruntime.GOARCH)
	}

	return fmt.Sprintf(
		"https://github.com/oven-sh/bun/releases/download/bun-v%s/bun-%s-%s.zip",
		bunVersion, osPart, archPart,
	), nil
}

// Manager locates the cached runtime binary and downloads it on demand.
// Ensure is serialized: only one download runs at a time.
type Manager struct {
	cacheDir string
	url      string
	client   *resty.Client
	logger   *log.Logger

	mu sync.Mutex
}

// NewManager creates a manager caching into cacheDir. urlOverride replaces
// the release URL when non-empty (useful for mirrors and tests).
func NewManager(cacheDir, urlOverride string, logger *log.Logger) *Manager {
	return &Manager{
		cacheDir: cacheDir,
		url:      urlOverride,
		client:   resty.New(),
		logger:   logger,
	}
}

// binaryPath is the fixed cache location of the runtime executable.
func (m *Manager) binaryPath() string {
	return filepath.Join(m.cacheDir, binaryName())
}

// Path returns the cached runtime binary if it is already present.
func (m *Manager) Path() (string, bool) {
	p := m.binaryPath()
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return p, true
	}
	return "", false
}

// Ensure returns the runtime binary path, downloading and extracting the
// release archive first when the cache is empty. A single attempt is made;
// the caller decides what a failure means.
func (m *Manager) Ensure(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.Path(); ok {
		return p, nil
	}

	url := m.url
	if url == "" {
		var err error
		url, err = downloadURL()
		if err != nil {
			return "", err
		}
	}

	m.logger.Info("downloading runtime", "url", url)

	resp, err := m.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to download runtime: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("failed to download runtime: unexpected status %s", resp.Status())
	}

	path, err := m.extract(resp.Body())
	if err != nil {
		return "", err
	}

	m.logger.Info("runtime installed", "path", path)
	return path, nil
}

// extract pulls the runtime executable out of the release zip and writes it
// into the cache atomically.
func (m *Manager) extract(archive []byte) (string, error) {
	if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return "", fmt.Errorf("failed to open runtime archive: %w", err)
	}

	name := binaryName()
	for _, f := range reader.File {
		if !strings.HasSuffix(f.Name, name) || f.FileInfo().IsDir() {
			continue
		}

		src, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to read %s from archive: %w", f.Name, err)
		}

		tmp, err := os.CreateTemp(m.cacheDir, name+".tmp-*")
		if err != nil {
			src.Close()
			return "", fmt.Errorf("failed to create temp file: %w", err)
		}

		_, copyErr := io.Copy(tmp, src)
		src.Close()
		tmp.Close()
		if copyErr != nil {
			os.Remove(tmp.Name())
			return "", fmt.Errorf("failed to extract runtime: %w", copyErr)
		}

		if err := os.Chmod(tmp.Name(), 0o755); err != nil {
			os.Remove(tmp.Name())
			return "", fmt.Errorf("failed to mark runtime executable: %w", err)
		}

		dest := m.binaryPath()
		if err := os.Rename(tmp.Name(), dest); err != nil {
			os.Remove(tmp.Name())
			return "", fmt.Errorf("failed to install runtime: %w", err)
		}
		return dest, nil
	}

	return "", fmt.Errorf("runtime executable not found in archive")
}
