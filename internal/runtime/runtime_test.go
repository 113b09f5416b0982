package runtime

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmit-co/bob/internal/logging"
)

// releaseZip builds an archive shaped like a real release: the executable
// sits inside a versioned directory.
func releaseZip(t *testing.T, entry string, body []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(entry)
	require.NoError(t, err)
	_, err = f.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestPathMissesEmptyCache(t *testing.T) {
	m := NewManager(t.TempDir(), "", logging.Discard())
	if _, ok := m.Path(); ok {
		t.Error("Path reported a hit on an empty cache")
	}
}

func TestEnsureDownloadsAndExtracts(t *testing.T) {
	archive := releaseZip(t, "bun-linux-x64/"+binaryName(), []byte("#!/bin/sh\nexit 0\n"))
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	m := NewManager(t.TempDir(), srv.URL, logging.Discard())

	path, err := m.Ensure(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.NotZero(t, info.Mode()&0o100, "runtime binary must be executable")

	cached, ok := m.Path()
	require.True(t, ok)
	assert.Equal(t, path, cached)

	// A second Ensure must answer from cache.
	again, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, int32(1), hits.Load())
}

func TestEnsureRejectsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	m := NewManager(t.TempDir(), srv.URL, logging.Discard())
	_, err := m.Ensure(context.Background())
	require.Error(t, err)

	if _, ok := m.Path(); ok {
		t.Error("failed download left a cached binary behind")
	}
}

func TestEnsureRejectsArchiveWithoutBinary(t *testing.T) {
	archive := releaseZip(t, "README.md", []byte("nothing here"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	m := NewManager(t.TempDir(), srv.URL, logging.Discard())
	_, err := m.Ensure(context.Background())
	assert.ErrorContains(t, err, "not found in archive")
}

func TestEnsureRejectsCorruptArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not a zip"))
	}))
	defer srv.Close()

	m := NewManager(t.TempDir(), srv.URL, logging.Discard())
	_, err := m.Ensure(context.Background())
	require.Error(t, err)
}
