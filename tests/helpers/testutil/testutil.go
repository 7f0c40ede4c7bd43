// Package testutil provides fixtures and mocks shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSink is a testify mock of an output sink that also records what was
// written successfully.
type MockSink struct {
	mock.Mock

	mu      sync.Mutex
	written strings.Builder
}

// Write mocks the Write method
func (m *MockSink) Write(p []byte) (int, error) {
	args := m.Called(p)
	n, err := args.Int(0), args.Error(1)
	if err == nil {
		m.mu.Lock()
		m.written.Write(p)
		m.mu.Unlock()
		n = len(p)
	}
	return n, err
}

// Close mocks the Close method
func (m *MockSink) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Written returns everything written without error
func (m *MockSink) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written.String()
}

// NewMockSink creates a sink that accepts every write and close
func NewMockSink(t *testing.T) *MockSink {
	t.Helper()
	m := new(MockSink)

	m.On("Write", mock.Anything).Return(0, nil).Maybe()
	m.On("Close").Return(nil).Maybe()

	return m
}

// NewFailingSink creates a sink whose writes all fail with err
func NewFailingSink(t *testing.T, err error) *MockSink {
	t.Helper()
	m := new(MockSink)

	m.On("Write", mock.Anything).Return(0, err).Maybe()
	m.On("Close").Return(nil).Maybe()

	return m
}

// WriteSources writes contents[i] to <dir>/<i>.txt and returns the paths
func WriteSources(t *testing.T, dir string, contents ...string) []string {
	t.Helper()

	paths := make([]string, len(contents))
	for i, content := range contents {
		paths[i] = WriteFile(t, filepath.Join(dir, strconv.Itoa(i)+".txt"), content)
	}
	return paths
}

// WriteFile writes content to path, creating parent directories
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// WriteGzip writes content gzip-compressed to path
func WriteGzip(t *testing.T, path, content string) string {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := gzip.NewWriter(f)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return path
}

// WriteZstd writes content zstd-compressed to path
func WriteZstd(t *testing.T, path, content string) string {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return path
}

// Lines joins lines with a trailing newline after each
func Lines(lines ...string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
