package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// ErrClosed is returned when writing to a closed sink
var ErrClosed = errors.New("sink closed")

// Sink receives tokenized output from one consumer
type Sink interface {
	io.Writer
	Close() error
}

// Console is a sink shared by every consumer. Each Write is emitted whole;
// writes from different consumers never interleave within a record.
type Console struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closed bool
}

// NewConsole wraps w, usually os.Stdout. Closing the console flushes it
// but does not close w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: bufio.NewWriter(w)}
}

// Write emits p as one unit
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}
	return c.w.Write(p)
}

// Flush pushes buffered output to the underlying writer
func (c *Console) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Flush()
}

// Close flushes the console. Safe to call more than once.
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.w.Flush()
}

// View returns a handle for one consumer. Closing a view flushes the
// console without closing it, so other consumers can keep writing.
func (c *Console) View() Sink {
	return consoleView{c}
}

type consoleView struct {
	c *Console
}

func (v consoleView) Write(p []byte) (int, error) {
	return v.c.Write(p)
}

func (v consoleView) Close() error {
	v.c.mu.Lock()
	defer v.c.mu.Unlock()

	if v.c.closed {
		return nil
	}
	return v.c.w.Flush()
}

// File is a sink owned by a single consumer
type File struct {
	Path string

	f *os.File
	w *bufio.Writer
}

// Path returns <dir>/<index>.txt
func Path(dir string, index int) string {
	return filepath.Join(dir, strconv.Itoa(index)+".txt")
}

// Create opens <dir>/<index>.txt for writing, truncating any previous
// content and creating dir if needed
func Create(dir string, index int) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := Path(dir, index)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &File{Path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// Write buffers p for the output file
func (f *File) Write(p []byte) (int, error) {
	if f.f == nil {
		return 0, ErrClosed
	}
	return f.w.Write(p)
}

// Close flushes and closes the file. Safe to call more than once.
func (f *File) Close() error {
	if f.f == nil {
		return nil
	}
	err := f.w.Flush()
	if cerr := f.f.Close(); err == nil {
		err = cerr
	}
	f.f = nil
	return err
}
