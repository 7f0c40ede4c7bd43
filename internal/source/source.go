package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

const (
	// DefaultMaxItemSize bounds one line including its terminator
	DefaultMaxItemSize = 256

	// sniffSize is how much of the input is inspected for type and charset
	sniffSize = 4096
)

var (
	// ErrLineTooLong is returned for a line that does not fit MaxItemSize
	ErrLineTooLong = errors.New("line exceeds maximum item size")

	// ErrNotText is returned when the input does not look like text
	ErrNotText = errors.New("input is not text")
)

// Options controls how a source is opened
type Options struct {
	// MaxItemSize bounds one line including its terminator
	MaxItemSize int
	// AllowBinary skips the text check
	AllowBinary bool
	// Raw keeps UTF-16 input as stored instead of decoding it
	Raw bool
}

// Source is an opened input file. MIME and Charset describe the content;
// only UTF-16 with a byte order mark is decoded, and only without Raw.
type Source struct {
	Path    string
	MIME    string
	Charset string

	r       *bufio.Reader
	closers []io.Closer
	maxLine int
	line    int
}

// Open opens path for sequential reading. Files ending in .gz or .zst are
// decompressed and content with NUL bytes is rejected as binary. Other
// bytes pass through unchanged whatever charset they are in.
func Open(path string, opts Options) (*Source, error) {
	if opts.MaxItemSize <= 1 {
		opts.MaxItemSize = DefaultMaxItemSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}

	s := &Source{
		Path:    path,
		closers: []io.Closer{f},
		maxLine: opts.MaxItemSize - 1,
	}

	var r io.Reader = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("gzip failed: %w", err)
		}
		s.closers = append(s.closers, gz)
		r = gz
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("zstd failed: %w", err)
		}
		rc := zr.IOReadCloser()
		s.closers = append(s.closers, rc)
		r = rc
	}

	br := bufio.NewReaderSize(r, sniffSize)
	head, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		s.Close()
		return nil, fmt.Errorf("failed to read source: %w", err)
	}

	s.MIME = mimetype.Detect(head).String()
	bom := utf16BOM(head)
	if bom == "" && !opts.AllowBinary && bytes.IndexByte(head, 0) >= 0 {
		s.Close()
		return nil, fmt.Errorf("%w: %s is %s", ErrNotText, path, s.MIME)
	}

	switch {
	case bom != "":
		s.Charset = bom
		if !opts.Raw {
			if _, err := br.Discard(2); err != nil {
				s.Close()
				return nil, fmt.Errorf("failed to read source: %w", err)
			}
			decoded, err := charset.NewReaderLabel(bom, br)
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("unsupported charset %q: %w", bom, err)
			}
			br = bufio.NewReaderSize(decoded, sniffSize)
		}
	case validUTF8Prefix(head):
		s.Charset = "utf-8"
	default:
		s.Charset = DetectCharset(head)
	}

	size := sniffSize
	if opts.MaxItemSize+1 > size {
		size = opts.MaxItemSize + 1
	}
	s.r = bufio.NewReaderSize(br, size)
	return s, nil
}

// ReadLine returns the next line without its terminator. It returns io.EOF
// once the input is exhausted and ErrLineTooLong for an oversized line.
func (s *Source) ReadLine() (string, error) {
	line, err := s.r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("%w: %s line %d", ErrLineTooLong, s.Path, s.line+1)
	}
	if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
		return "", err
	}

	s.line++
	text := string(bytes.TrimSuffix(bytes.TrimSuffix(line, []byte{'\n'}), []byte{'\r'}))
	if len(text) > s.maxLine {
		return "", fmt.Errorf("%w: %s line %d has %d bytes, max %d", ErrLineTooLong, s.Path, s.line, len(text), s.maxLine)
	}
	return text, nil
}

// ReadByte returns the next byte or io.EOF
func (s *Source) ReadByte() (byte, error) {
	return s.r.ReadByte()
}

// Lines returns the number of lines read so far
func (s *Source) Lines() int {
	return s.line
}

// Close releases the decompressor and the file
func (s *Source) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// DetectCharset returns the most likely charset of data, defaulting to
// utf-8. The result is informational; Open never decodes by it.
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// utf16BOM returns the charset label a UTF-16 byte order mark announces
func utf16BOM(head []byte) string {
	switch {
	case bytes.HasPrefix(head, []byte{0xff, 0xfe}):
		return "utf-16le"
	case bytes.HasPrefix(head, []byte{0xfe, 0xff}):
		return "utf-16be"
	}
	return ""
}

// validUTF8Prefix ignores a rune cut off at the end of the sniff window
func validUTF8Prefix(b []byte) bool {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return true
		}
		if len(b) < sniffSize {
			return false
		}
		b = b[:len(b)-1]
	}
	return utf8.Valid(b)
}
