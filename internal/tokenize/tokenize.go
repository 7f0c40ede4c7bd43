// Package tokenize turns separator-delimited text into one record per token.
package tokenize

import (
	"errors"
	"strings"
)

// Delimiter terminates every emitted record
const Delimiter = '\n'

// DefaultSeparator splits tokens when none is configured
const DefaultSeparator = ' '

// ErrInvalidSeparator is returned for a separator that equals the delimiter
var ErrInvalidSeparator = errors.New("separator must differ from the record delimiter")

// Splitter replaces a single-byte separator with the record delimiter
type Splitter struct {
	sep byte
}

// NewSplitter creates a splitter for sep
func NewSplitter(sep byte) (*Splitter, error) {
	if sep == Delimiter {
		return nil, ErrInvalidSeparator
	}
	return &Splitter{sep: sep}, nil
}

// Line renders one input line as token records: every separator becomes a
// delimiter and the result always ends with one. Tokens are kept verbatim,
// so two adjacent separators yield an empty record.
func (s *Splitter) Line(line string) string {
	var b strings.Builder
	b.Grow(len(line) + 1)
	for i := 0; i < len(line); i++ {
		if line[i] == s.sep {
			b.WriteByte(Delimiter)
			continue
		}
		b.WriteByte(line[i])
	}
	b.WriteByte(Delimiter)
	return b.String()
}

// Byte renders one input byte; the separator becomes a delimiter
func (s *Splitter) Byte(c byte) byte {
	if c == s.sep {
		return Delimiter
	}
	return c
}
