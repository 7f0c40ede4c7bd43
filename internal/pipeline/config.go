package pipeline

import (
	"fmt"
	"time"

	"github.com/pnadon/producer-consumer/internal/source"
	"github.com/pnadon/producer-consumer/internal/tokenize"
)

// Mode selects the unit of work
type Mode string

const (
	// ModeLine moves whole lines and writes to the shared console
	ModeLine Mode = "line"
	// ModeByte moves single bytes and writes one file per consumer
	ModeByte Mode = "byte"
)

// Assignment selects how producers choose a queue
type Assignment string

const (
	// AssignRandom probes random queues for a free, non-full one
	AssignRandom Assignment = "random"
	// AssignPinned sends producer i to queue i mod N
	AssignPinned Assignment = "pinned"
)

// DefaultCapacity is the per-queue capacity when none is set
const DefaultCapacity = 256

// DefaultDrainTimeout bounds how long consumers keep draining after
// cancellation
const DefaultDrainTimeout = 30 * time.Second

// Config describes one run
type Config struct {
	// Sources holds one path per producer
	Sources []string
	// Queues is the number of queues and consumers; 0 means len(Sources)
	Queues   int
	Capacity int

	Mode       Mode
	Assignment Assignment

	MaxItemSize int
	AllowBinary bool
	Separator   byte

	ProbeLimit int
	// Seed makes random assignment reproducible; 0 seeds randomly
	Seed uint64
	// RateLimit caps units per second per producer; 0 is unlimited
	RateLimit float64

	// OutDir receives <index>.txt per consumer in byte mode
	OutDir string

	// Events logs per-unit task events at debug level
	Events bool

	DrainTimeout time.Duration
}

func (c *Config) normalize() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}
	if c.Queues == 0 {
		c.Queues = len(c.Sources)
	}
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.Mode == "" {
		c.Mode = ModeLine
	}
	if c.Assignment == "" {
		c.Assignment = AssignRandom
		if c.Mode == ModeByte {
			c.Assignment = AssignPinned
		}
	}
	if c.MaxItemSize == 0 {
		c.MaxItemSize = source.DefaultMaxItemSize
	}
	if c.Separator == 0 {
		c.Separator = tokenize.DefaultSeparator
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}

	switch {
	case c.Queues < 0:
		return fmt.Errorf("%w: queues %d", ErrInvalidConfig, c.Queues)
	case c.Mode != ModeLine && c.Mode != ModeByte:
		return fmt.Errorf("%w: mode %q", ErrInvalidConfig, c.Mode)
	case c.Assignment != AssignRandom && c.Assignment != AssignPinned:
		return fmt.Errorf("%w: assignment %q", ErrInvalidConfig, c.Assignment)
	case c.MaxItemSize < 2:
		return fmt.Errorf("%w: max item size %d", ErrInvalidConfig, c.MaxItemSize)
	case c.RateLimit < 0:
		return fmt.Errorf("%w: rate limit %g", ErrInvalidConfig, c.RateLimit)
	}
	return nil
}
