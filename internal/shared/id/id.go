// Package id generates ULID identifiers for runs and tasks.
//
// IDs are lexicographically sortable and carry a short prefix naming what
// they identify (run_*, prod_*, cons_*), which keeps interleaved log lines
// from concurrent tasks readable.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunID identifies one pipeline run
type RunID string

// TaskID identifies one producer or consumer within a run
type TaskID string

const (
	RunPrefix      = "run"
	ProducerPrefix = "prod"
	ConsumerPrefix = "cons"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewRunID generates a run ID
func NewRunID() RunID {
	return RunID(Default().GenerateWithPrefix(RunPrefix))
}

// NewProducerID generates a producer task ID
func NewProducerID() TaskID {
	return TaskID(Default().GenerateWithPrefix(ProducerPrefix))
}

// NewConsumerID generates a consumer task ID
func NewConsumerID() TaskID {
	return TaskID(Default().GenerateWithPrefix(ConsumerPrefix))
}

func (id RunID) String() string  { return string(id) }
func (id TaskID) String() string { return string(id) }
