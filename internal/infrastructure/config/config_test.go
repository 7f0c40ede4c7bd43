package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "lorem_ipsum", cfg.Input.Dir)
	assert.Equal(t, 4, cfg.Input.Sources)
	assert.Equal(t, 256, cfg.Input.MaxItemSize)
	assert.Equal(t, ModeLine, cfg.Input.Mode)
	assert.Equal(t, 256, cfg.Queue.Capacity)
	assert.Equal(t, 30*time.Second, cfg.Queue.DrainTimeout.Std())
	assert.Equal(t, byte(' '), cfg.SeparatorByte())
	assert.Equal(t, 4, cfg.Queues(4))
	assert.Equal(t, AssignRandom, cfg.AssignmentPolicy())
	assert.NoError(t, cfg.Validate())
}

func TestAssignmentFollowsMode(t *testing.T) {
	cfg := Default()
	cfg.Input.Mode = ModeByte
	assert.Equal(t, AssignPinned, cfg.AssignmentPolicy())

	cfg.Queue.Assignment = AssignRandom
	assert.Equal(t, AssignRandom, cfg.AssignmentPolicy())

	cfg.Queue.Count = 2
	assert.Equal(t, 2, cfg.Queues(6))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TOKENIZER_INPUT_SOURCES", "6")
	t.Setenv("TOKENIZER_INPUT_MAX_ITEM_SIZE", "64")
	t.Setenv("TOKENIZER_INPUT_EXTENSIONS", ".txt,.log")
	t.Setenv("TOKENIZER_QUEUE_CAPACITY", "8")
	t.Setenv("TOKENIZER_QUEUE_DRAIN_TIMEOUT", "2s")
	t.Setenv("TOKENIZER_OUTPUT_SEPARATOR", ",")
	t.Setenv("TOKENIZER_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Input.Sources)
	assert.Equal(t, 64, cfg.Input.MaxItemSize)
	assert.Equal(t, []string{".txt", ".log"}, cfg.Input.Extensions)
	assert.Equal(t, 8, cfg.Queue.Capacity)
	assert.Equal(t, 2*time.Second, cfg.Queue.DrainTimeout.Std())
	assert.Equal(t, byte(','), cfg.SeparatorByte())
	assert.Equal(t, "debug", cfg.Logging.Level)

	// untouched fields keep their defaults
	assert.Equal(t, "lorem_ipsum", cfg.Input.Dir)
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("TOKENIZER_QUEUE_CAPACITY", "lots")

	_, err := Load()
	assert.Error(t, err)
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApplyFileFormats(t *testing.T) {
	files := map[string]string{
		"tokenizer.yaml": `
input:
  sources: 3
  mode: byte
queue:
  capacity: 16
  drain_timeout: 5s
output:
  dir: out
`,
		"tokenizer.toml": `
[input]
sources = 3
mode = "byte"

[queue]
capacity = 16
drain_timeout = "5s"

[output]
dir = "out"
`,
		"tokenizer.json": `{
  "input": {"sources": 3, "mode": "byte"},
  "queue": {"capacity": 16, "drain_timeout": "5s"},
  "output": {"dir": "out"}
}`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, ApplyFile(cfg, writeConfig(t, name, content)))

			assert.Equal(t, 3, cfg.Input.Sources)
			assert.Equal(t, ModeByte, cfg.Input.Mode)
			assert.Equal(t, 16, cfg.Queue.Capacity)
			assert.Equal(t, 5*time.Second, cfg.Queue.DrainTimeout.Std())
			assert.Equal(t, "out", cfg.Output.Dir)

			// keys missing from the file keep their defaults
			assert.Equal(t, "lorem_ipsum", cfg.Input.Dir)
			assert.Equal(t, 256, cfg.Input.MaxItemSize)
			assert.Equal(t, " ", cfg.Output.Separator)
		})
	}
}

func TestApplyFileErrors(t *testing.T) {
	cfg := Default()

	err := ApplyFile(cfg, writeConfig(t, "tokenizer.ini", "sources=3"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	err = ApplyFile(cfg, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = ApplyFile(cfg, writeConfig(t, "broken.json", "{"))
	assert.Error(t, err)
}

func TestPrecedenceEnvOverFile(t *testing.T) {
	path := writeConfig(t, "tokenizer.yaml", "input:\n  sources: 3\nqueue:\n  capacity: 16\n")
	t.Setenv("TOKENIZER_QUEUE_CAPACITY", "32")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Input.Sources)
	assert.Equal(t, 32, cfg.Queue.Capacity)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no sources", func(c *Config) { c.Input.Sources = 0 }},
		{"glob and walk", func(c *Config) { c.Input.Glob = "*.txt"; c.Input.Walk = true }},
		{"item size", func(c *Config) { c.Input.MaxItemSize = 1 }},
		{"negative rate", func(c *Config) { c.Input.RateLimit = -1 }},
		{"negative count", func(c *Config) { c.Queue.Count = -1 }},
		{"capacity", func(c *Config) { c.Queue.Capacity = 0 }},
		{"probe limit", func(c *Config) { c.Queue.ProbeLimit = -2 }},
		{"drain timeout", func(c *Config) { c.Queue.DrainTimeout = 0 }},
		{"assignment", func(c *Config) { c.Queue.Assignment = "round-robin" }},
		{"mode", func(c *Config) { c.Input.Mode = "word" }},
		{"separator length", func(c *Config) { c.Output.Separator = "ab" }},
		{"separator newline", func(c *Config) { c.Output.Separator = "\n" }},
		{"byte mode without dir", func(c *Config) { c.Input.Mode = ModeByte; c.Output.Dir = "" }},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestValidateReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Queue.Capacity = 0
	cfg.Input.Mode = "word"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue.capacity")
	assert.Contains(t, err.Error(), "input.mode")
}

func TestGlobNeedsNoSourceCount(t *testing.T) {
	cfg := Default()
	cfg.Input.Sources = 0
	cfg.Input.Glob = "**/*.txt"
	assert.NoError(t, cfg.Validate())
}
