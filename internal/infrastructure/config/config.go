package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. TOKENIZER_INPUT_SOURCES
const EnvPrefix = "TOKENIZER"

// Modes
const (
	ModeLine = "line"
	ModeByte = "byte"
)

// Assignment policies
const (
	AssignRandom = "random"
	AssignPinned = "pinned"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config holds all tokenizer configuration.
type Config struct {
	Input   InputConfig  `envconfig:"INPUT" yaml:"input" toml:"input" json:"input"`
	Queue   QueueConfig  `envconfig:"QUEUE" yaml:"queue" toml:"queue" json:"queue"`
	Output  OutputConfig `envconfig:"OUTPUT" yaml:"output" toml:"output" json:"output"`
	Logging LogConfig    `envconfig:"LOG" yaml:"logging" toml:"logging" json:"logging"`
	Server  ServerConfig `envconfig:"SERVER" yaml:"server" toml:"server" json:"server"`
}

// InputConfig selects the sources and how they are read.
type InputConfig struct {
	Dir         string   `split_words:"true" yaml:"dir" toml:"dir" json:"dir"`
	Sources     int      `split_words:"true" yaml:"sources" toml:"sources" json:"sources"`
	Glob        string   `split_words:"true" yaml:"glob" toml:"glob" json:"glob"`
	Walk        bool     `split_words:"true" yaml:"walk" toml:"walk" json:"walk"`
	Extensions  []string `split_words:"true" yaml:"extensions" toml:"extensions" json:"extensions"`
	Mode        string   `split_words:"true" yaml:"mode" toml:"mode" json:"mode"`
	MaxItemSize int      `split_words:"true" yaml:"max_item_size" toml:"max_item_size" json:"max_item_size"`
	AllowBinary bool     `split_words:"true" yaml:"allow_binary" toml:"allow_binary" json:"allow_binary"`
	RateLimit   float64  `split_words:"true" yaml:"rate_limit" toml:"rate_limit" json:"rate_limit"`
}

// QueueConfig sizes the queue set.
type QueueConfig struct {
	// Count of queues and consumers; 0 means one per source
	Count        int      `split_words:"true" yaml:"count" toml:"count" json:"count"`
	Capacity     int      `split_words:"true" yaml:"capacity" toml:"capacity" json:"capacity"`
	ProbeLimit   int      `split_words:"true" yaml:"probe_limit" toml:"probe_limit" json:"probe_limit"`
	Seed         uint64   `split_words:"true" yaml:"seed" toml:"seed" json:"seed"`
	Assignment   string   `split_words:"true" yaml:"assignment" toml:"assignment" json:"assignment"`
	DrainTimeout Duration `split_words:"true" yaml:"drain_timeout" toml:"drain_timeout" json:"drain_timeout"`
}

// OutputConfig controls the transform and where results go.
type OutputConfig struct {
	Separator string `split_words:"true" yaml:"separator" toml:"separator" json:"separator"`
	Dir       string `split_words:"true" yaml:"dir" toml:"dir" json:"dir"`
	Report    string `split_words:"true" yaml:"report" toml:"report" json:"report"`
	Timing    bool   `split_words:"true" yaml:"timing" toml:"timing" json:"timing"`
	Events    bool   `split_words:"true" yaml:"events" toml:"events" json:"events"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `split_words:"true" yaml:"level" toml:"level" json:"level"`
	Development bool   `split_words:"true" yaml:"development" toml:"development" json:"development"`
}

// ServerConfig holds the optional metrics endpoint. An empty Addr
// disables it.
type ServerConfig struct {
	Addr string `split_words:"true" yaml:"addr" toml:"addr" json:"addr"`
}

// Load returns the defaults overlaid with TOKENIZER_* environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile returns the defaults overlaid with the config file at path and
// then the environment. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := ApplyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays the environment onto cfg. Fields without a variable
// keep their current value.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Dir:         "lorem_ipsum",
			Sources:     4,
			Extensions:  []string{".txt", ".gz", ".zst"},
			Mode:        ModeLine,
			MaxItemSize: 256,
		},
		Queue: QueueConfig{
			Capacity:     256,
			DrainTimeout: Duration(30 * time.Second),
		},
		Output: OutputConfig{
			Separator: " ",
			Dir:       "output",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Queues returns the queue count, defaulting to one per source
func (c *Config) Queues(sources int) int {
	if c.Queue.Count > 0 {
		return c.Queue.Count
	}
	return sources
}

// AssignmentPolicy returns the configured policy or the mode's default:
// random for line mode, pinned for byte mode
func (c *Config) AssignmentPolicy() string {
	if c.Queue.Assignment != "" {
		return c.Queue.Assignment
	}
	if c.Input.Mode == ModeByte {
		return AssignPinned
	}
	return AssignRandom
}

// SeparatorByte returns the separator as a single byte
func (c *Config) SeparatorByte() byte {
	return c.Output.Separator[0]
}

// Validate reports every out-of-range setting at once
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Input.Glob == "" && !c.Input.Walk && c.Input.Sources < 1 {
		bad("input.sources must be at least 1, got %d", c.Input.Sources)
	}
	if c.Input.Glob != "" && c.Input.Walk {
		bad("input.glob and input.walk are exclusive")
	}
	if c.Input.MaxItemSize < 2 {
		bad("input.max_item_size must be at least 2, got %d", c.Input.MaxItemSize)
	}
	if c.Input.RateLimit < 0 {
		bad("input.rate_limit must not be negative, got %g", c.Input.RateLimit)
	}
	if c.Queue.Count < 0 {
		bad("queue.count must not be negative, got %d", c.Queue.Count)
	}
	if c.Queue.Capacity < 1 {
		bad("queue.capacity must be at least 1, got %d", c.Queue.Capacity)
	}
	if c.Queue.ProbeLimit < 0 {
		bad("queue.probe_limit must not be negative, got %d", c.Queue.ProbeLimit)
	}
	if c.Queue.DrainTimeout <= 0 {
		bad("queue.drain_timeout must be positive, got %s", c.Queue.DrainTimeout)
	}
	switch c.Queue.Assignment {
	case "", AssignRandom, AssignPinned:
	default:
		bad("queue.assignment must be %q or %q, got %q", AssignRandom, AssignPinned, c.Queue.Assignment)
	}
	switch c.Input.Mode {
	case ModeLine, ModeByte:
	default:
		bad("input.mode must be %q or %q, got %q", ModeLine, ModeByte, c.Input.Mode)
	}
	if len(c.Output.Separator) != 1 {
		bad("output.separator must be a single byte, got %q", c.Output.Separator)
	} else if c.Output.Separator == "\n" {
		bad("output.separator must not be a newline")
	}
	if c.Input.Mode == ModeByte && strings.TrimSpace(c.Output.Dir) == "" {
		bad("output.dir is required in byte mode")
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		bad("logging.level %q: %v", c.Logging.Level, err)
	}

	return errors.Join(errs...)
}

func parseLevel(level string) (string, error) {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return strings.ToLower(level), nil
	}
	return "", fmt.Errorf("unknown level")
}
