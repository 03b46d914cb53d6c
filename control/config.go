// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Listener configuration: defaults, YAML file loading and validation.

package control

import (
	"bytes"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap/zapcore"
)

// Color modes for console logging.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// MaxChunkSize bounds the per-read buffer.
const MaxChunkSize = 1 << 20

// Config holds the tunables of one listener process. The port is not part of
// it; it always comes from the command line.
type Config struct {
	Host      string `yaml:"host"`       // bind address, empty for all interfaces
	Backlog   int    `yaml:"backlog"`    // listen backlog, 0 for SOMAXCONN
	ChunkSize int    `yaml:"chunk_size"` // read buffer size in bytes
	MaxEvents int    `yaml:"max_events"` // epoll_wait batch size
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	Color     string `yaml:"color"`      // auto, always, never
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:      "",
		Backlog:   0,
		ChunkSize: 512,
		MaxEvents: 128,
		LogLevel:  "info",
		Color:     ColorAuto,
	}
}

// LoadConfig reads a YAML file over the defaults. Unknown keys are an error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 || c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("chunk_size %d out of range (1..%d)", c.ChunkSize, MaxChunkSize)
	}
	if c.MaxEvents <= 0 {
		return fmt.Errorf("max_events must be positive, got %d", c.MaxEvents)
	}
	if c.Backlog < 0 {
		return fmt.Errorf("backlog must not be negative, got %d", c.Backlog)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.Color {
	case "", ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("color must be auto, always or never, got %q", c.Color)
	}
	return nil
}

// Snapshot returns the configuration as a flat map for debug output.
func (c *Config) Snapshot() map[string]any {
	return map[string]any{
		"host":       c.Host,
		"backlog":    c.Backlog,
		"chunk_size": c.ChunkSize,
		"max_events": c.MaxEvents,
		"log_level":  c.LogLevel,
		"color":      c.Color,
	}
}
