// Package config handles the YAML configuration file of the tickwire CLI.
//
// Every value is optional; missing values keep the defaults of Default, and
// command-line flags override the file.
package config

import (
	"fmt"
	"time"

	"github.com/arloliu/tickwire/format"
	"github.com/arloliu/tickwire/stream"
	"github.com/arloliu/tickwire/transport"
)

// Config represents a tickwire.yaml configuration file.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Limits  LimitsConfig  `yaml:"limits"`
	Log     LogConfig     `yaml:"log"`
	Capture CaptureConfig `yaml:"capture"`
}

// ServerConfig locates the LispTick server.
type ServerConfig struct {
	Host             string   `yaml:"host"`
	Port             int      `yaml:"port"`
	Path             string   `yaml:"path"`
	Secure           bool     `yaml:"secure"`
	HandshakeTimeout Duration `yaml:"handshake_timeout"`
	// Timeout bounds a whole query, 0 for no limit.
	Timeout Duration `yaml:"timeout"`
}

// LimitsConfig holds the stream guards.
type LimitsConfig struct {
	MaxDecoded     int64 `yaml:"max_decoded"`
	MaxBufferBytes int   `yaml:"max_buffer_bytes"`
}

// LogConfig selects the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// CaptureConfig holds capture defaults.
type CaptureConfig struct {
	// Compression is none, zstd, s2 or lz4.
	Compression string `yaml:"compression"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed

	return nil
}

// MarshalYAML writes the duration in time.Duration notation.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             transport.DefaultHost,
			Port:             transport.DefaultPort,
			Path:             transport.DefaultPath,
			HandshakeTimeout: Duration{transport.DefaultHandshakeTimeout},
		},
		Limits: LimitsConfig{
			MaxDecoded:     stream.DefaultMaxDecoded,
			MaxBufferBytes: stream.DefaultMaxBufferBytes,
		},
		Log: LogConfig{
			Level: "info",
		},
		Capture: CaptureConfig{
			Compression: "s2",
		},
	}
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Limits.MaxDecoded <= 0 {
		return fmt.Errorf("limits.max_decoded must be positive, got %d", c.Limits.MaxDecoded)
	}
	if c.Limits.MaxBufferBytes <= 0 {
		return fmt.Errorf("limits.max_buffer_bytes must be positive, got %d", c.Limits.MaxBufferBytes)
	}
	if _, ok := format.ParseCompression(c.Capture.Compression); !ok {
		return fmt.Errorf("capture.compression %q is not one of none, zstd, s2, lz4", c.Capture.Compression)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}

	return nil
}

// Transport returns the transport configuration of the server section.
func (c *Config) Transport() transport.Config {
	return transport.Config{
		Host:             c.Server.Host,
		Port:             c.Server.Port,
		Path:             c.Server.Path,
		Secure:           c.Server.Secure,
		HandshakeTimeout: c.Server.HandshakeTimeout.Duration,
	}
}

// StreamOptions returns the controller options of the limits section.
func (c *Config) StreamOptions() []stream.Option {
	return []stream.Option{
		stream.WithMaxDecoded(c.Limits.MaxDecoded),
		stream.WithMaxBufferBytes(c.Limits.MaxBufferBytes),
	}
}
