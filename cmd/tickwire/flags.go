package main

import (
	"github.com/urfave/cli/v2"

	"github.com/arloliu/tickwire/config"
)

var (
	// configFlag points to a tickwire.yaml file.
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a YAML config file",
		EnvVars: []string{"TICKWIRE_CONFIG"},
	}

	// formatFlag selects the output encoding.
	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, msgpack",
		Value:   string(formatJSON),
	}

	// compressionFlag selects the capture codec.
	compressionFlag = &cli.StringFlag{
		Name:  "compression",
		Usage: "Capture compression: none, zstd, s2, lz4 (default from config)",
	}

	maxDecodedFlag = &cli.Int64Flag{
		Name:  "max-decoded",
		Usage: "Abort after this many decoded values (default from config)",
	}

	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error (default from config)",
	}
)

// loadConfig reads the --config file, or the defaults, and applies the shared
// flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String(configFlag.Name); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet(compressionFlag.Name) {
		cfg.Capture.Compression = c.String(compressionFlag.Name)
	}
	if c.IsSet(maxDecodedFlag.Name) {
		cfg.Limits.MaxDecoded = c.Int64(maxDecodedFlag.Name)
	}
	if c.IsSet(logLevelFlag.Name) {
		cfg.Log.Level = c.String(logLevelFlag.Name)
	}

	return cfg, cfg.Validate()
}
