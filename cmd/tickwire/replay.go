package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/arloliu/tickwire/capture"
	"github.com/arloliu/tickwire/internal/logging"
	"github.com/arloliu/tickwire/stream"
)

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Decode a capture file, or a raw stream with --raw",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			configFlag,
			formatFlag,
			maxDecodedFlag,
			logLevelFlag,
			&cli.BoolFlag{Name: "raw", Usage: "Treat the file as raw stream bytes instead of a capture"},
			&cli.IntFlag{Name: "chunk", Usage: "Chunk size used to feed a raw stream", Value: 4096},
		},
		Action: replayAction,
	}
}

func replayAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("replay requires a file argument", exitFailure)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	outFormat, err := parseFormat(c.String(formatFlag.Name))
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, c.App.ErrWriter)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	chunks, err := readChunks(path, c.Bool("raw"), c.Int("chunk"))
	if err != nil {
		return err
	}

	ctrl, err := stream.New(append(cfg.StreamOptions(), stream.WithLogger(logger))...)
	if err != nil {
		return err
	}
	logger.Debug("replaying", zap.String("path", path), zap.Int("chunks", len(chunks)))

	replayErr := (&capture.Capture{Chunks: chunks}).Replay(ctrl)

	if err := render(c.App.Writer, outFormat, ctrl.Snapshot()); err != nil {
		return err
	}

	return exitError(replayErr)
}

// readChunks loads the chunks of a capture file, or splits a raw stream file
// into chunkSize pieces.
func readChunks(path string, raw bool, chunkSize int) ([][]byte, error) {
	if !raw {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open capture: %w", err)
		}
		defer file.Close()

		cp, err := capture.Read(file)
		if err != nil {
			return nil, err
		}

		return cp.Chunks, nil
	}

	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}

	chunks := make([][]byte, 0, len(data)/chunkSize+1)
	for start := 0; start < len(data); start += chunkSize {
		chunks = append(chunks, data[start:min(start+chunkSize, len(data))])
	}

	return chunks, nil
}
