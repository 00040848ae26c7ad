package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/arloliu/tickwire/capture"
	"github.com/arloliu/tickwire/encoding"
	"github.com/arloliu/tickwire/format"
	"github.com/arloliu/tickwire/value"
)

// sampleStart is the timestamp of the first sample point, 2024-01-02T09:00:00Z.
const sampleStart int64 = 1_704_186_000_000_000_000

func encodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "Write a sample result stream, as a hex dump, raw bytes or a capture",
		Flags: []cli.Flag{
			compressionFlag,
			&cli.IntFlag{Name: "points", Usage: "Number of series points", Value: 10},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to this file instead of a hex dump on stdout"},
			&cli.BoolFlag{Name: "capture", Usage: "Write a capture file instead of raw bytes (requires --out)"},
			&cli.IntFlag{Name: "chunk", Usage: "Chunk size of the capture", Value: 64},
		},
		Action: encodeAction,
	}
}

func encodeAction(c *cli.Context) error {
	points := c.Int("points")
	if points < 0 {
		return fmt.Errorf("points must not be negative, got %d", points)
	}
	data := sampleStream(points)

	out := c.String("out")
	if out == "" {
		if c.Bool("capture") {
			return cli.Exit("--capture requires --out", exitFailure)
		}
		_, err := fmt.Fprint(c.App.Writer, hex.Dump(data))

		return err
	}

	if !c.Bool("capture") {
		return os.WriteFile(out, data, 0o644)
	}

	name := c.String(compressionFlag.Name)
	if name == "" {
		name = "s2"
	}
	ct, ok := format.ParseCompression(name)
	if !ok {
		return fmt.Errorf("unknown compression %q", name)
	}
	chunkSize := c.Int("chunk")
	if chunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create capture: %w", err)
	}
	defer file.Close()

	w, err := capture.NewWriter(file, capture.WithCompression(ct))
	if err != nil {
		return err
	}
	for start := 0; start < len(data); start += chunkSize {
		if err := w.Record(data[start:min(start+chunkSize, len(data))]); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	return file.Close()
}

// sampleStream builds the answer to a query returning [series, symbol]: a
// "close" series with the given number of minute points, a keep-alive value and
// the symbol string.
func sampleStream(points int) []byte {
	b := encoding.NewBuilder().
		Array(0,
			value.Member{Tag: format.TypeTimeSerie, ID: 1},
			value.Member{Tag: format.TypeString, ID: 2},
		).
		Label(1, "close")

	for i := range points {
		price := value.Dec64{Mantissa: int64(108_500 + 7*i), Exponent: -5}
		b.Point(1, price, sampleStart+int64(i)*60_000_000_000)
	}

	b.Value(0, value.HeartBeat{Inner: value.Int(0)})
	b.Value(2, value.String("EURUSD"))

	return b.Bytes()
}
