// Package capture records the raw chunks of a result stream and replays them.
//
// A capture file is a fixed Header followed by the payload: every chunk as a
// 4-byte big-endian length and its bytes, the whole payload compressed with the
// codec named in the header. Chunk boundaries are kept, so a replay delivers
// exactly the chunks the transport delivered and exercises the same partial
// decode paths.
//
// Example:
//
//	w, _ := capture.NewWriter(file, capture.WithCompression(format.CompressionS2))
//	conn, _ := transport.Dial(ctx, cfg, transport.WithRecorder(w))
//	...
//	_ = w.Close()
//
//	c, _ := capture.Read(file)
//	err := c.Replay(ctrl)
package capture

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/arloliu/tickwire/compress"
	"github.com/arloliu/tickwire/endian"
	"github.com/arloliu/tickwire/errs"
	"github.com/arloliu/tickwire/format"
	"github.com/arloliu/tickwire/internal/hash"
	"github.com/arloliu/tickwire/internal/options"
	"github.com/arloliu/tickwire/internal/pool"
)

// maxRawSize bounds the payload a capture may declare.
const maxRawSize = 1 << 30

// Option configures a Writer.
type Option = options.Option[*Writer]

// WithCompression selects the payload codec. The default is S2.
func WithCompression(ct format.CompressionType) Option {
	return options.New(func(w *Writer) error {
		codec, err := compress.GetCodec(ct)
		if err != nil {
			return err
		}
		w.codec = codec

		return nil
	})
}

// Writer records chunks and writes the capture file on Close.
//
// Chunks are held in memory until Close. Writer is not safe for concurrent use.
type Writer struct {
	dst    io.Writer
	codec  compress.Codec
	raw    *pool.ByteBuffer
	digest *hash.Digest
	count  uint32
	closed bool
}

// NewWriter creates a Writer that writes the capture to dst on Close.
func NewWriter(dst io.Writer, opts ...Option) (*Writer, error) {
	w := &Writer{
		dst:    dst,
		codec:  compress.NewS2Compressor(),
		raw:    pool.GetStreamBuffer(),
		digest: hash.NewDigest(),
	}
	if err := options.Apply(w, opts...); err != nil {
		pool.PutStreamBuffer(w.raw)
		return nil, err
	}

	return w, nil
}

// Record appends a copy of chunk to the capture.
func (w *Writer) Record(chunk []byte) error {
	if w.closed {
		return errs.ErrClosed
	}
	if w.count == math.MaxUint32 || uint64(len(chunk)) > math.MaxUint32 {
		return fmt.Errorf("record chunk: capture is full")
	}

	var prefix [ChunkPrefixSize]byte
	endian.GetBigEndianEngine().PutUint32(prefix[:], uint32(len(chunk))) //nolint:gosec

	_, _ = w.raw.Write(prefix[:])
	_, _ = w.raw.Write(chunk)
	w.digest.Write(prefix[:])
	w.digest.Write(chunk)
	w.count++

	return nil
}

// Chunks returns the number of recorded chunks.
func (w *Writer) Chunks() int {
	return int(w.count)
}

// Close compresses the recorded payload and writes the capture file. It does not
// close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	defer func() {
		pool.PutStreamBuffer(w.raw)
		w.raw = nil
	}()

	payload, err := w.codec.Compress(w.raw.Bytes())
	if err != nil {
		return fmt.Errorf("compress capture: %w", err)
	}

	h := Header{
		Version:     Version,
		Compression: w.codec.Type(),
		ChunkCount:  w.count,
		RawSize:     uint64(w.raw.Len()), //nolint:gosec
		Checksum:    w.digest.Sum64(),
	}

	if _, err := w.dst.Write(h.Bytes()); err != nil {
		return fmt.Errorf("write capture header: %w", err)
	}
	if _, err := w.dst.Write(payload); err != nil {
		return fmt.Errorf("write capture payload: %w", err)
	}

	return nil
}

// Capture is a decoded capture file.
type Capture struct {
	Header Header
	Chunks [][]byte
}

// Read reads and verifies a whole capture file from r.
//
// Returns:
//   - *Capture: The header and the recorded chunks
//   - error: errs.ErrInvalidCaptureHeader, errs.ErrCaptureChecksum,
//     errs.ErrCaptureTruncated, or an I/O or decompression error
func Read(r io.Reader) (*Capture, error) {
	head := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, head); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: file shorter than header", errs.ErrInvalidCaptureHeader)
		}

		return nil, fmt.Errorf("read capture header: %w", err)
	}

	var h Header
	if err := h.Parse(head); err != nil {
		return nil, err
	}
	if h.RawSize > maxRawSize {
		return nil, fmt.Errorf("%w: payload of %d bytes", errs.ErrInvalidCaptureHeader, h.RawSize)
	}

	packed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read capture payload: %w", err)
	}

	codec, err := compress.GetCodec(h.Compression)
	if err != nil {
		return nil, err
	}
	raw, err := codec.Decompress(packed, int(h.RawSize))
	if err != nil {
		return nil, fmt.Errorf("decompress capture: %w", err)
	}
	if uint64(len(raw)) != h.RawSize {
		return nil, fmt.Errorf("%w: payload is %d bytes, header declares %d", errs.ErrCaptureTruncated, len(raw), h.RawSize)
	}
	if sum := hash.Sum(raw); sum != h.Checksum {
		return nil, fmt.Errorf("%w: got %016x, want %016x", errs.ErrCaptureChecksum, sum, h.Checksum)
	}

	chunks, err := splitChunks(raw, h.ChunkCount)
	if err != nil {
		return nil, err
	}

	return &Capture{Header: h, Chunks: chunks}, nil
}

func splitChunks(raw []byte, count uint32) ([][]byte, error) {
	engine := endian.GetBigEndianEngine()
	chunks := make([][]byte, 0, min(int(count), len(raw)/ChunkPrefixSize))

	for i := uint32(0); i < count; i++ {
		if len(raw) < ChunkPrefixSize {
			return nil, fmt.Errorf("%w: chunk %d has no length", errs.ErrCaptureTruncated, i)
		}
		size := int(engine.Uint32(raw))
		raw = raw[ChunkPrefixSize:]
		if len(raw) < size {
			return nil, fmt.Errorf("%w: chunk %d needs %d bytes, %d left", errs.ErrCaptureTruncated, i, size, len(raw))
		}
		chunks = append(chunks, raw[:size:size])
		raw = raw[size:]
	}

	if len(raw) != 0 {
		return nil, fmt.Errorf("%w: %d bytes after the last chunk", errs.ErrCaptureTruncated, len(raw))
	}

	return chunks, nil
}

// Handler consumes replayed chunks. stream.Controller implements it.
type Handler interface {
	Feed(chunk []byte) error
	Close() error
}

// Replay feeds every chunk to h in order, then closes h the way a transport
// does when the server ends the connection.
//
// Returns:
//   - error: The first error returned by h
func (c *Capture) Replay(h Handler) error {
	for _, chunk := range c.Chunks {
		if err := h.Feed(chunk); err != nil {
			_ = h.Close()
			return err
		}
	}

	return h.Close()
}

// Size returns the total number of recorded stream bytes.
func (c *Capture) Size() int {
	n := 0
	for _, chunk := range c.Chunks {
		n += len(chunk)
	}

	return n
}
