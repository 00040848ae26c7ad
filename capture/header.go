package capture

import (
	"fmt"

	"github.com/arloliu/tickwire/compress"
	"github.com/arloliu/tickwire/endian"
	"github.com/arloliu/tickwire/errs"
	"github.com/arloliu/tickwire/format"
)

const (
	// Magic starts every capture file.
	Magic = "TWCP"
	// Version is the capture layout written by this package.
	Version = 1
	// HeaderSize is the fixed header size in bytes.
	HeaderSize = 28
	// ChunkPrefixSize is the size of the length prefix of each chunk in the payload.
	ChunkPrefixSize = 4
)

// Header is the fixed-size section at the start of a capture file. Multi-byte
// fields are big endian.
type Header struct {
	// Version is the layout version.
	Version uint8 // byte offset 4
	// Compression is the codec applied to the payload.
	Compression format.CompressionType // byte offset 5
	// ChunkCount is the number of recorded chunks.
	ChunkCount uint32 // byte offset 8-11
	// RawSize is the payload size before compression.
	RawSize uint64 // byte offset 12-19
	// Checksum is the xxHash64 of the payload before compression.
	Checksum uint64 // byte offset 20-27
}

// Parse parses the header from data.
//
// Parameters:
//   - data: Byte slice holding exactly HeaderSize bytes
//
// Returns:
//   - error: errs.ErrInvalidCaptureHeader for a wrong size, magic, version or
//     compression type
func (h *Header) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return fmt.Errorf("%w: %d bytes, want %d", errs.ErrInvalidCaptureHeader, len(data), HeaderSize)
	}
	if string(data[0:4]) != Magic {
		return fmt.Errorf("%w: bad magic %q", errs.ErrInvalidCaptureHeader, data[0:4])
	}

	engine := endian.GetBigEndianEngine()

	h.Version = data[4]
	h.Compression = format.CompressionType(data[5])
	// bytes 6-7 are reserved
	h.ChunkCount = engine.Uint32(data[8:12])
	h.RawSize = engine.Uint64(data[12:20])
	h.Checksum = engine.Uint64(data[20:28])

	if h.Version != Version {
		return fmt.Errorf("%w: unsupported version %d", errs.ErrInvalidCaptureHeader, h.Version)
	}
	if _, err := compress.GetCodec(h.Compression); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidCaptureHeader, err)
	}

	return nil
}

// Bytes serializes the header.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	engine := endian.GetBigEndianEngine()

	copy(b[0:4], Magic)
	b[4] = h.Version
	b[5] = uint8(h.Compression)
	engine.PutUint32(b[8:12], h.ChunkCount)
	engine.PutUint64(b[12:20], h.RawSize)
	engine.PutUint64(b[20:28], h.Checksum)

	return b
}
