package encoding

import (
	"fmt"
	"math"
	"time"

	"github.com/arloliu/tickwire/endian"
	"github.com/arloliu/tickwire/errs"
	"github.com/arloliu/tickwire/format"
	"github.com/arloliu/tickwire/internal/pool"
	"github.com/arloliu/tickwire/value"
)

const (
	// TagSize is the size of a type tag.
	TagSize = 1
	// IDSize is the size of a value id.
	IDSize = 3
	// HeaderSize is the size of a tag followed by an id.
	HeaderSize = TagSize + IDSize
	// WordSize is the size of every fixed-width payload field.
	WordSize = 8
	// MinFrameSize is the smallest complete frame: a header and one word.
	MinFrameSize = HeaderSize + WordSize
	// DurationSize is the payload size of a duration.
	DurationSize = 4 * WordSize
)

// Buffer is the byte cursor over the not yet consumed part of the stream.
//
// It tracks two positions: the committed offset, which is the front of the held
// bytes, and the speculative position pos, where the next read starts. Reads only
// move pos; Commit makes the bytes before pos unreachable and Rollback moves pos
// back to the committed offset. The invariant 0 <= pos <= Len() always holds.
//
// Buffer is not safe for concurrent use.
type Buffer struct {
	bb        *pool.ByteBuffer
	engine    endian.EndianEngine
	pos       int
	committed int64
}

// NewBuffer creates an empty Buffer backed by a pooled byte buffer.
// Call Release when the buffer is no longer needed.
func NewBuffer() *Buffer {
	return &Buffer{
		bb:     pool.GetStreamBuffer(),
		engine: endian.GetWireEngine(),
	}
}

// Append adds transport bytes at the end of the buffer.
func (b *Buffer) Append(p []byte) {
	_, _ = b.bb.Write(p)
}

// Len returns the number of held bytes, consumed speculatively or not.
func (b *Buffer) Len() int {
	return b.bb.Len()
}

// Pos returns the speculative read position relative to the committed offset.
func (b *Buffer) Pos() int {
	return b.pos
}

// Available returns the number of bytes after the speculative position.
func (b *Buffer) Available() int {
	return b.bb.Len() - b.pos
}

// Committed returns the total number of bytes discarded by Commit since creation.
func (b *Buffer) Committed() int64 {
	return b.committed
}

// Commit discards the bytes before the speculative position.
func (b *Buffer) Commit() {
	if b.pos == 0 {
		return
	}

	b.bb.Discard(b.pos)
	b.committed += int64(b.pos)
	b.pos = 0
}

// Rollback moves the speculative position back to the committed offset.
func (b *Buffer) Rollback() {
	b.pos = 0
}

// Seek moves the speculative position to pos, typically a value returned by an
// earlier Pos call. Panics if pos is outside [0, Len()].
func (b *Buffer) Seek(pos int) {
	if pos < 0 || pos > b.bb.Len() {
		panic("Seek: position out of range")
	}
	b.pos = pos
}

// Release returns the backing storage to the pool. The buffer must not be used
// afterwards.
func (b *Buffer) Release() {
	if b.bb == nil {
		return
	}

	pool.PutStreamBuffer(b.bb)
	b.bb = nil
	b.pos = 0
}

// TryRead returns the next n bytes and advances past them.
//
// The returned slice aliases the buffer and is valid until the next Append or Commit.
//
// Returns:
//   - []byte: The n bytes at the speculative position
//   - error: errs.ErrInsufficientData if fewer than n bytes are available; the
//     position is then unchanged
func (b *Buffer) TryRead(n int) ([]byte, error) {
	if n < 0 {
		return nil, errs.ErrNegativeLength
	}
	if b.Available() < n {
		return nil, errs.ErrInsufficientData
	}

	data := b.bb.B[b.pos : b.pos+n]
	b.pos += n

	return data, nil
}

// Skip advances past n bytes.
func (b *Buffer) Skip(n int) error {
	_, err := b.TryRead(n)
	return err
}

// ReadTag reads a type tag.
func (b *Buffer) ReadTag() (format.Tag, error) {
	data, err := b.TryRead(TagSize)
	if err != nil {
		return 0, err
	}

	return format.Tag(int8(data[0])), nil
}

// ReadID reads a 24-bit value id.
func (b *Buffer) ReadID() (uint32, error) {
	data, err := b.TryRead(IDSize)
	if err != nil {
		return 0, err
	}

	return endian.Uint24(data), nil
}

// ReadHeader reads a type tag and the id following it, atomically.
func (b *Buffer) ReadHeader() (format.Tag, uint32, error) {
	data, err := b.TryRead(HeaderSize)
	if err != nil {
		return 0, 0, err
	}

	return format.Tag(int8(data[0])), endian.Uint24(data[TagSize:]), nil
}

// ReadInt64 reads a signed 64-bit integer.
func (b *Buffer) ReadInt64() (int64, error) {
	data, err := b.TryRead(WordSize)
	if err != nil {
		return 0, err
	}

	return int64(b.engine.Uint64(data)), nil //nolint:gosec
}

// ReadFloat64 reads an IEEE 754 double.
func (b *Buffer) ReadFloat64() (float64, error) {
	data, err := b.TryRead(WordSize)
	if err != nil {
		return 0, err
	}

	return math.Float64frombits(b.engine.Uint64(data)), nil
}

// ReadDec64 reads a Dec64 decimal.
func (b *Buffer) ReadDec64() (value.Dec64, error) {
	data, err := b.TryRead(WordSize)
	if err != nil {
		return value.Dec64{}, err
	}

	return DecodeDec64(b.engine.Uint64(data)), nil
}

// ReadTime reads nanoseconds since the Unix epoch as a UTC time.
func (b *Buffer) ReadTime() (time.Time, error) {
	nanos, err := b.ReadInt64()
	if err != nil {
		return time.Time{}, err
	}

	return time.Unix(0, nanos).UTC(), nil
}

// ReadString reads a length-prefixed UTF-8 string.
//
// The length prefix and the bytes are consumed together: when the string is not
// complete the position stays before the length prefix.
//
// Returns:
//   - string: The decoded string
//   - error: errs.ErrInsufficientData when incomplete, errs.ErrNegativeLength when
//     the prefix is negative
func (b *Buffer) ReadString() (string, error) {
	start := b.pos

	size, err := b.ReadInt64()
	if err != nil {
		return "", err
	}
	if size < 0 {
		b.pos = start
		return "", fmt.Errorf("%w: string length %d", errs.ErrNegativeLength, size)
	}
	if int64(b.Available()) < size {
		b.pos = start
		return "", errs.ErrInsufficientData
	}

	data, _ := b.TryRead(int(size))

	return string(data), nil
}

// ReadDuration reads the four fields of a duration. Nothing is consumed unless
// all 32 bytes are available.
func (b *Buffer) ReadDuration() (value.Duration, error) {
	data, err := b.TryRead(DurationSize)
	if err != nil {
		return value.Duration{}, err
	}

	field := func(i int) int64 {
		return int64(b.engine.Uint64(data[i*WordSize:])) //nolint:gosec
	}

	return value.Duration{
		Years:  field(0),
		Months: field(1),
		Days:   field(2),
		Nanos:  field(3),
	}, nil
}

// DecodeDec64 unpacks a Dec64 word: the low byte is the signed exponent and the
// upper 56 bits are the signed mantissa.
func DecodeDec64(word uint64) value.Dec64 {
	return value.Dec64{
		Mantissa: int64(word) >> 8, //nolint:gosec
		Exponent: int8(word),       //nolint:gosec
	}
}

// EncodeDec64 packs d into a Dec64 word. The mantissa must fit in 56 bits.
func EncodeDec64(d value.Dec64) uint64 {
	return uint64(d.Mantissa)<<8 | uint64(uint8(d.Exponent)) //nolint:gosec
}
