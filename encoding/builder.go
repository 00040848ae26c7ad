package encoding

import (
	"math"

	"github.com/arloliu/tickwire/endian"
	"github.com/arloliu/tickwire/format"
	"github.com/arloliu/tickwire/value"
)

// Builder writes frames in wire format.
//
// Methods append to an internal byte slice and return the builder so that a
// stream can be written as a chain of calls. Composite values (Array, Pair,
// HeartBeat, Tensor) are written inline with id 0 for their elements.
type Builder struct {
	buf    []byte
	engine endian.EndianEngine
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		buf:    make([]byte, 0, 256),
		engine: endian.GetWireEngine(),
	}
}

// Bytes returns the written stream. The slice aliases the builder's storage.
func (b *Builder) Bytes() []byte {
	return b.buf
}

// Len returns the number of bytes written.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Reset discards everything written.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// Header writes a type tag and a 24-bit id.
func (b *Builder) Header(tag format.Tag, id uint32) *Builder {
	b.buf = append(b.buf, byte(tag))
	b.buf = endian.AppendUint24(b.buf, id)

	return b
}

// Int64 writes a raw int64 word.
func (b *Builder) Int64(v int64) *Builder {
	b.buf = b.engine.AppendUint64(b.buf, uint64(v)) //nolint:gosec
	return b
}

// Float64 writes a raw float64 word.
func (b *Builder) Float64(v float64) *Builder {
	b.buf = b.engine.AppendUint64(b.buf, math.Float64bits(v))
	return b
}

// Dec64 writes a raw Dec64 word.
func (b *Builder) Dec64(d value.Dec64) *Builder {
	b.buf = b.engine.AppendUint64(b.buf, EncodeDec64(d))
	return b
}

// Text writes a raw length-prefixed string.
func (b *Builder) Text(s string) *Builder {
	b.Int64(int64(len(s)))
	b.buf = append(b.buf, s...)

	return b
}

// Raw appends arbitrary bytes.
func (b *Builder) Raw(p []byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

// Value writes a complete frame: the tag of v, id, and the payload of v.
// A nil v is written as Null.
func (b *Builder) Value(id uint32, v value.Value) *Builder {
	if v == nil {
		v = value.Null{}
	}
	b.Header(v.Tag(), id)

	return b.payload(v)
}

// Array writes an array header declaring members in slot order.
func (b *Builder) Array(id uint32, members ...value.Member) *Builder {
	return b.Value(id, value.ArrayHeader{Members: members})
}

// Label writes a time series declaration.
func (b *Builder) Label(id uint32, label string) *Builder {
	return b.Value(id, value.Label(label))
}

// Point writes v for the series id followed by its timestamp in nanoseconds.
func (b *Builder) Point(id uint32, v value.Value, nanos int64) *Builder {
	return b.Value(id, v).Int64(nanos)
}

// KeylessPoint writes v for the series id with the format.NoTime timestamp.
func (b *Builder) KeylessPoint(id uint32, v value.Value) *Builder {
	return b.Point(id, v, format.NoTime)
}

// Tensor writes a tensor frame with the given shape and row-major values.
func (b *Builder) Tensor(id uint32, shape []int, values []float64) *Builder {
	b.Header(format.TypeTensor, id)
	b.tensorBody(shape, values)

	return b
}

func (b *Builder) tensorBody(shape []int, values []float64) {
	dims := make(value.Array, len(shape))
	for i, d := range shape {
		dims[i] = value.Int(d)
	}
	b.Value(0, dims)

	for _, v := range values {
		b.Value(0, value.Float(v))
	}
}

func (b *Builder) payload(v value.Value) *Builder {
	switch v := v.(type) {
	case value.Null:
		b.Int64(0)
	case value.Int:
		b.Int64(int64(v))
	case value.Float:
		b.Float64(float64(v))
	case value.Time:
		b.Int64(v.UnixNano())
	case value.Duration:
		b.Int64(v.Years).Int64(v.Months).Int64(v.Days).Int64(v.Nanos)
	case value.Error:
		b.Text(string(v))
	case value.String:
		b.Text(string(v))
	case value.Label:
		b.Text(string(v))
	case value.Sentinel:
		b.Int64(int64(v))
	case value.Bool:
		if v {
			b.Int64(1)
		} else {
			b.Int64(0)
		}
	case value.Dec64:
		b.Dec64(v)
	case value.ArrayHeader:
		b.Int64(int64(len(v.Members)))
		for _, m := range v.Members {
			b.Header(m.Tag, m.ID)
		}
	case value.Array:
		b.Int64(int64(len(v)))
		for _, elem := range v {
			b.Value(0, elem)
		}
	case value.Pair:
		b.Value(0, v[0]).Value(0, v[1])
	case value.HeartBeat:
		b.Value(0, v.Inner)
	case *value.Tensor:
		b.tensorBody(v.Shape, v.Values)
	}

	return b
}
