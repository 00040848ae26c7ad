// Package encoding reads and writes the primitive fields of the result stream.
//
// Every value on the wire starts with a one byte type tag and a 24-bit id, followed
// by a payload built from a handful of little-endian primitives:
//
//   - int64: 8 bytes, two's complement
//   - float64: 8 bytes, IEEE 754
//   - Dec64: 8 bytes, exponent in the low byte, 56-bit signed mantissa above it
//   - string: int64 length followed by that many UTF-8 bytes
//   - duration: four int64 fields (years, months, days, nanoseconds)
//   - time: int64 nanoseconds since the Unix epoch
//
// # Reading
//
// Buffer accumulates the bytes received from the transport. Reads advance a
// speculative position; Commit discards everything before it and Rollback returns
// to the last commit. Every Read method is atomic: it either consumes the whole
// field or returns errs.ErrInsufficientData and leaves the position unchanged.
//
//	buf := encoding.NewBuffer()
//	defer buf.Release()
//
//	buf.Append(chunk)
//	v, err := buf.ReadInt64()
//	if errors.Is(err, errs.ErrInsufficientData) {
//	    buf.Rollback() // wait for the next chunk
//	}
//
// # Writing
//
// Builder produces complete frames for every value kind. The decoder tests, the
// demo program and the CLI encode command use it to build streams.
//
//	b := encoding.NewBuilder()
//	b.Array(0, value.Member{Tag: format.TypeTimeSerie, ID: 1})
//	b.Label(1, "close")
//	b.Point(1, value.Float(101.5), time.Now().UnixNano())
//	stream := b.Bytes()
package encoding
