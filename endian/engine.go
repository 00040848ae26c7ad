// Package endian provides the byte order used on the result stream.
//
// Every multi-byte field on the wire is little endian: 64-bit integers, doubles,
// Dec64 words and the 24-bit value ids. This package combines the standard
// library ByteOrder and AppendByteOrder interfaces into EndianEngine so readers
// and writers share one value, and adds the 24-bit helpers that encoding/binary
// does not provide.
//
// # Basic Usage
//
//	engine := endian.GetWireEngine()
//	v := int64(engine.Uint64(b[:8]))
//	id := endian.Uint24(b[8:11])
//
// # Thread Safety
//
// All functions and methods in this package are safe for concurrent use.
package endian

import "encoding/binary"

// MaxUint24 is the largest value representable by a 24-bit id.
const MaxUint24 = 1<<24 - 1

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary
// into a single interface for convenient byte order operations.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetWireEngine returns the engine matching the stream byte order.
func GetWireEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
//
// Capture file headers use it so they read naturally in a hex dump.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// Uint24 decodes a little-endian 24-bit unsigned integer from b.
// Panics if len(b) < 3, like the encoding/binary accessors.
func Uint24(b []byte) uint32 {
	_ = b[2] // bounds check hint to compiler
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// AppendUint24 appends the low 24 bits of v to b in little-endian order.
func AppendUint24(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16))
}
