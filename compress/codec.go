package compress

import (
	"fmt"

	"github.com/arloliu/tickwire/format"
)

// Compressor compresses a capture payload.
type Compressor interface {
	// Compress returns the compressed form of data.
	//
	// The returned slice is owned by the caller. It may alias data for codecs that
	// do not transform their input.
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a payload written by the matching Compressor.
type Decompressor interface {
	// Decompress returns the original bytes of data.
	//
	// sizeHint is the expected decompressed size, or 0 when unknown. Codecs that
	// cannot recover the size from their own framing use it to size the output.
	Decompress(data []byte, sizeHint int) ([]byte, error)
}

// Codec combines both directions of one algorithm.
type Codec interface {
	Compressor
	Decompressor
	// Type returns the compression type recorded in capture headers.
	Type() format.CompressionType
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec returns the built-in Codec for compressionType.
//
// Parameters:
//   - compressionType: Type read from a capture header or configuration
//
// Returns:
//   - Codec: Shared codec, safe for concurrent use
//   - error: Unknown compression type
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}

// ParseCodec returns the built-in Codec named by name ("none", "zstd", "s2", "lz4").
func ParseCodec(name string) (Codec, error) {
	ct, ok := format.ParseCompression(name)
	if !ok {
		return nil, fmt.Errorf("unknown compression %q", name)
	}

	return GetCodec(ct)
}
