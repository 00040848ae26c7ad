package compress

import "github.com/arloliu/tickwire/format"

// NoOpCompressor stores payloads unchanged.
type NoOpCompressor struct{}

var _ Codec = NoOpCompressor{}

// NewNoOpCompressor creates a codec that passes data through.
func NewNoOpCompressor() NoOpCompressor {
	return NoOpCompressor{}
}

// Type returns format.CompressionNone.
func (NoOpCompressor) Type() format.CompressionType {
	return format.CompressionNone
}

// Compress returns data itself. The result shares memory with the input.
func (NoOpCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns data itself. The result shares memory with the input.
func (NoOpCompressor) Decompress(data []byte, _ int) ([]byte, error) {
	return data, nil
}
