package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"

	"github.com/arloliu/tickwire/format"
)

// S2Compressor compresses with S2, the fast default for recording live streams.
type S2Compressor struct{}

var _ Codec = S2Compressor{}

// NewS2Compressor creates an S2 codec.
func NewS2Compressor() S2Compressor {
	return S2Compressor{}
}

// Type returns format.CompressionS2.
func (S2Compressor) Type() format.CompressionType {
	return format.CompressionS2
}

// Compress compresses data as one S2 block.
func (S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

// Decompress decodes one S2 block. The block carries its own length, so
// sizeHint is only checked.
func (S2Compressor) Decompress(data []byte, sizeHint int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompression failed: %w", err)
	}
	if sizeHint > 0 && n != sizeHint {
		return nil, fmt.Errorf("s2 decompression failed: block holds %d bytes, expected %d", n, sizeHint)
	}

	out, err := s2.Decode(make([]byte, n), data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompression failed: %w", err)
	}

	return out, nil
}
