// Package compress provides the payload codecs of capture files.
//
// A capture stores the raw chunks of a recorded stream. The wire format repeats
// tags, ids and timestamps heavily, so general-purpose compression shrinks
// captures several times over. The codec used is recorded in the capture header
// as a format.CompressionType.
//
// # Supported Algorithms
//
//   - None (format.CompressionNone): payload stored as is
//   - Zstd (format.CompressionZstd): best ratio, for fixtures kept in a repository
//   - S2 (format.CompressionS2): fast, the default for recording live sessions
//   - LZ4 (format.CompressionLZ4): fastest decompression
//
// # Usage
//
//	codec, err := compress.GetCodec(format.CompressionS2)
//	if err != nil {
//	    return err
//	}
//	packed, err := codec.Compress(payload)
//	...
//	payload, err = codec.Decompress(packed, rawSize)
//
// Decompress takes the decompressed size as a hint. Capture headers store it, and
// LZ4 blocks need it because they do not record their own length.
//
// # Thread Safety
//
// Codecs are stateless values backed by pooled encoders and decoders; they are
// safe for concurrent use.
package compress
