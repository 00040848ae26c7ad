// Package request builds the message a client sends to open a result stream.
//
// The message is a JSON object {"code": "<query>"} prefixed with its length as
// an unsigned 16-bit little-endian integer.
package request

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/arloliu/tickwire/endian"
)

const (
	// MaxPayloadSize is the largest JSON payload the length prefix can describe.
	MaxPayloadSize = 1<<16 - 1
	// PrefixSize is the size of the length prefix.
	PrefixSize = 2

	// DefaultCode is the query sent when none is given.
	DefaultCode = "(version)"
	// TooLongCode replaces a query whose payload would exceed MaxPayloadSize.
	TooLongCode = "Message too long, must be < 64KB"
)

type envelope struct {
	Code string `json:"code"`
}

// Encode builds the request message for code.
//
// A payload larger than MaxPayloadSize is replaced by the payload of TooLongCode,
// so the server answers with an error instead of reading a truncated request.
//
// Parameters:
//   - code: Query text
//
// Returns:
//   - []byte: Length prefix followed by the JSON payload
//   - error: JSON encoding failure
func Encode(code string) ([]byte, error) {
	payload, err := sonic.Marshal(envelope{Code: code})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if len(payload) > MaxPayloadSize {
		if payload, err = sonic.Marshal(envelope{Code: TooLongCode}); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	msg := make([]byte, PrefixSize, PrefixSize+len(payload))
	endian.GetWireEngine().PutUint16(msg, uint16(len(payload))) //nolint:gosec

	return append(msg, payload...), nil
}

// Decode parses a request message. It is the inverse of Encode and serves
// servers and test doubles.
//
// Returns:
//   - string: The query text
//   - error: A message shorter than its prefix declares, or invalid JSON
func Decode(msg []byte) (string, error) {
	if len(msg) < PrefixSize {
		return "", fmt.Errorf("decode request: %d bytes, need %d", len(msg), PrefixSize)
	}

	size := int(endian.GetWireEngine().Uint16(msg))
	if len(msg)-PrefixSize < size {
		return "", fmt.Errorf("decode request: payload of %d bytes, prefix declares %d", len(msg)-PrefixSize, size)
	}

	var env envelope
	if err := sonic.Unmarshal(msg[PrefixSize:PrefixSize+size], &env); err != nil {
		return "", fmt.Errorf("decode request: %w", err)
	}

	return env.Code, nil
}
