// Package errs defines the sentinel errors shared by the tickwire packages.
//
// Errors fall into four groups:
//
//   - ErrInsufficientData is a control-flow signal: the bytes for the value are not
//     all present yet. It is always recoverable by waiting for more input.
//   - Protocol outcomes sent by the server (ErrServerError, ErrTerminationRequested)
//     end the stream once the value carrying them is committed.
//   - Malformed framing (ErrUnknownTag, ErrMalformedTensor) is reported and skipped.
//   - Resource exhaustion (ErrLengthExceeded, ErrBufferOverflow, ErrDecodeLimit) and
//     a negative length prefix, after which the framing cannot be recovered, are
//     fatal at the connection level.
//
// Callers compare with errors.Is; producers wrap with fmt.Errorf("%w: ...").
package errs

import "errors"

var (
	// ErrInsufficientData reports that the buffer ends before the value does.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUnknownTag reports a type tag outside the 16 defined kinds.
	ErrUnknownTag = errors.New("unknown type tag")
	// ErrMalformedTensor reports a tensor whose payload does not start with a shape array.
	ErrMalformedTensor = errors.New("tensor should start with a shape definition")
	// ErrInvalidShape reports a tensor shape with a non-positive or non-integer dimension.
	ErrInvalidShape = errors.New("invalid tensor shape")
	// ErrNonNumericTensorValue reports a tensor element that is not a number.
	ErrNonNumericTensorValue = errors.New("non numeric tensor value")
	// ErrNegativeLength reports a negative string or array length prefix.
	ErrNegativeLength = errors.New("negative length prefix")

	// ErrLengthExceeded reports an inline array larger than the configured limit allows.
	ErrLengthExceeded = errors.New("inline length exceeds limit")
	// ErrBufferOverflow reports more buffered bytes than the configured maximum.
	ErrBufferOverflow = errors.New("buffered bytes exceed limit")
	// ErrDecodeLimit reports that the decoded value count passed the configured maximum.
	ErrDecodeLimit = errors.New("decoded value count exceeds limit")

	// ErrServerError reports that the server sent an error value.
	ErrServerError = errors.New("server returned an error value")
	// ErrTerminationRequested reports a sentinel asking the client to close the connection.
	ErrTerminationRequested = errors.New("server requested termination")
	// ErrClosed reports use of a controller after it stopped.
	ErrClosed = errors.New("stream closed")

	// ErrInvalidCaptureHeader reports a capture file with a bad header.
	ErrInvalidCaptureHeader = errors.New("invalid capture header")
	// ErrCaptureChecksum reports a capture payload whose checksum does not match.
	ErrCaptureChecksum = errors.New("capture checksum mismatch")
	// ErrCaptureTruncated reports a capture payload ending inside a chunk.
	ErrCaptureTruncated = errors.New("capture payload truncated")
)

// IsFatal reports whether err terminates the connection.
func IsFatal(err error) bool {
	return errors.Is(err, ErrLengthExceeded) ||
		errors.Is(err, ErrNegativeLength) ||
		errors.Is(err, ErrBufferOverflow) ||
		errors.Is(err, ErrDecodeLimit) ||
		errors.Is(err, ErrServerError) ||
		errors.Is(err, ErrTerminationRequested) ||
		errors.Is(err, ErrClosed)
}
