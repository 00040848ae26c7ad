package stream

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arloliu/tickwire/decoder"
	"github.com/arloliu/tickwire/internal/options"
	"github.com/arloliu/tickwire/session"
	"github.com/arloliu/tickwire/value"
)

const (
	// DefaultMaxDecoded is the default decoded value limit of a stream.
	DefaultMaxDecoded = 200000
	// DefaultMaxBufferBytes is the default limit of bytes held while waiting for
	// the end of a value.
	DefaultMaxBufferBytes = 64 << 20
)

// Closer is implemented by transports the controller can shut down.
type Closer interface {
	Close() error
}

// Consumer receives a snapshot of the session after every decode attempt,
// including attempts that decoded nothing.
type Consumer func(snap session.Snapshot)

// TensorHandler receives every completed top-level tensor after it was routed.
type TensorHandler func(id uint32, t *value.Tensor)

// Option configures a Controller.
type Option = options.Option[*Controller]

// WithMaxDecoded sets the decoded value count past which the stream is aborted.
//
// Returns an error from New if n is not positive.
func WithMaxDecoded(n int64) Option {
	return options.New(func(c *Controller) error {
		if n <= 0 {
			return fmt.Errorf("max decoded must be positive, got %d", n)
		}
		c.maxDecoded = n

		return nil
	})
}

// WithMaxBufferBytes sets how many bytes may be held before the stream is aborted.
//
// Returns an error from New if n is smaller than one frame.
func WithMaxBufferBytes(n int) Option {
	return options.New(func(c *Controller) error {
		if n < minBufferBytes {
			return fmt.Errorf("max buffer bytes must be at least %d, got %d", minBufferBytes, n)
		}
		c.maxBufferBytes = n

		return nil
	})
}

// WithMaxLength sets the inline array limit of the underlying decoder.
func WithMaxLength(n int64) Option {
	return options.NoError(func(c *Controller) {
		c.decoderOpts = append(c.decoderOpts, decoder.WithMaxLength(n))
	})
}

// WithConsumer sets the snapshot consumer.
func WithConsumer(fn Consumer) Option {
	return options.NoError(func(c *Controller) {
		c.consumer = fn
	})
}

// WithLogger sets the logger. The controller adds a session field to it.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithCloser sets the transport closed when the stream is aborted.
func WithCloser(closer Closer) Option {
	return options.NoError(func(c *Controller) {
		c.closer = closer
	})
}

// WithMetrics sets the collectors updated by the controller.
func WithMetrics(m *Metrics) Option {
	return options.NoError(func(c *Controller) {
		c.metrics = m
	})
}

// WithTensorHandler sets the callback receiving completed top-level tensors.
func WithTensorHandler(fn TensorHandler) Option {
	return options.NoError(func(c *Controller) {
		c.onTensor = fn
	})
}
