// Package stream drives the decoding of one result stream.
//
// A Controller owns the byte buffer and the session of one connection. The
// transport calls Feed with every chunk it receives, in order, from a single
// goroutine. Feed decodes every complete value in the buffer, reports a snapshot
// to the consumer after each attempt and returns once the buffer ends inside a
// value. When the stream must stop (server error, termination sentinel, decode or
// buffer limit), Feed closes the transport and returns the fatal error; later
// calls return the same error without decoding.
//
// Example:
//
//	ctrl, err := stream.New(
//	    stream.WithConsumer(func(snap session.Snapshot) { render(snap.Items()) }),
//	    stream.WithCloser(conn),
//	)
//	if err != nil {
//	    return err
//	}
//	defer ctrl.Close()
//
//	for chunk := range chunks {
//	    if err := ctrl.Feed(chunk); err != nil {
//	        return err
//	    }
//	}
package stream

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arloliu/tickwire/decoder"
	"github.com/arloliu/tickwire/encoding"
	"github.com/arloliu/tickwire/errs"
	"github.com/arloliu/tickwire/format"
	"github.com/arloliu/tickwire/internal/options"
	"github.com/arloliu/tickwire/session"
	"github.com/arloliu/tickwire/value"
)

const minBufferBytes = encoding.MinFrameSize

// Controller runs decode attempts over the bytes of one connection.
//
// Controller is not safe for concurrent use; the transport must serialize calls.
type Controller struct {
	id      uuid.UUID
	logger  *zap.Logger
	decoder *decoder.Decoder
	buf     *encoding.Buffer
	state   *session.State

	consumer Consumer
	closer   Closer
	metrics  *Metrics
	onTensor TensorHandler

	maxDecoded     int64
	maxBufferBytes int
	decoderOpts    []decoder.Option

	err    error
	closed bool
}

// New creates a Controller with a fresh session.
//
// Parameters:
//   - opts: Functional options
//
// Returns:
//   - *Controller: The controller, ready for Feed
//   - error: An invalid option
func New(opts ...Option) (*Controller, error) {
	c := &Controller{
		id:             uuid.New(),
		logger:         zap.NewNop(),
		state:          session.New(),
		maxDecoded:     DefaultMaxDecoded,
		maxBufferBytes: DefaultMaxBufferBytes,
	}
	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	c.logger = c.logger.With(zap.String("session", c.id.String()))

	dec, err := decoder.New(append([]decoder.Option{decoder.WithLogger(c.logger)}, c.decoderOpts...)...)
	if err != nil {
		return nil, err
	}
	c.decoder = dec
	c.buf = encoding.NewBuffer()
	c.metrics.sessionOpened()

	return c, nil
}

// SessionID returns the id attached to the controller's log lines.
func (c *Controller) SessionID() uuid.UUID {
	return c.id
}

// Snapshot returns the current view of the session.
func (c *Controller) Snapshot() session.Snapshot {
	return c.state.Snapshot()
}

// State returns the session. It must not be modified while the stream runs.
func (c *Controller) State() *session.State {
	return c.state
}

// Err returns the error that stopped the stream, or nil.
func (c *Controller) Err() error {
	return c.err
}

// Buffered returns the number of received bytes not yet consumed.
func (c *Controller) Buffered() int {
	if c.buf == nil {
		return 0
	}

	return c.buf.Len()
}

// Feed appends chunk to the buffer and decodes every complete value.
//
// Decoding pauses after a keep-alive value; a later Feed, with a nil chunk if no
// bytes arrived, continues with the buffered bytes.
//
// Returns:
//   - error: nil while the stream is healthy, otherwise the fatal error that
//     stopped it (errs.IsFatal reports true for it)
func (c *Controller) Feed(chunk []byte) error {
	if c.err != nil {
		return c.err
	}
	if c.closed {
		return errs.ErrClosed
	}

	c.metrics.chunk(len(chunk))
	if held := c.buf.Len() + len(chunk); held > c.maxBufferBytes {
		return c.abort("buffer_overflow",
			fmt.Errorf("%w: %d bytes, limit %d", errs.ErrBufferOverflow, held, c.maxBufferBytes))
	}
	c.buf.Append(chunk)

	return c.run()
}

// Close stops the controller. If no error stopped the stream and at least one
// frame worth of bytes is still buffered, one more decode pass flushes a trailing
// value. Close does not close the transport. Calling Close again is a no-op.
//
// Returns:
//   - error: The fatal error raised by the flush, if any
func (c *Controller) Close() error {
	if c.closed {
		return nil
	}

	var err error
	if c.err == nil && c.buf.Len() >= encoding.MinFrameSize {
		c.logger.Debug("flushing buffered bytes", zap.Int("buffered", c.buf.Len()))
		err = c.run()
	}

	c.closed = true
	c.buf.Release()
	c.buf = nil
	c.metrics.sessionClosed()

	return err
}

// run decodes until the buffer ends inside a value, a keep-alive value is read
// or the stream must stop.
func (c *Controller) run() error {
	values := 0
	for {
		c.state.Mark()
		d, err := c.decoder.Next(c.buf, c.state)
		if err != nil {
			if !errors.Is(err, errs.ErrInsufficientData) {
				c.emit()
				return c.abort("decode_error", err)
			}

			c.buf.Rollback()
			c.state.Restore()
			c.metrics.attemptIncomplete(c.buf.Len(), values)
			c.emit()

			// elements of a parked tensor stay committed and counted
			return c.checkLimit()
		}

		c.buf.Commit()
		values++
		c.metrics.decoded(d)
		if t, ok := d.Value.(*value.Tensor); ok && d.Tag == format.TypeTensor {
			c.metrics.tensorCompleted()
			if c.onTensor != nil {
				c.onTensor(d.ID, t)
			}
		}
		c.emit()

		if err := c.check(d); err != nil {
			return err
		}
		if d.Heartbeat {
			return nil
		}
	}
}

// check stops the stream when the committed value requires it.
func (c *Controller) check(d decoder.Decoded) error {
	if c.state.IsError() {
		e, found := value.FirstError(d.Value)
		if !found {
			result, _ := c.state.Result()
			e, _ = value.FirstError(result)
		}
		msg := string(e)
		c.logger.Info("server returned an error", zap.String("message", msg))

		return c.abort("server_error", fmt.Errorf("%w: %s", errs.ErrServerError, msg))
	}

	if s, ok := d.Value.(value.Sentinel); ok && s == value.Sentinel(1) {
		c.logger.Info("server requested termination", zap.Uint32("id", d.ID))
		return c.abort("termination", errs.ErrTerminationRequested)
	}

	return c.checkLimit()
}

func (c *Controller) checkLimit() error {
	if total := c.state.TotalDecoded(); total > c.maxDecoded {
		return c.abort("decode_limit",
			fmt.Errorf("%w: %d values, limit %d", errs.ErrDecodeLimit, total, c.maxDecoded))
	}

	return nil
}

// abort records err as the reason the stream stopped and closes the transport.
func (c *Controller) abort(reason string, err error) error {
	c.err = err
	c.metrics.aborted(reason)

	switch {
	case errors.Is(err, errs.ErrServerError), errors.Is(err, errs.ErrTerminationRequested):
	default:
		c.logger.Error("stream aborted",
			zap.String("reason", reason),
			zap.Int64("decoded", c.state.TotalDecoded()),
			zap.Int64("consumed_bytes", c.buf.Committed()),
			zap.Error(err))
	}

	if c.closer != nil {
		if cerr := c.closer.Close(); cerr != nil {
			c.logger.Warn("failed to close transport", zap.Error(cerr))
		}
	}

	return err
}

func (c *Controller) emit() {
	if c.consumer != nil {
		c.consumer(c.state.Snapshot())
	}
}
