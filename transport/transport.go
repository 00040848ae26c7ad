// Package transport connects to a LispTick server over a websocket and delivers
// the binary result stream to a stream controller.
//
// A Conn sends one request and then hands every binary message, in arrival
// order, to a Handler from a single goroutine. When the server closes the
// connection the handler is closed too, which lets a stream.Controller flush a
// trailing value. Conn implements stream.Closer so the controller can shut the
// connection down when the stream must stop.
//
// Example:
//
//	conn, err := transport.Dial(ctx, transport.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	ctrl, err := stream.New(stream.WithCloser(conn))
//	if err != nil {
//	    return err
//	}
//	if err := conn.Send("(version)"); err != nil {
//	    return err
//	}
//	return conn.Run(ctx, ctrl)
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arloliu/tickwire/internal/options"
	"github.com/arloliu/tickwire/request"
)

const (
	// DefaultHost is the public LispTick server.
	DefaultHost = "kereon.lisptick.org"
	// DefaultPort is the websocket port of DefaultHost.
	DefaultPort = 8080
	// DefaultPath is the websocket endpoint path.
	DefaultPath = "/ws"
	// DefaultHandshakeTimeout bounds the websocket opening handshake.
	DefaultHandshakeTimeout = 45 * time.Second

	closeTimeout = time.Second
)

// Config locates the server.
type Config struct {
	Host             string
	Port             int
	Path             string
	Secure           bool
	HandshakeTimeout time.Duration
}

// DefaultConfig returns the configuration of the public server.
func DefaultConfig() Config {
	return Config{
		Host:             DefaultHost,
		Port:             DefaultPort,
		Path:             DefaultPath,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
}

// URL returns the websocket URL, ws://host:port/path or wss:// when Secure is set.
func (c Config) URL() string {
	scheme := "ws"
	if c.Secure {
		scheme = "wss"
	}

	path := c.Path
	if path == "" {
		path = DefaultPath
	}

	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   path,
	}

	return u.String()
}

// Handler consumes the chunks of one connection. stream.Controller implements it.
type Handler interface {
	Feed(chunk []byte) error
	Close() error
}

// Recorder receives a copy of every chunk before it is handed to the Handler.
type Recorder interface {
	Record(chunk []byte) error
}

// Option configures a Conn.
type Option = options.Option[*Conn]

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(c *Conn) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithRecorder sets a recorder that sees every received chunk.
func WithRecorder(r Recorder) Option {
	return options.NoError(func(c *Conn) {
		c.recorder = r
	})
}

// Conn is a client websocket connection carrying one result stream.
type Conn struct {
	ws       *websocket.Conn
	logger   *zap.Logger
	recorder Recorder

	writeMu sync.Mutex
	closed  atomic.Bool
}

// Dial opens a connection to the server described by cfg.
func Dial(ctx context.Context, cfg Config, opts ...Option) (*Conn, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout <= 0 {
		dialer.HandshakeTimeout = DefaultHandshakeTimeout
	}

	return dial(ctx, dialer, cfg.URL(), opts...)
}

// DialURL opens a connection to a websocket URL.
func DialURL(ctx context.Context, rawURL string, opts ...Option) (*Conn, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: DefaultHandshakeTimeout,
	}

	return dial(ctx, dialer, rawURL, opts...)
}

func dial(ctx context.Context, dialer *websocket.Dialer, rawURL string, opts ...Option) (*Conn, error) {
	c := &Conn{logger: zap.NewNop()}
	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	ws, resp, err := dialer.DialContext(ctx, rawURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	c.ws = ws
	c.logger.Debug("connected", zap.String("url", rawURL))

	return c, nil
}

// Send writes the request for code as one binary message.
func (c *Conn) Send(code string) error {
	msg, err := request.Encode(code)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	return nil
}

// Run delivers binary messages to h until the connection ends or ctx is done.
//
// Text messages are ignored. When the connection ends without a handler error,
// h.Close is called so buffered bytes are flushed.
//
// Returns:
//   - error: The error returned by h, a read error other than a normal closure,
//     or ctx.Err() when the context ended the connection
func (c *Conn) Run(ctx context.Context, h Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		kind, msg, err := c.ws.ReadMessage()
		if err != nil {
			flushErr := h.Close()

			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case flushErr != nil:
				return flushErr
			case c.closed.Load(),
				websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
				errors.Is(err, net.ErrClosed):
				c.logger.Debug("connection closed", zap.Error(err))
				return nil
			default:
				return fmt.Errorf("read: %w", err)
			}
		}

		if kind != websocket.BinaryMessage {
			c.logger.Debug("ignoring non binary message", zap.Int("type", kind))
			continue
		}

		if c.recorder != nil {
			if err := c.recorder.Record(msg); err != nil {
				c.logger.Warn("failed to record chunk", zap.Error(err))
			}
		}

		if err := h.Feed(msg); err != nil {
			_ = c.Close()
			_ = h.Close()

			return err
		}
	}
}

// Close sends a close frame and closes the connection. It is safe to call more
// than once and from any goroutine.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
	c.writeMu.Unlock()

	return c.ws.Close()
}
