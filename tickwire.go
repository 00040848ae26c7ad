// Package tickwire is a client for the LispTick time-series server: it decodes
// the binary result stream a server sends over a websocket.
//
// The stream is a sequence of little-endian frames (a type tag, a 24-bit id and
// a payload) that arrives split at arbitrary byte boundaries. Values are decoded
// as soon as they are complete and routed into a session: the query result,
// array slots, time series and timebars.
//
// # Basic Usage
//
// Running a query against a server:
//
//	cfg := transport.DefaultConfig()
//	snap, err := tickwire.Query(ctx, cfg, `(timeserie @"close" "fx" "EURUSD" 2024-01-02)`)
//	if err != nil {
//	    return err
//	}
//	for _, p := range snap.Items() {
//	    fmt.Println(p.Tuple())
//	}
//
// Decoding chunks obtained elsewhere:
//
//	snap, err := tickwire.DecodeAll(chunks)
//
// # Package Structure
//
// This package provides convenient top-level wrappers. For fine-grained control
// use the packages directly:
//
//   - stream: the incremental decode controller, its limits and metrics
//   - decoder: single frame decoding with rollback on incomplete input
//   - session: result, arrays, series and timebar state
//   - value: the decoded value types
//   - transport: the websocket connection
//   - request: query request encoding
//   - capture: recording and replaying received chunks
//   - encoding: building streams, mostly for tests and tooling
package tickwire

import (
	"context"

	"github.com/arloliu/tickwire/session"
	"github.com/arloliu/tickwire/stream"
	"github.com/arloliu/tickwire/transport"
)

// NewController creates a stream controller.
//
// See stream.New for the available options.
func NewController(opts ...stream.Option) (*stream.Controller, error) {
	return stream.New(opts...)
}

// DecodeAll feeds chunks to a new controller in order, then closes it.
//
// Parameters:
//   - chunks: Consecutive pieces of one result stream
//   - opts: Controller options
//
// Returns:
//   - session.Snapshot: The session after the last chunk, also when err is set
//   - error: The error that stopped the stream, if any
func DecodeAll(chunks [][]byte, opts ...stream.Option) (session.Snapshot, error) {
	ctrl, err := stream.New(opts...)
	if err != nil {
		return session.Snapshot{}, err
	}

	for _, chunk := range chunks {
		if err := ctrl.Feed(chunk); err != nil {
			_ = ctrl.Close()
			return ctrl.Snapshot(), err
		}
	}
	err = ctrl.Close()

	return ctrl.Snapshot(), err
}

// Query dials cfg, sends code and decodes the answer until the server closes
// the connection or ctx ends.
//
// Returns:
//   - session.Snapshot: The session when the stream ended, also when err is set
//   - error: A dial error, the error that stopped the stream, or ctx.Err()
func Query(ctx context.Context, cfg transport.Config, code string, opts ...stream.Option) (session.Snapshot, error) {
	conn, err := transport.Dial(ctx, cfg)
	if err != nil {
		return session.Snapshot{}, err
	}
	defer conn.Close()

	ctrl, err := stream.New(append(opts, stream.WithCloser(conn))...)
	if err != nil {
		return session.Snapshot{}, err
	}

	if err := conn.Send(code); err != nil {
		_ = ctrl.Close()
		return ctrl.Snapshot(), err
	}

	err = conn.Run(ctx, ctrl)

	return ctrl.Snapshot(), err
}
