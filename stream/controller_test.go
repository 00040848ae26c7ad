package stream

import (
	"bytes"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/arloliu/tickwire/encoding"
	"github.com/arloliu/tickwire/errs"
	"github.com/arloliu/tickwire/format"
	"github.com/arloliu/tickwire/session"
	"github.com/arloliu/tickwire/value"
)

const baseNanos = int64(1_700_000_000_000_000_000)

type fakeCloser struct {
	calls int
	err   error
}

func (f *fakeCloser) Close() error {
	f.calls++
	return f.err
}

func newController(t *testing.T, opts ...Option) *Controller {
	t.Helper()

	c, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func result(t *testing.T, c *Controller) value.Value {
	t.Helper()

	v, _ := c.State().Result()
	require.NotNil(t, v, "result is set")

	return v
}

func TestNew_Options(t *testing.T) {
	_, err := New(WithMaxDecoded(0))
	require.Error(t, err)

	_, err = New(WithMaxBufferBytes(encoding.MinFrameSize - 1))
	require.Error(t, err)

	_, err = New(WithMaxLength(-1))
	require.Error(t, err)

	c := newController(t, WithLogger(nil))
	require.Equal(t, int64(DefaultMaxDecoded), c.maxDecoded)
	require.Equal(t, DefaultMaxBufferBytes, c.maxBufferBytes)
	require.NotEqual(t, c.SessionID(), newController(t).SessionID())
}

func TestController_DecodesAcrossChunks(t *testing.T) {
	require := require.New(t)

	stream := encoding.NewBuilder().
		Label(1, "price").
		Point(1, value.Float(1.5), baseNanos).
		Point(1, value.Float(2.5), baseNanos+1_000_000).
		Value(0, value.String("ok")).
		Bytes()

	c := newController(t)
	for i := 0; i < len(stream); i += 5 {
		end := min(i+5, len(stream))
		require.NoError(c.Feed(stream[i:end]))
	}

	require.Zero(c.Buffered())
	require.Equal(value.String("ok"), result(t, c))

	items := c.Snapshot().Items()
	require.Len(items, 2)
	require.Equal(value.Float(2.5), items[1].Samples[0].Value)
	require.Equal(int64(2+2*2+2), c.Snapshot().TotalDecoded)
}

func TestController_ConsumerCalledEveryAttempt(t *testing.T) {
	require := require.New(t)

	var snaps []session.Snapshot
	c := newController(t, WithConsumer(func(snap session.Snapshot) {
		snaps = append(snaps, snap)
	}))

	stream := encoding.NewBuilder().
		Value(0, value.Int(1)).
		Value(0, value.Int(2)).
		Value(0, value.Int(3)).
		Bytes()

	require.NoError(c.Feed(stream[:6]))
	require.Len(snaps, 1, "an attempt that decodes nothing is still reported")
	require.Nil(snaps[0].Result)

	require.NoError(c.Feed(stream[6:]))
	require.Len(snaps, 1+3+1)
	require.Equal(value.Int(1), snaps[1].Result)
	require.Equal(value.Int(3), snaps[4].Result)
}

func TestController_DecodeLimitAbort(t *testing.T) {
	require := require.New(t)

	closer := &fakeCloser{}
	c := newController(t, WithMaxDecoded(3), WithCloser(closer))

	b := encoding.NewBuilder()
	for i := 1; i <= 5; i++ {
		b.Value(0, value.Int(i))
	}

	err := c.Feed(b.Bytes())
	require.ErrorIs(err, errs.ErrDecodeLimit)
	require.True(errs.IsFatal(err))
	require.Equal(1, closer.calls)
	require.Equal(value.Int(4), result(t, c), "decoding stops at the value crossing the limit")
	require.Equal(int64(4), c.Snapshot().TotalDecoded)

	again := c.Feed(encoding.NewBuilder().Value(0, value.Int(6)).Bytes())
	require.Same(err, again)
	require.Equal(1, closer.calls)
	require.Equal(value.Int(4), result(t, c), "no further decode attempts")
	require.Equal(err, c.Err())
}

func TestController_ServerError(t *testing.T) {
	require := require.New(t)

	closer := &fakeCloser{err: errors.New("already closed")}
	c := newController(t, WithCloser(closer))

	stream := encoding.NewBuilder().
		Value(0, value.Error("unbound symbol")).
		Value(0, value.Int(1)).
		Bytes()

	err := c.Feed(stream)
	require.ErrorIs(err, errs.ErrServerError)
	require.ErrorContains(err, "unbound symbol")
	require.Equal(1, closer.calls)
	require.True(c.Snapshot().IsError)
	require.Equal(value.Error("unbound symbol"), result(t, c))
}

func TestController_Sentinel(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Feed(encoding.NewBuilder().Value(0, value.Sentinel(0)).Bytes()))

	closer := &fakeCloser{}
	c = newController(t, WithCloser(closer))
	err := c.Feed(encoding.NewBuilder().Value(7, value.Sentinel(1)).Bytes())
	require.ErrorIs(t, err, errs.ErrTerminationRequested)
	require.Equal(t, 1, closer.calls)
}

func TestController_HeartbeatPausesDecoding(t *testing.T) {
	require := require.New(t)

	calls := 0
	c := newController(t, WithConsumer(func(session.Snapshot) { calls++ }))

	stream := encoding.NewBuilder().
		Value(0, value.HeartBeat{Inner: value.Int(0)}).
		Value(0, value.Int(42)).
		Bytes()

	require.NoError(c.Feed(stream))
	require.Equal(1, calls)
	v, _ := c.State().Result()
	require.Nil(v, "decoding paused after the heartbeat")
	require.Zero(c.Snapshot().TotalDecoded, "heartbeats do not count")
	require.Equal(encoding.MinFrameSize, c.Buffered())

	require.NoError(c.Feed(nil))
	require.Equal(value.Int(42), result(t, c))
}

func TestController_CloseFlushesTrailingValue(t *testing.T) {
	require := require.New(t)

	c, err := New()
	require.NoError(err)

	stream := encoding.NewBuilder().
		Value(0, value.HeartBeat{Inner: value.Null{}}).
		Value(0, value.String("tail")).
		Bytes()
	require.NoError(c.Feed(stream))

	require.NoError(c.Close())
	require.Equal(value.String("tail"), result(t, c))
	require.Zero(c.Buffered())
	require.NoError(c.Close())

	require.ErrorIs(c.Feed([]byte{1}), errs.ErrClosed)
}

func TestController_CloseWithoutFullFrame(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	require.NoError(t, c.Feed(encoding.NewBuilder().Value(0, value.Int(1)).Bytes()[:11]))
	require.NoError(t, c.Close())

	v, _ := c.State().Result()
	require.Nil(t, v)
}

func TestController_BufferOverflow(t *testing.T) {
	require := require.New(t)

	closer := &fakeCloser{}
	c := newController(t, WithMaxBufferBytes(32), WithCloser(closer))

	long := encoding.NewBuilder().Value(0, value.String(string(bytes.Repeat([]byte("x"), 64)))).Bytes()
	require.NoError(c.Feed(long[:20]))

	err := c.Feed(long[20:40])
	require.ErrorIs(err, errs.ErrBufferOverflow)
	require.Equal(1, closer.calls)
}

func TestController_CorruptStream(t *testing.T) {
	closer := &fakeCloser{}
	c := newController(t, WithCloser(closer))

	stream := encoding.NewBuilder().Header(format.TypeString, 0).Int64(-4).Raw(make([]byte, 8)).Bytes()
	err := c.Feed(stream)
	require.ErrorIs(t, err, errs.ErrNegativeLength)
	require.True(t, errs.IsFatal(err))
	require.Equal(t, 1, closer.calls)
}

func TestController_TensorHandler(t *testing.T) {
	require := require.New(t)

	var got []*value.Tensor
	c := newController(t, WithTensorHandler(func(id uint32, tensor *value.Tensor) {
		require.Equal(uint32(0), id)
		got = append(got, tensor)
	}))

	stream := encoding.NewBuilder().Tensor(0, []int{2, 2}, []float64{1, 2, 3, 4}).Bytes()
	half := len(stream) - 2*(encoding.HeaderSize+encoding.WordSize) + 3

	require.NoError(c.Feed(stream[:half]))
	require.Empty(got)
	require.NoError(c.Feed(stream[half:]))

	require.Len(got, 1)
	require.Equal(4, got[0].Len())
	require.Same(got[0], result(t, c))
}

func TestController_Logging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	c := newController(t, WithLogger(zap.New(core)), WithMaxDecoded(1))

	stream := encoding.NewBuilder().
		Header(format.Tag(42), 0).Int64(0).
		Value(0, value.Int(1)).
		Value(0, value.Int(2)).
		Bytes()
	require.ErrorIs(t, c.Feed(stream), errs.ErrDecodeLimit)

	dropped := logs.FilterMessage("dropping value with unknown type tag").All()
	require.Len(t, dropped, 1)
	require.Equal(t, c.SessionID().String(), dropped[0].ContextMap()["session"])

	aborted := logs.FilterMessage("stream aborted").All()
	require.Len(t, aborted, 1)
	require.Equal(t, "decode_limit", aborted[0].ContextMap()["reason"])
}

func TestMetrics(t *testing.T) {
	require := require.New(t)

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(err)

	_, err = NewMetrics(reg)
	require.Error(err, "collectors register once")

	c, err := New(WithMetrics(m), WithMaxDecoded(2))
	require.NoError(err)

	stream := encoding.NewBuilder().
		Value(0, value.Int(1)).
		Value(0, value.HeartBeat{Inner: value.Int(0)}).
		Header(format.Tag(-3), 0).Int64(0).
		Value(0, value.Int(2)).
		Value(0, value.Int(3)).
		Bytes()
	require.NoError(c.Feed(stream[:30]))
	require.NoError(c.Feed(nil))
	require.ErrorIs(c.Feed(stream[30:]), errs.ErrDecodeLimit)
	require.NoError(c.Close())

	families, err := reg.Gather()
	require.NoError(err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range metric.GetLabel() {
				key += "/" + lp.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				values[key] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[key] = metric.GetGauge().GetValue()
			}
		}
	}

	require.Equal(3.0, values["tickwire_stream_chunks_received_total"])
	require.Equal(float64(len(stream)), values["tickwire_stream_bytes_received_total"])
	require.Equal(3.0, values["tickwire_stream_values_decoded_total/Int"])
	require.Equal(1.0, values["tickwire_stream_values_dropped_total/Unknown"])
	require.Equal(1.0, values["tickwire_stream_heartbeats_total"])
	require.Equal(1.0, values["tickwire_stream_aborts_total/decode_limit"])
	require.Equal(0.0, values["tickwire_stream_active_sessions"])
}

func TestController_DecodeLimitWhileTensorParked(t *testing.T) {
	require := require.New(t)

	values := make([]float64, 1000)
	for i := range values {
		values[i] = float64(i)
	}
	stream := encoding.NewBuilder().Tensor(0, []int{len(values)}, values).Bytes()

	closer := &fakeCloser{}
	tensors := 0
	c := newController(t,
		WithMaxDecoded(50),
		WithCloser(closer),
		WithTensorHandler(func(uint32, *value.Tensor) { tensors++ }),
	)

	var err error
	fed := 0
	for fed < len(stream) && err == nil {
		end := min(fed+100, len(stream))
		err = c.Feed(stream[fed:end])
		fed = end
	}

	require.ErrorIs(err, errs.ErrDecodeLimit)
	require.Less(fed, len(stream), "aborted before the tensor completed")
	require.Equal(1, closer.calls)
	require.Zero(tensors)
	require.LessOrEqual(c.Snapshot().TotalDecoded, int64(50+100/encoding.MinFrameSize+1))
	require.ErrorIs(c.Feed(stream[fed:]), errs.ErrDecodeLimit)
}

func TestController_ErrorInsideHeartbeat(t *testing.T) {
	require := require.New(t)

	closer := &fakeCloser{}
	c := newController(t, WithCloser(closer))

	stream := encoding.NewBuilder().
		Value(0, value.HeartBeat{Inner: value.Error("boom")}).
		Value(0, value.Int(7)).
		Bytes()

	err := c.Feed(stream)
	require.ErrorIs(err, errs.ErrServerError)
	require.ErrorContains(err, "boom")
	require.Equal(1, closer.calls)
	require.True(c.Snapshot().IsError)

	v, _ := c.State().Result()
	require.Nil(v, "the value after the heartbeat is not decoded")
}

func TestController_ErrorInsideInlineArray(t *testing.T) {
	require := require.New(t)

	c := newController(t)

	stream := encoding.NewBuilder().
		Value(0, value.Array{value.Int(1), value.Pair{value.String("k"), value.Error("nested failure")}}).
		Value(0, value.Int(7)).
		Bytes()

	err := c.Feed(stream)
	require.ErrorIs(err, errs.ErrServerError)
	require.ErrorContains(err, "nested failure")
	require.True(c.Snapshot().IsError)
	require.IsType(value.Array{}, result(t, c), "decoding stops before the next value")
}
