// Package decoder turns the bytes of a Buffer into values and applies them to a
// session.
//
// Next decodes exactly one top-level frame. Decoding is speculative: the value is
// built from the buffer without touching the session, and the session is updated
// only once every byte of the frame, including a trailing series timestamp, has
// been read. When the frame is incomplete Next returns errs.ErrInsufficientData
// and the session is unchanged; the caller rolls the buffer back and retries after
// the next chunk.
//
// Tensors are the exception. Their elements may span any number of chunks, so a
// top-level tensor that runs out of bytes commits the elements it has read,
// parks itself in the session and resumes on the next call.
package decoder

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/arloliu/tickwire/encoding"
	"github.com/arloliu/tickwire/errs"
	"github.com/arloliu/tickwire/format"
	"github.com/arloliu/tickwire/internal/options"
	"github.com/arloliu/tickwire/session"
	"github.com/arloliu/tickwire/value"
)

// maxDepth bounds the nesting of inline composite values.
const maxDepth = 64

// Decoded describes the frame consumed by one Next call.
type Decoded struct {
	// ID is the id of the frame.
	ID uint32
	// Tag is the type tag of the frame.
	Tag format.Tag
	// Value is the decoded value, nil when the frame was dropped.
	Value value.Value
	// Heartbeat is set for keep-alive frames. They are not routed to the session.
	Heartbeat bool
	// Dropped is set for frames skipped because of an unknown tag or a malformed tensor.
	Dropped bool
}

// Decoder decodes frames. It holds no per-connection state and may be shared by
// sessions that are driven from the same goroutine.
type Decoder struct {
	logger    *zap.Logger
	maxLength int64
}

// New creates a Decoder.
func New(opts ...Option) (*Decoder, error) {
	d := &Decoder{
		logger:    zap.NewNop(),
		maxLength: DefaultMaxLength,
	}
	if err := options.Apply(d, opts...); err != nil {
		return nil, err
	}

	return d, nil
}

// attempt is the state of one speculative decode.
type attempt struct {
	buf    *encoding.Buffer
	weight int64
}

func (a *attempt) int64() (int64, error) {
	n, err := a.buf.ReadInt64()
	if err == nil {
		a.weight++
	}

	return n, err
}

func (a *attempt) str() (string, error) {
	s, err := a.buf.ReadString()
	if err == nil {
		a.weight += 2
	}

	return s, err
}

// Next decodes the next frame from buf and applies it to st.
//
// The decoded value is routed in this order: a time series member appends a
// point (reading the trailing timestamp), an array member fills its slot, and id
// 0 or an error value becomes the session result. An error value anywhere in the
// frame, heartbeats and nested values included, puts the session in error. Array
// headers and series labels update the id tables instead.
//
// Parameters:
//   - buf: Buffer positioned at the start of a frame
//   - st: Session the frame belongs to
//
// Returns:
//   - Decoded: The consumed frame
//   - error: errs.ErrInsufficientData when the frame is incomplete, or a decode
//     error that makes the rest of the stream unreadable
func (d *Decoder) Next(buf *encoding.Buffer, st *session.State) (Decoded, error) {
	a := &attempt{buf: buf}

	pendingID, _, resuming := st.PendingTensor()
	if resuming {
		// a parked tensor may only be waiting for its series timestamp
		if buf.Available() < encoding.WordSize {
			return Decoded{}, errs.ErrInsufficientData
		}

		return d.tensorFrame(a, st, Decoded{ID: pendingID, Tag: format.TypeTensor})
	}

	if buf.Available() < encoding.MinFrameSize {
		return Decoded{}, errs.ErrInsufficientData
	}

	tag, id, err := buf.ReadHeader()
	if err != nil {
		return Decoded{}, err
	}
	out := Decoded{ID: id, Tag: tag}

	switch tag {
	case format.TypeArray:
		header, err := d.arrayHeader(a)
		if err != nil {
			return out, err
		}
		st.AddDecoded(a.weight)
		st.RegisterArray(id, header.Members)
		out.Value = header

		return out, nil

	case format.TypeTimeSerie:
		label, err := a.str()
		if err != nil {
			return out, err
		}
		st.AddDecoded(a.weight)
		if _, merged := st.RegisterLabel(id, label); merged {
			d.logger.Debug("timebar merged", zap.Uint32("id", id), zap.String("label", label))
		}
		out.Value = value.Label(label)

		return out, nil

	case format.TypeHeartBeat:
		inner, err := d.element(a, 1)
		if err != nil {
			return out, err
		}
		if _, isErr := value.FirstError(inner); isErr {
			st.SetError()
		}
		out.Value = value.HeartBeat{Inner: inner}
		out.Heartbeat = true

		return out, nil

	case format.TypeSentinel:
		n, err := a.int64()
		if err != nil {
			return out, err
		}
		st.AddDecoded(a.weight)
		out.Value = value.Sentinel(n)

		return out, nil

	case format.TypeTensor:
		return d.tensorFrame(a, st, out)
	}

	if !tag.Known() {
		if err := buf.Skip(encoding.WordSize); err != nil {
			return out, err
		}
		d.logger.Warn("dropping value with unknown type tag",
			zap.Int8("tag", int8(tag)), zap.Uint32("id", id))
		out.Dropped = true

		return out, nil
	}

	v, err := d.inline(a, tag, 0)
	if err != nil {
		if errors.Is(err, errs.ErrMalformedTensor) {
			return d.drop(a, st, out, err), nil
		}

		return out, err
	}

	return d.route(a, st, out, v)
}

// route reads the series timestamp if id is a series member, then applies v.
func (d *Decoder) route(a *attempt, st *session.State, out Decoded, v value.Value) (Decoded, error) {
	var nanos int64
	_, inSeries := st.SeriesPosition(out.ID)
	if inSeries {
		n, err := a.int64()
		if err != nil {
			return out, err
		}
		nanos = n
	}

	st.AddDecoded(a.weight)
	if arr, ok := v.(value.Array); ok && out.Tag == format.TypeArraySerial {
		st.StoreArray(out.ID, arr)
	}

	if _, nested := value.FirstError(v); nested {
		st.SetError()
	}
	_, isErr := v.(value.Error)

	switch {
	case inSeries:
		st.AppendPoint(out.ID, v, nanos)
	case st.SetSlot(out.ID, v):
	case isErr || out.ID == 0 || st.IsError():
		st.SetResult(v)
	}
	out.Value = v

	return out, nil
}

// drop commits a frame that cannot be decoded further.
func (d *Decoder) drop(a *attempt, st *session.State, out Decoded, reason error) Decoded {
	st.ClearTensor()
	st.AddDecoded(a.weight)
	d.logger.Warn("dropping malformed value",
		zap.Uint32("id", out.ID), zap.Stringer("tag", out.Tag), zap.Error(reason))
	out.Dropped = true

	return out
}

func (d *Decoder) arrayHeader(a *attempt) (value.ArrayHeader, error) {
	start := a.buf.Pos()

	count, err := a.int64()
	if err != nil {
		return value.ArrayHeader{}, err
	}
	if count < 0 {
		return value.ArrayHeader{}, fmt.Errorf("%w: array header count %d", errs.ErrNegativeLength, count)
	}
	if count > int64(a.buf.Available())/encoding.HeaderSize {
		a.buf.Seek(start)
		return value.ArrayHeader{}, errs.ErrInsufficientData
	}

	members := make([]value.Member, count)
	for i := range members {
		tag, id, _ := a.buf.ReadHeader()
		members[i] = value.Member{Tag: tag, ID: id}
	}

	return value.ArrayHeader{Members: members}, nil
}

// element reads an inline tag and id, then the value. Inline ids carry no meaning.
func (d *Decoder) element(a *attempt, depth int) (value.Value, error) {
	tag, _, err := a.buf.ReadHeader()
	if err != nil {
		return nil, err
	}

	return d.inline(a, tag, depth)
}

// inline decodes the payload of a value whose tag has been read.
func (d *Decoder) inline(a *attempt, tag format.Tag, depth int) (value.Value, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", errs.ErrLengthExceeded, maxDepth)
	}
	if a.buf.Available() < encoding.WordSize {
		return nil, errs.ErrInsufficientData
	}

	switch tag {
	case format.TypeNull:
		return value.Null{}, a.buf.Skip(encoding.WordSize)

	case format.TypeInt:
		n, err := a.int64()
		return value.Int(n), err

	case format.TypeFloat:
		f, err := a.buf.ReadFloat64()
		if err != nil {
			return nil, err
		}
		a.weight++

		return value.Float(f), nil

	case format.TypeDec64:
		dec, err := a.buf.ReadDec64()
		if err != nil {
			return nil, err
		}
		a.weight++

		return dec, nil

	case format.TypeTime:
		t, err := a.buf.ReadTime()
		if err != nil {
			return nil, err
		}
		a.weight++

		return value.Time{Time: t}, nil

	case format.TypeDuration:
		dur, err := a.buf.ReadDuration()
		if err != nil {
			return nil, err
		}
		a.weight++

		return dur, nil

	case format.TypeBool:
		n, err := a.int64()
		return value.Bool(n != 0), err

	case format.TypeString:
		s, err := a.str()
		return value.String(s), err

	case format.TypeError:
		s, err := a.str()
		return value.Error(s), err

	case format.TypeTimeSerie:
		s, err := a.str()
		return value.Label(s), err

	case format.TypeSentinel:
		n, err := a.int64()
		return value.Sentinel(n), err

	case format.TypeArray, format.TypeArraySerial:
		return d.inlineArray(a, depth)

	case format.TypePair:
		first, err := d.element(a, depth+1)
		if err != nil {
			return nil, err
		}
		second, err := d.element(a, depth+1)
		if err != nil {
			return nil, err
		}

		return value.Pair{first, second}, nil

	case format.TypeHeartBeat:
		weight := a.weight
		inner, err := d.element(a, depth+1)
		a.weight = weight

		return value.HeartBeat{Inner: inner}, err

	case format.TypeTensor:
		t, err := d.newTensor(a, depth)
		if err != nil {
			return nil, err
		}
		if err := d.fill(a, t, depth); err != nil {
			return nil, err
		}

		return t, nil

	default:
		if err := a.buf.Skip(encoding.WordSize); err != nil {
			return nil, err
		}
		d.logger.Warn("dropping inline value with unknown type tag", zap.Int8("tag", int8(tag)))

		return value.Null{}, nil
	}
}

func (d *Decoder) inlineArray(a *attempt, depth int) (value.Array, error) {
	count, err := a.int64()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: array length %d", errs.ErrNegativeLength, count)
	}
	if count > d.maxLength/2 {
		return nil, fmt.Errorf("%w: array length %d, limit %d", errs.ErrLengthExceeded, count, d.maxLength/2)
	}
	if count > int64(a.buf.Available())/encoding.MinFrameSize {
		return nil, errs.ErrInsufficientData
	}

	arr := make(value.Array, count)
	for i := range arr {
		if arr[i], err = d.element(a, depth+1); err != nil {
			return nil, err
		}
	}

	return arr, nil
}
