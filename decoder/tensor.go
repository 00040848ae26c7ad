package decoder

import (
	"errors"
	"fmt"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/arloliu/tickwire/errs"
	"github.com/arloliu/tickwire/format"
	"github.com/arloliu/tickwire/session"
	"github.com/arloliu/tickwire/value"
)

// tensorFrame decodes a top-level tensor, resuming the parked one if any.
//
// A tensor payload is an inline ArraySerial of dimensions followed by one inline
// value per element. When the buffer ends between elements, the elements read so
// far are committed and the tensor is parked in the session. A completed tensor
// is routed like any other value; if its series timestamp is missing it stays
// parked until the timestamp arrives.
func (d *Decoder) tensorFrame(a *attempt, st *session.State, out Decoded) (Decoded, error) {
	_, t, resuming := st.PendingTensor()
	if !resuming {
		var err error
		if t, err = d.newTensor(a, 0); err != nil {
			if errors.Is(err, errs.ErrMalformedTensor) {
				return d.drop(a, st, out, err), nil
			}

			return out, err
		}
	}

	if err := d.fill(a, t, 0); err != nil {
		switch {
		case errors.Is(err, errs.ErrInsufficientData):
			d.park(a, st, out.ID, t)
		case errors.Is(err, errs.ErrMalformedTensor):
			return d.drop(a, st, out, err), nil
		}

		return out, err
	}

	routed, err := d.route(a, st, out, t)
	if err != nil {
		if errors.Is(err, errs.ErrInsufficientData) {
			d.park(a, st, out.ID, t)
		}

		return out, err
	}
	st.ClearTensor()

	return routed, nil
}

// park commits the bytes read so far and stores t as the pending tensor.
func (d *Decoder) park(a *attempt, st *session.State, id uint32, t *value.Tensor) {
	a.buf.Commit()
	st.AddDecoded(a.weight)
	a.weight = 0
	st.Mark()
	st.ParkTensor(id, t)

	d.logger.Debug("tensor parked",
		zap.Uint32("id", id), zap.Int("received", t.Len()), zap.Int("size", t.Size()))
}

// newTensor reads the shape of a tensor.
func (d *Decoder) newTensor(a *attempt, depth int) (*value.Tensor, error) {
	tag, _, err := a.buf.ReadHeader()
	if err != nil {
		return nil, err
	}
	if tag != format.TypeArraySerial {
		return nil, fmt.Errorf("%w: shape tag is %s", errs.ErrMalformedTensor, tag)
	}

	dims, err := d.inlineArray(a, depth+1)
	if err != nil {
		return nil, err
	}

	shape, err := value.ShapeFromArray(dims)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrMalformedTensor, err)
	}

	t, err := value.NewTensor(shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrMalformedTensor, err)
	}
	if int64(t.Size()) > d.maxLength {
		return nil, fmt.Errorf("%w: %w: %d elements, limit %d",
			errs.ErrMalformedTensor, errs.ErrInvalidShape, t.Size(), d.maxLength)
	}

	return t, nil
}

// fill adds elements to t until it is complete. On error the buffer and weight
// are left at the last element boundary.
func (d *Decoder) fill(a *attempt, t *value.Tensor, depth int) error {
	for !t.Completed() {
		boundary, weight := a.buf.Pos(), a.weight

		v, err := d.element(a, depth+1)
		if err != nil {
			a.buf.Seek(boundary)
			a.weight = weight

			return err
		}

		f, err := cast.ToFloat64E(value.Native(v))
		if err != nil {
			return fmt.Errorf("%w: element %d: %w", errs.ErrMalformedTensor, t.Len(),
				errors.Join(errs.ErrNonNumericTensorValue, err))
		}
		t.Add(f)
	}

	return nil
}
