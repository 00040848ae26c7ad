package value

import (
	"fmt"
	"math"

	"github.com/spf13/cast"

	"github.com/arloliu/tickwire/errs"
)

const (
	// MaxIndexedTensorSize is the largest 2-dimensional tensor whose elements keep
	// their (x, y) coordinates.
	MaxIndexedTensorSize = 10000

	// alphaChannel is the channel index synthesized for image consumers.
	alphaChannel = 3

	// initialTensorCapacity caps the up-front allocation for values and coordinates.
	initialTensorCapacity = 1 << 16
)

// Coord is the grid position of an element of an indexed tensor.
// Y counts rows from the bottom, so row 0 of the shape is the top row.
type Coord struct {
	X int
	Y int
}

// Tensor is a dense numeric grid filled in row-major order.
//
// Values arrive one at a time through Add; a tensor is complete once Len equals
// Size. Min and Max track the running range of the added values.
//
// Small 2-dimensional tensors (at most MaxIndexedTensorSize elements) record each
// element's coordinate for direct indexed access. Larger or higher dimensional
// tensors keep only the flat values and compute positions on read.
type Tensor struct {
	Shape  []int
	Values []float64
	Min    float64
	Max    float64

	coords []Coord
	size   int
	dimX   int
	dimY   int
	dimC   int
}

// NewTensor creates an empty tensor for the given shape.
//
// Returns errs.ErrInvalidShape if shape is empty, has a negative dimension, or
// its element count overflows int.
func NewTensor(shape []int) (*Tensor, error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("%w: empty shape", errs.ErrInvalidShape)
	}

	size := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: dimension %d", errs.ErrInvalidShape, d)
		}
		if d != 0 && size > math.MaxInt/d {
			return nil, fmt.Errorf("%w: element count of %v overflows", errs.ErrInvalidShape, shape)
		}
		size *= d
	}

	dim := len(shape)
	t := &Tensor{
		Shape: shape,
		size:  size,
		dimX:  shape[dim-1],
		dimY:  1,
		dimC:  1,
		Min:   math.NaN(),
		Max:   math.NaN(),
	}
	if dim > 1 {
		t.dimY = shape[dim-2]
	}
	if dim > 2 {
		t.dimC = shape[dim-3]
	}

	t.Values = make([]float64, 0, min(size, initialTensorCapacity))
	if t.Indexed() {
		t.coords = make([]Coord, 0, min(size, initialTensorCapacity))
	}

	return t, nil
}

// ShapeFromArray converts a decoded inline array of integers into a shape.
func ShapeFromArray(a Array) ([]int, error) {
	shape := make([]int, len(a))
	for i, elem := range a {
		if elem == nil {
			return nil, fmt.Errorf("%w: missing dimension %d", errs.ErrInvalidShape, i)
		}
		d, err := cast.ToIntE(elem.Native())
		if err != nil {
			return nil, fmt.Errorf("%w: dimension %d: %w", errs.ErrInvalidShape, i, err)
		}
		shape[i] = d
	}

	return shape, nil
}

// Indexed reports whether elements keep their coordinates.
func (t *Tensor) Indexed() bool {
	return len(t.Shape) == 2 && t.size <= MaxIndexedTensorSize
}

// Size returns the number of elements declared by the shape.
func (t *Tensor) Size() int {
	return t.size
}

// Len returns the number of elements added so far.
func (t *Tensor) Len() int {
	return len(t.Values)
}

// Completed reports whether every element has been added.
func (t *Tensor) Completed() bool {
	return len(t.Values) >= t.size
}

// Add appends the next element in row-major order and updates Min and Max.
// Values beyond Size are ignored.
func (t *Tensor) Add(v float64) {
	if t.Completed() {
		return
	}

	if len(t.Values) == 0 {
		t.Min, t.Max = v, v
	}
	t.Min = math.Min(t.Min, v)
	t.Max = math.Max(t.Max, v)

	if t.Indexed() {
		i := len(t.Values)
		t.coords = append(t.coords, Coord{
			X: i % t.Shape[1],
			Y: t.Shape[0] - i/t.Shape[1] - 1,
		})
	}
	t.Values = append(t.Values, v)
}

// Coord returns the coordinate of element i of an indexed tensor.
func (t *Tensor) Coord(i int) (Coord, bool) {
	if i < 0 || i >= len(t.coords) {
		return Coord{}, false
	}

	return t.coords[i], true
}

// ValueAt returns the element at (x, y) in channel c.
//
// Channels beyond the declared channel count wrap to channel 0, except channel 3
// which yields a synthetic alpha: 1 when every value lies in [0, 1), the running
// maximum otherwise. Indexed tensors have a single channel. Reports false when the
// position is outside the tensor or has not been received yet.
func (t *Tensor) ValueAt(c, x, y int) (float64, bool) {
	if t.Indexed() {
		if c == alphaChannel {
			return t.alpha(), true
		}
		c = 0
	} else if c >= t.dimC {
		if c == alphaChannel {
			return t.alpha(), true
		}
		c = 0
	}

	if x < 0 || y < 0 || c < 0 || x >= t.dimX {
		return 0, false
	}

	i := y*t.dimX + x + c*t.dimY*t.dimX
	if i >= len(t.Values) {
		return 0, false
	}

	return t.Values[i], true
}

func (t *Tensor) alpha() float64 {
	if t.Max < 1 && t.Min >= 0 {
		return 1
	}

	return t.Max
}

// Native returns the tensor as a map with shape, values, min and max.
func (t *Tensor) Native() any {
	return map[string]any{
		"shape":  t.Shape,
		"values": t.Values,
		"min":    t.Min,
		"max":    t.Max,
	}
}
