package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/tickwire/errs"
)

func TestNewTensor_InvalidShape(t *testing.T) {
	_, err := NewTensor(nil)
	require.ErrorIs(t, err, errs.ErrInvalidShape)

	_, err = NewTensor([]int{2, -1})
	require.ErrorIs(t, err, errs.ErrInvalidShape)

	_, err = NewTensor([]int{math.MaxInt/2 + 1, 2})
	require.ErrorIs(t, err, errs.ErrInvalidShape, "element count wraps to zero")

	_, err = NewTensor([]int{math.MaxInt / 3, 3, 2})
	require.ErrorIs(t, err, errs.ErrInvalidShape)
}

func TestNewTensor_LargeShapeAllocatesLazily(t *testing.T) {
	tensor, err := NewTensor([]int{0, math.MaxInt})
	require.NoError(t, err)
	require.Zero(t, tensor.Size())

	tensor, err = NewTensor([]int{1 << 15, 1 << 15})
	require.NoError(t, err)
	require.Equal(t, 1<<30, tensor.Size())
	require.False(t, tensor.Completed())
}

func TestShapeFromArray(t *testing.T) {
	shape, err := ShapeFromArray(Array{Int(3), Float(2), Dec64{Mantissa: 4}})
	require.NoError(t, err)
	require.Equal(t, []int{3, 2, 4}, shape)

	_, err = ShapeFromArray(Array{Int(3), String("x")})
	require.ErrorIs(t, err, errs.ErrInvalidShape)

	_, err = ShapeFromArray(Array{nil})
	require.ErrorIs(t, err, errs.ErrInvalidShape)
}

func TestTensor_Indexed(t *testing.T) {
	require := require.New(t)

	tensor, err := NewTensor([]int{2, 2})
	require.NoError(err)
	require.True(tensor.Indexed())
	require.Equal(4, tensor.Size())
	require.False(tensor.Completed())

	for _, v := range []float64{1, 2, 3, 4} {
		tensor.Add(v)
	}
	require.True(tensor.Completed())
	require.Equal(1.0, tensor.Min)
	require.Equal(4.0, tensor.Max)

	// row 0 of the shape is the top row
	want := []Coord{{0, 1}, {1, 1}, {0, 0}, {1, 0}}
	for i, c := range want {
		got, ok := tensor.Coord(i)
		require.True(ok)
		require.Equal(c, got, "element %d", i)
	}
	_, ok := tensor.Coord(4)
	require.False(ok)

	tensor.Add(99)
	require.Equal(4, tensor.Len(), "values past the shape are ignored")
	require.Equal(4.0, tensor.Max)
}

func TestTensor_LargeIsFlat(t *testing.T) {
	tensor, err := NewTensor([]int{101, 100})
	require.NoError(t, err)
	require.False(t, tensor.Indexed())

	tensor3, err := NewTensor([]int{2, 2, 2})
	require.NoError(t, err)
	require.False(t, tensor3.Indexed())
}

func TestTensor_ValueAt(t *testing.T) {
	require := require.New(t)

	// 2 channels of 2 rows by 3 columns
	tensor, err := NewTensor([]int{2, 2, 3})
	require.NoError(err)
	for i := range 12 {
		tensor.Add(float64(i))
	}

	v, ok := tensor.ValueAt(0, 2, 1)
	require.True(ok)
	require.Equal(5.0, v)

	v, ok = tensor.ValueAt(1, 0, 0)
	require.True(ok)
	require.Equal(6.0, v)

	v, ok = tensor.ValueAt(2, 1, 0)
	require.True(ok)
	require.Equal(1.0, v, "channels past the channel count wrap to 0")

	v, ok = tensor.ValueAt(3, 0, 0)
	require.True(ok)
	require.Equal(11.0, v, "alpha is the maximum when values leave [0, 1)")

	_, ok = tensor.ValueAt(0, 3, 0)
	require.False(ok)
}

func TestTensor_AlphaNormalized(t *testing.T) {
	tensor, err := NewTensor([]int{1, 2})
	require.NoError(t, err)
	tensor.Add(0.25)
	tensor.Add(0.5)

	v, ok := tensor.ValueAt(3, 0, 0)
	require.True(t, ok)
	require.Equal(t, 1.0, v)

	v, ok = tensor.ValueAt(0, 1, 0)
	require.True(t, ok)
	require.Equal(t, 0.5, v)
}

func TestTensor_PartialValueAt(t *testing.T) {
	tensor, err := NewTensor([]int{3})
	require.NoError(t, err)
	tensor.Add(7)

	v, ok := tensor.ValueAt(0, 0, 0)
	require.True(t, ok)
	require.Equal(t, 7.0, v)

	_, ok = tensor.ValueAt(0, 1, 0)
	require.False(t, ok, "elements not yet received are absent")
}
