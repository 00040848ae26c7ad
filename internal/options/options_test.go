package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type limits struct {
	maxDecoded int
	label      string
	calls      []string
}

func withMax(n int) Option[*limits] {
	return New(func(l *limits) error {
		if n <= 0 {
			return errors.New("max must be positive")
		}
		l.maxDecoded = n
		l.calls = append(l.calls, "max")

		return nil
	})
}

func withLabel(s string) Option[*limits] {
	return NoError(func(l *limits) {
		l.label = s
		l.calls = append(l.calls, "label")
	})
}

func TestApply(t *testing.T) {
	t.Run("applies in order", func(t *testing.T) {
		l := &limits{}
		err := Apply(l, withLabel("a"), withMax(10), withLabel("b"))

		require.NoError(t, err)
		require.Equal(t, 10, l.maxDecoded)
		require.Equal(t, "b", l.label)
		require.Equal(t, []string{"label", "max", "label"}, l.calls)
	})

	t.Run("stops at first error", func(t *testing.T) {
		l := &limits{}
		err := Apply(l, withMax(-1), withLabel("never"))

		require.EqualError(t, err, "max must be positive")
		require.Empty(t, l.label)
	})

	t.Run("skips nil options", func(t *testing.T) {
		l := &limits{}
		require.NoError(t, Apply(l, nil, withMax(3)))
		require.Equal(t, 3, l.maxDecoded)
	})

	t.Run("no options", func(t *testing.T) {
		l := &limits{}
		require.NoError(t, Apply(l))
		require.Empty(t, l.calls)
	})
}
