package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	tests := []struct {
		name string
		data string
		sum  uint64
	}{
		{"empty", "", 0xef46db3751d8e999},
		{"short", "test", 0x4fdcca5ddb678139},
		{"long", "this is a longer test string to hash", 0x69275f7f7ee59dbd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.sum, Sum([]byte(tt.data)))
		})
	}
}

func TestDigest_MatchesSum(t *testing.T) {
	parts := [][]byte{[]byte("this is "), []byte("a longer test "), []byte("string to hash")}

	d := NewDigest()
	var whole []byte
	for _, p := range parts {
		d.Write(p)
		whole = append(whole, p...)
	}

	require.Equal(t, Sum(whole), d.Sum64())
}
