package request

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{name: "default", code: DefaultCode, want: `{"code":"(version)"}`},
		{name: "quotes", code: `(print "a")`, want: `{"code":"(print \"a\")"}`},
		{name: "empty", code: "", want: `{"code":""}`},
		{name: "unicode", code: "(def é 1)", want: `{"code":"(def é 1)"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Encode(tt.code)
			require.NoError(t, err)
			require.Equal(t, len(tt.want), int(msg[0])|int(msg[1])<<8)
			require.Equal(t, tt.want, string(msg[PrefixSize:]))

			code, err := Decode(msg)
			require.NoError(t, err)
			require.Equal(t, tt.code, code)
		})
	}
}

func TestEncode_TooLong(t *testing.T) {
	msg, err := Encode(strings.Repeat("a", MaxPayloadSize))
	require.NoError(t, err)

	code, err := Decode(msg)
	require.NoError(t, err)
	require.Equal(t, TooLongCode, code)

	// the largest query that still fits: 11 bytes of JSON around the code
	fits := strings.Repeat("a", MaxPayloadSize-len(`{"code":""}`))
	msg, err = Encode(fits)
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xff}, msg[:PrefixSize])
	require.Len(t, msg, PrefixSize+MaxPayloadSize)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte{1})
	require.Error(t, err)

	_, err = Decode([]byte{10, 0, '{', '}'})
	require.Error(t, err)

	_, err = Decode([]byte{3, 0, 'n', 'o', 't'})
	require.Error(t, err)
}
