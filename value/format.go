package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxKeyDigits is the length above which numeric keys are shortened.
const maxKeyDigits = 12

// FormatNumber renders f the way the query front end prints numbers: integers
// without a fraction, plain decimal notation for magnitudes in [1e-6, 1e21),
// exponent notation outside of it.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	abs := math.Abs(f)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	return expNotation(strconv.FormatFloat(f, 'e', -1, 64))
}

// FormatKey renders a value used as a series key.
//
// Numbers whose FormatNumber text is longer than 12 characters are rounded to 12
// significant digits and stripped of trailing fractional zeros, so that keys
// stay short in legends and axis labels.
func FormatKey(v Value) string {
	if v == nil {
		return ""
	}

	if f, ok := Float64(v); ok {
		if _, isBool := v.(Bool); !isBool {
			return formatKeyNumber(f)
		}
	}

	switch k := v.(type) {
	case String:
		return string(k)
	case Label:
		return string(k)
	case Error:
		return string(k)
	case Time:
		return k.UTC().Format("2006-01-02T15:04:05.000Z")
	case Duration:
		return k.String()
	default:
		return fmt.Sprint(v.Native())
	}
}

func formatKeyNumber(f float64) string {
	s := FormatNumber(f)
	if len(s) <= maxKeyDigits {
		return s
	}

	return toPrecision(f, maxKeyDigits)
}

// toPrecision rounds f to digits significant digits. Fixed notation is used when
// the decimal exponent lies in [-6, digits), exponent notation otherwise.
// Trailing fractional zeros are removed.
func toPrecision(f float64, digits int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return FormatNumber(f)
	}

	sci := strconv.FormatFloat(f, 'e', digits-1, 64)
	idx := strings.IndexByte(sci, 'e')
	exp, _ := strconv.Atoi(sci[idx+1:])

	if exp < -6 || exp >= digits {
		return expNotation(trimFraction(sci[:idx]) + sci[idx:])
	}

	return trimFraction(strconv.FormatFloat(f, 'f', digits-1-exp, 64))
}

// trimFraction drops trailing zeros after a decimal point, and the point itself
// when nothing remains after it.
func trimFraction(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")

	return strings.TrimSuffix(s, ".")
}

// expNotation rewrites Go exponent text ("1.5e+07", "1e-09") into the
// shorter form without exponent zero padding ("1.5e+7", "1e-9").
func expNotation(s string) string {
	idx := strings.IndexByte(s, 'e')
	if idx < 0 || idx+2 >= len(s) {
		return s
	}

	mantissa, sign, digits := s[:idx], s[idx+1], strings.TrimLeft(s[idx+2:], "0")
	if digits == "" {
		digits = "0"
	}

	return mantissa + "e" + string(sign) + digits
}
