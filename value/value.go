// Package value defines the decoded form of every wire value kind.
//
// Value is a closed set: each of the 16 wire tags maps to exactly one concrete
// type in this package, and no other package can add variants. Composite
// variants (Array, Pair, HeartBeat, Tensor) hold further Values.
//
//	switch v := v.(type) {
//	case value.Int:
//	    fmt.Println(int64(v))
//	case value.Array:
//	    for _, elem := range v { ... }
//	}
//
// Native converts any Value into plain Go data (int64, float64, string, bool,
// time.Time, []any, map[string]any) suitable for JSON or msgpack encoding.
package value

import (
	"math"
	"time"

	"github.com/arloliu/tickwire/format"
)

// Value is one decoded wire value.
type Value interface {
	// Tag returns the wire tag this value was decoded from.
	Tag() format.Tag
	// Native returns a plain Go representation of the value.
	Native() any

	sealed()
}

type (
	// Null is the empty value.
	Null struct{}
	// Int is a signed 64-bit integer.
	Int int64
	// Float is an IEEE 754 double.
	Float float64
	// Time is an instant decoded from nanoseconds since the Unix epoch, in UTC.
	Time struct{ time.Time }
	// Error is an error message sent by the server.
	Error string
	// String is a UTF-8 string.
	String string
	// Label is the name carried by a time series declaration.
	Label string
	// Sentinel is a stream control value.
	Sentinel int64
	// Bool is a boolean.
	Bool bool
	// Array is an inline serialized array.
	Array []Value
	// Pair is two inline values.
	Pair [2]Value
	// HeartBeat wraps a keep-alive value.
	HeartBeat struct{ Inner Value }
)

// Member identifies one future element of an array header.
type Member struct {
	Tag format.Tag
	ID  uint32
}

// ArrayHeader declares the ids of an array's members, in slot order.
type ArrayHeader struct {
	Members []Member
}

// Dec64 is a decimal value: Mantissa × 10^Exponent.
type Dec64 struct {
	Mantissa int64
	Exponent int8
}

// pow10 holds 10^0 .. 10^128.
var pow10 = func() [129]float64 {
	var t [129]float64
	for i := range t {
		t[i] = math.Pow(10, float64(i))
	}

	return t
}()

// Float64 returns the decimal as a float64.
func (d Dec64) Float64() float64 {
	m := float64(d.Mantissa)
	if d.Exponent >= 0 {
		return m * pow10[d.Exponent]
	}

	return m / pow10[-int(d.Exponent)]
}

// SentinelClose is the sentinel payload asking the client to close the connection.
const SentinelClose Sentinel = 1

func (Null) Tag() format.Tag        { return format.TypeNull }
func (Int) Tag() format.Tag         { return format.TypeInt }
func (Float) Tag() format.Tag       { return format.TypeFloat }
func (Time) Tag() format.Tag        { return format.TypeTime }
func (Duration) Tag() format.Tag    { return format.TypeDuration }
func (Error) Tag() format.Tag       { return format.TypeError }
func (String) Tag() format.Tag      { return format.TypeString }
func (ArrayHeader) Tag() format.Tag { return format.TypeArray }
func (Array) Tag() format.Tag       { return format.TypeArraySerial }
func (Label) Tag() format.Tag       { return format.TypeTimeSerie }
func (Sentinel) Tag() format.Tag    { return format.TypeSentinel }
func (Bool) Tag() format.Tag        { return format.TypeBool }
func (Dec64) Tag() format.Tag       { return format.TypeDec64 }
func (Pair) Tag() format.Tag        { return format.TypePair }
func (HeartBeat) Tag() format.Tag   { return format.TypeHeartBeat }
func (*Tensor) Tag() format.Tag     { return format.TypeTensor }

func (Null) Native() any       { return nil }
func (v Int) Native() any      { return int64(v) }
func (v Float) Native() any    { return float64(v) }
func (v Time) Native() any     { return v.Time }
func (v Duration) Native() any { return v.String() }
func (v Error) Native() any    { return string(v) }
func (v String) Native() any   { return string(v) }
func (v Label) Native() any    { return string(v) }
func (v Sentinel) Native() any { return int64(v) }
func (v Bool) Native() any     { return bool(v) }
func (v Dec64) Native() any    { return v.Float64() }

func (v ArrayHeader) Native() any {
	return len(v.Members)
}

func (v Array) Native() any {
	out := make([]any, len(v))
	for i, elem := range v {
		out[i] = Native(elem)
	}

	return out
}

func (v Pair) Native() any {
	return []any{Native(v[0]), Native(v[1])}
}

func (v HeartBeat) Native() any {
	return Native(v.Inner)
}

func (Null) sealed()        {}
func (Int) sealed()         {}
func (Float) sealed()       {}
func (Time) sealed()        {}
func (Duration) sealed()    {}
func (Error) sealed()       {}
func (String) sealed()      {}
func (ArrayHeader) sealed() {}
func (Array) sealed()       {}
func (Label) sealed()       {}
func (Sentinel) sealed()    {}
func (Bool) sealed()        {}
func (Dec64) sealed()       {}
func (Pair) sealed()        {}
func (HeartBeat) sealed()   {}
func (*Tensor) sealed()     {}

// Native is Value.Native that tolerates a nil Value.
func Native(v Value) any {
	if v == nil {
		return nil
	}

	return v.Native()
}

// FirstError returns the first Error found in v, looking inside arrays, pairs
// and heartbeats depth first.
func FirstError(v Value) (Error, bool) {
	switch v := v.(type) {
	case Error:
		return v, true
	case Array:
		for _, elem := range v {
			if e, ok := FirstError(elem); ok {
				return e, true
			}
		}
	case Pair:
		for _, elem := range v {
			if e, ok := FirstError(elem); ok {
				return e, true
			}
		}
	case HeartBeat:
		return FirstError(v.Inner)
	}

	return "", false
}

// Float64 returns the numeric content of v.
// Int, Float, Dec64 and Bool convert; every other kind reports false.
func Float64(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	case Dec64:
		return n.Float64(), true
	case Bool:
		if n {
			return 1, true
		}

		return 0, true
	default:
		return 0, false
	}
}
