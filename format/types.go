package format

type (
	// Tag is the wire type discriminator preceding every value.
	Tag int8
	// CompressionType selects the payload codec of a capture file.
	CompressionType uint8
)

const (
	TypeNull        Tag = 0  // TypeNull represents an empty value.
	TypeInt         Tag = 1  // TypeInt represents a signed 64-bit integer.
	TypeFloat       Tag = 2  // TypeFloat represents an IEEE 754 double.
	TypeTime        Tag = 3  // TypeTime represents nanoseconds since the Unix epoch.
	TypeDuration    Tag = 4  // TypeDuration represents a years/months/days/nanos duration.
	TypeError       Tag = 5  // TypeError represents a server side error message.
	TypeString      Tag = 6  // TypeString represents a length-prefixed UTF-8 string.
	TypeArray       Tag = 7  // TypeArray represents an array header declaring member ids.
	TypeArraySerial Tag = 8  // TypeArraySerial represents an inline serialized array.
	TypeTimeSerie   Tag = 9  // TypeTimeSerie represents a time series label.
	TypeSentinel    Tag = 10 // TypeSentinel represents a stream control value.
	TypeBool        Tag = 11 // TypeBool represents a boolean stored as an int64.
	TypeDec64       Tag = 12 // TypeDec64 represents a decimal mantissa/exponent pair.
	TypePair        Tag = 13 // TypePair represents two inline values.
	TypeHeartBeat   Tag = 14 // TypeHeartBeat represents a keep-alive wrapper value.
	TypeTensor      Tag = 15 // TypeTensor represents a dense numeric grid.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

// NoTime is the series timestamp of a sample sent without a time: the Unix
// nanosecond value of the zero time.Time.
const NoTime int64 = -6795364578871345152

var tagNames = [...]string{
	TypeNull:        "Null",
	TypeInt:         "Int",
	TypeFloat:       "Float",
	TypeTime:        "Time",
	TypeDuration:    "Duration",
	TypeError:       "Error",
	TypeString:      "String",
	TypeArray:       "Array",
	TypeArraySerial: "ArraySerial",
	TypeTimeSerie:   "TimeSerie",
	TypeSentinel:    "Sentinel",
	TypeBool:        "Bool",
	TypeDec64:       "Dec64",
	TypePair:        "Pair",
	TypeHeartBeat:   "HeartBeat",
	TypeTensor:      "Tensor",
}

// Known reports whether t is one of the defined wire tags.
func (t Tag) Known() bool {
	return t >= TypeNull && t <= TypeTensor
}

func (t Tag) String() string {
	if !t.Known() {
		return "Unknown"
	}

	return tagNames[t]
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// ParseCompression maps a lowercase codec name to its CompressionType.
func ParseCompression(name string) (CompressionType, bool) {
	switch name {
	case "", "none":
		return CompressionNone, true
	case "zstd":
		return CompressionZstd, true
	case "s2":
		return CompressionS2, true
	case "lz4":
		return CompressionLZ4, true
	default:
		return 0, false
	}
}
