package value

import (
	"strconv"
	"strings"
)

const (
	nanosPerSecond = int64(1_000_000_000)
	nanosPerMinute = 60 * nanosPerSecond
	nanosPerHour   = 60 * nanosPerMinute
)

// Duration is a calendar duration: years, months and days plus a nanosecond remainder.
type Duration struct {
	Years  int64
	Months int64
	Days   int64
	Nanos  int64
}

// String renders the duration compactly, e.g. "1Y2M3D", "-1h30m", "2.5s" or "0s".
//
// Each non-zero calendar field contributes its own magnitude followed by Y, M or D.
// The LispTick JavaScript client prints the year value for the month and day
// fields too ("5Y5M5D" for 5 years, 1 month, 2 days); that output is a bug and
// is not reproduced here.
// The nanosecond field is split into hours, minutes and fractional seconds, each
// written only when non-zero. A negative nanosecond field prefixes the whole string
// with a minus sign.
func (d Duration) String() string {
	var sb strings.Builder

	if d.Years != 0 {
		sb.WriteString(strconv.FormatInt(d.Years, 10))
		sb.WriteByte('Y')
	}
	if d.Months != 0 {
		sb.WriteString(strconv.FormatInt(d.Months, 10))
		sb.WriteByte('M')
	}
	if d.Days != 0 {
		sb.WriteString(strconv.FormatInt(d.Days, 10))
		sb.WriteByte('D')
	}

	sign := ""
	nanos := d.Nanos
	if nanos < 0 {
		nanos = -nanos
		sign = "-"
	}

	if hours := nanos / nanosPerHour; hours != 0 {
		sb.WriteString(strconv.FormatInt(hours, 10))
		sb.WriteByte('h')
		nanos -= hours * nanosPerHour
	}
	if minutes := nanos / nanosPerMinute; minutes != 0 {
		sb.WriteString(strconv.FormatInt(minutes, 10))
		sb.WriteByte('m')
		nanos -= minutes * nanosPerMinute
	}
	if nanos != 0 {
		sb.WriteString(FormatNumber(float64(nanos) / float64(nanosPerSecond)))
		sb.WriteByte('s')
	}

	if sb.Len() == 0 {
		return "0s"
	}

	return sign + sb.String()
}
