// Package humantime formats nanosecond durations for trace output.
package humantime

import "fmt"

const (
	microsecond = 1e3
	millisecond = 1e6
	second      = 1e9
	minute      = 60 * second
	hour        = 60 * minute
)

// Format renders a nanosecond count as a human-readable duration with two
// decimals, picking the largest unit from {ns, µs, ms, s, min, hr}.
func Format(ns int64) string {
	v := float64(ns)

	switch {
	case v < microsecond:
		return fmt.Sprintf("%.2fns", v)
	case v < millisecond:
		return fmt.Sprintf("%.2fµs", v/microsecond)
	case v < second:
		return fmt.Sprintf("%.2fms", v/millisecond)
	case v < minute:
		return fmt.Sprintf("%.2fs", v/second)
	case v < hour:
		return fmt.Sprintf("%.2fmin", v/minute)
	default:
		return fmt.Sprintf("%.2fhr", v/hour)
	}
}
