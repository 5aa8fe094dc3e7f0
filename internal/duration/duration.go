// Package duration parses the compact "P…T…" elapsed-time notation used by
// voice-assistant duration slots (e.g. "PT1H30M", "PT45S", "P1DT2H").
package duration

import (
	"strconv"
	"strings"
)

// Seconds converts a compact duration string into whole seconds.
// Days, hours, minutes and seconds components are all optional and appear in
// that fixed order. Components that cannot be parsed contribute zero; the
// input is machine-generated, so malformed strings fail closed rather than
// erroring.
func Seconds(s string) int {
	// Drop the leading period designator.
	if idx := strings.LastIndex(s, "P"); idx >= 0 {
		s = s[idx+1:]
	}

	days, s := split(s, "D")
	_, s = split(s, "T")
	hours, s := split(s, "H")
	minutes, s := split(s, "M")
	seconds, _ := split(s, "S")

	return days*86400 + hours*3600 + minutes*60 + seconds
}

func split(s, sep string) (int, string) {
	if !strings.Contains(s, sep) {
		return 0, s
	}
	head, tail, _ := strings.Cut(s, sep)
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0, tail
	}
	return n, tail
}
