package calendar

import (
	"strings"
	"time"
)

// ClockLayout is the canonical hour-minute form of a task time.
const ClockLayout = "15:04"

var clockLayouts = []string{ClockLayout, "15:04:05", "3:04PM", "3:04 PM"}

// NormalizeClock returns s as HH:MM. Empty input stays empty and
// unparseable input is returned trimmed.
func NormalizeClock(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if t, ok := parseClock(s); ok {
		return t.Format(ClockLayout)
	}
	return s
}

// ValidClock reports whether s is empty or a parseable clock time.
func ValidClock(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	_, ok := parseClock(s)
	return ok
}

func parseClock(s string) (time.Time, bool) {
	// "9:05" is accepted by padding to "09:05".
	if len(s) == 4 && s[1] == ':' {
		s = "0" + s
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CompareClock orders task times: timed entries first in ascending
// order, then unscheduled (empty) ones. Unparseable values sort after
// timed ones and before empty ones, lexicographically among themselves.
func CompareClock(a, b string) int {
	ra, rb := clockRank(a), clockRank(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	if ra == 2 {
		return 0
	}
	return strings.Compare(NormalizeClock(a), NormalizeClock(b))
}

func clockRank(s string) int {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return 2
	case ValidClock(s):
		return 0
	default:
		return 1
	}
}
