// Package calendar provides a timezone-free calendar date used for every
// task comparison, bucket key and wire value.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical textual form of a Date.
const Layout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// parseLayouts are tried in order by ParseDate.
var parseLayouts = []string{
	Layout,
	time.RFC1123,
	time.RFC1123Z,
	"02/01/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// Date is a calendar day with no time-of-day or zone.
// The zero value is "no date".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the date for y/m/d, normalizing overflow
// the same way time.Date does (e.g. Jan 32 becomes Feb 1).
func NewDate(y int, m time.Month, d int) Date {
	return DateOf(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the date of t as seen on t's own wall clock.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the local date at now.
func Today(now time.Time) Date {
	return DateOf(now.Local())
}

// ParseDate parses s in any of the accepted layouts and strips the
// time-of-day. Leading and trailing whitespace is ignored.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// MustParse is like ParseDate but panics on error. Intended for tests
// and constants.
func MustParse(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NormalizeDate returns s in canonical form, or s unchanged when it
// cannot be parsed.
func NormalizeDate(s string) string {
	d, err := ParseDate(s)
	if err != nil {
		return s
	}
	return d.String()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// StartOfWeek returns the first day of the 7-day week containing d,
// where weeks begin on first.
func (d Date) StartOfWeek(first time.Weekday) Date {
	offset := (int(d.Weekday()) - int(first) + 7) % 7
	return d.AddDays(-offset)
}

// Within reports whether d lies in [from, to] inclusive.
func (d Date) Within(from, to Date) bool {
	return !d.Before(from) && !d.After(to)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
