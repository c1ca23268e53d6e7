package tasks

import (
	"slices"
	"strings"

	"github.com/dohr-michael/dayplan/internal/calendar"
)

// Grouping maps a date key to the ordered tasks carrying that date.
// Map iteration order is meaningless; use Dates for display order.
type Grouping map[string][]Task

// Group sorts tasks by date then time and partitions them by date.
// The sort is stable, so tasks with equal keys keep their input order.
func Group(tasks []Task) Grouping {
	g := make(Grouping)
	for _, t := range Sorted(tasks) {
		g[t.Date] = append(g[t.Date], t)
	}
	return g
}

// Sorted returns a stably sorted copy of tasks ordered by date, then
// time. Tasks without a time follow timed tasks of the same date.
func Sorted(tasks []Task) []Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, func(a, b Task) int {
		if c := CompareDateKeys(a.Date, b.Date); c != 0 {
			return c
		}
		return calendar.CompareClock(a.Time, b.Time)
	})
	return out
}

// CompareDateKeys orders bucket keys chronologically. Keys that are not
// valid dates sort after all valid ones, lexicographically.
func CompareDateKeys(a, b string) int {
	da, errA := calendar.ParseDate(a)
	db, errB := calendar.ParseDate(b)
	switch {
	case errA == nil && errB == nil:
		if c := da.Compare(db); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// Dates returns the bucket keys in ascending chronological order.
func (g Grouping) Dates() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, CompareDateKeys)
	return keys
}

// Flatten concatenates the buckets in date order.
func (g Grouping) Flatten() []Task {
	var out []Task
	for _, d := range g.Dates() {
		out = append(out, g[d]...)
	}
	return out
}

// Len returns the number of tasks across all buckets.
func (g Grouping) Len() int {
	n := 0
	for _, ts := range g {
		n += len(ts)
	}
	return n
}

// Clone returns a copy whose bucket slices do not alias g's.
func (g Grouping) Clone() Grouping {
	out := make(Grouping, len(g))
	for k, ts := range g {
		out[k] = slices.Clone(ts)
	}
	return out
}
