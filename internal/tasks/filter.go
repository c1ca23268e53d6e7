package tasks

import (
	"fmt"
	"strings"
	"time"

	"github.com/dohr-michael/dayplan/internal/calendar"
)

// Mode selects the time window of visible tasks.
type Mode string

const (
	ModeAll  Mode = "all"
	ModeDay  Mode = "day"
	ModeWeek Mode = "week"
)

// WeekStart is the first day of a planner week.
const WeekStart = time.Sunday

// ParseMode accepts "all", "day" (or "today") and "week". Empty means all.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ModeAll, nil
	case "day", "today":
		return ModeDay, nil
	case "week":
		return ModeWeek, nil
	}
	return "", fmt.Errorf("unknown filter mode %q", s)
}

// WeekBounds returns the first and last day of the week containing today.
func WeekBounds(today calendar.Date) (calendar.Date, calendar.Date) {
	start := today.StartOfWeek(WeekStart)
	return start, start.AddDays(6)
}

// Filter returns the tasks visible under mode. Dates are compared as
// calendar days; tasks with an unparseable date are only shown in ModeAll.
func Filter(tasks []Task, mode Mode, today calendar.Date) []Task {
	var keep func(calendar.Date) bool
	switch mode {
	case ModeDay:
		keep = func(d calendar.Date) bool { return d == today }
	case ModeWeek:
		from, to := WeekBounds(today)
		keep = func(d calendar.Date) bool { return d.Within(from, to) }
	default:
		out := make([]Task, len(tasks))
		copy(out, tasks)
		return out
	}

	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		d, err := calendar.ParseDate(t.Date)
		if err != nil {
			continue
		}
		if keep(d) {
			out = append(out, t)
		}
	}
	return out
}
