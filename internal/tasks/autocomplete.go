package tasks

import "github.com/dohr-michael/dayplan/internal/calendar"

// ShouldAutoComplete reports whether t is an open task dated strictly
// before today. Tasks without a parseable date never qualify.
func ShouldAutoComplete(t Task, today calendar.Date) bool {
	if t.Done {
		return false
	}
	d, err := calendar.ParseDate(t.Date)
	if err != nil {
		return false
	}
	return d.Before(today)
}

// AutoComplete marks every overdue task in place and returns the
// ones it changed. Done tasks are never reopened.
func AutoComplete(tasks []Task, today calendar.Date) []Task {
	var changed []Task
	for i := range tasks {
		if ShouldAutoComplete(tasks[i], today) {
			tasks[i].Done = true
			changed = append(changed, tasks[i])
		}
	}
	return changed
}
