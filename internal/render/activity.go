package render

import (
	"fmt"

	"github.com/dohr-michael/dayplan/internal/events"
)

// Activity renders one task event as a single line.
func Activity(e events.Event) string {
	ts := mutedStyle.Render(e.Timestamp.Local().Format("2006-01-02 15:04"))
	return fmt.Sprintf("%s  %-10s %s %s", ts, e.Source, e.Type, describe(e))
}

func describe(e events.Event) string {
	switch e.Type {
	case events.EventTaskCreated:
		if p, ok := events.ExtractPayload[events.TaskCreatedPayload](e); ok {
			return fmt.Sprintf("%q on %s", p.Task.Title, p.Task.Date)
		}
	case events.EventTaskUpdated:
		if p, ok := events.ExtractPayload[events.TaskUpdatedPayload](e); ok {
			return fmt.Sprintf("%q", p.Task.Title)
		}
	case events.EventTaskRescheduled:
		if p, ok := events.ExtractPayload[events.TaskRescheduledPayload](e); ok {
			return fmt.Sprintf("%s to %s %s", p.TaskID, p.Date, p.Time)
		}
	case events.EventTaskCompleted:
		if p, ok := events.ExtractPayload[events.TaskCompletedPayload](e); ok {
			if p.Done {
				return p.TaskID + " done"
			}
			return p.TaskID + " reopened"
		}
	case events.EventTaskDeleted:
		if p, ok := events.ExtractPayload[events.TaskDeletedPayload](e); ok {
			return p.TaskID
		}
	}
	return ""
}
