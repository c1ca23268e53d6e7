package render

import (
	"strings"
	"testing"
	"time"

	"github.com/dohr-michael/dayplan/internal/calendar"
	"github.com/dohr-michael/dayplan/internal/events"
	"github.com/dohr-michael/dayplan/internal/planner"
	"github.com/dohr-michael/dayplan/internal/tasks"
)

func TestMarkdown(t *testing.T) {
	if got := Markdown("  ", 40); got != "" {
		t.Errorf("Markdown(blank) = %q, want empty", got)
	}
	got := Markdown("Added **Buy milk** for today.", 40)
	if !strings.Contains(got, "Buy milk") {
		t.Errorf("Markdown = %q, want it to contain the text", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Errorf("Markdown = %q, want no trailing newline", got)
	}
}

func TestBoard(t *testing.T) {
	today := calendar.MustParse("2024-06-05")
	b := planner.Board{
		Today:  today,
		Filter: tasks.ModeWeek,
		Buckets: []planner.Bucket{
			{Date: "2024-06-04", Expanded: true, Tasks: []tasks.Task{{ID: "task_a", Title: "Overdue", Date: "2024-06-04"}}},
			{Date: "2024-06-05", Expanded: true, Tasks: []tasks.Task{
				{ID: "task_b", Title: "Standup", Date: "2024-06-05", Time: "09:00", Category: "Work,Meeting"},
				{ID: "task_c", Title: "Gym", Date: "2024-06-05", Done: true},
			}},
			{Date: "2024-06-07", Expanded: false, Tasks: []tasks.Task{{ID: "task_d", Title: "Hidden", Date: "2024-06-07"}}},
		},
	}

	out := Board(b)
	for _, want := range []string{"week", "Tue 2024-06-04", "Wed 2024-06-05 (today)", "0. ⏳ 09:00", "Standup", "[Work, Meeting]", "1. ✅", "task_c", "(1 hidden)"} {
		if !strings.Contains(out, want) {
			t.Errorf("board missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Hidden") {
		t.Errorf("collapsed bucket rendered its tasks:\n%s", out)
	}

	if out := Board(planner.Board{Today: today, Filter: tasks.ModeDay}); !strings.Contains(out, "No tasks.") {
		t.Errorf("empty board = %q", out)
	}
}

func TestTasks(t *testing.T) {
	today := calendar.MustParse("2024-06-05")
	out := Tasks([]tasks.Task{
		{ID: "task_b", Title: "Later", Date: "2024-06-09"},
		{ID: "task_a", Title: "Sooner", Date: "2024-06-06"},
		{ID: "task_x", Title: "Odd", Date: "someday"},
	}, today)

	sooner, later, odd := strings.Index(out, "Sooner"), strings.Index(out, "Later"), strings.Index(out, "Odd")
	if sooner < 0 || later < 0 || odd < 0 || !(sooner < later && later < odd) {
		t.Errorf("tasks out of order:\n%s", out)
	}
	if !strings.Contains(out, "someday") {
		t.Errorf("unparseable date heading missing:\n%s", out)
	}
	if got := Tasks(nil, today); !strings.Contains(got, "No tasks.") {
		t.Errorf("Tasks(nil) = %q", got)
	}
}

func TestTaskLine(t *testing.T) {
	tests := []struct {
		name string
		task tasks.Task
		want []string
	}{
		{"done", tasks.Task{ID: "task_d", Title: "Filed", Done: true, Priority: tasks.PriorityHigh}, []string{"1. ✅", "Filed", "task_d"}},
		{"high", tasks.Task{ID: "task_h", Title: "Urgent", Time: "08:15", Priority: tasks.PriorityHigh}, []string{"1. ⏳", "08:15", "Urgent"}},
		{"categories", tasks.Task{ID: "task_c", Title: "Call", Category: "Work,Call"}, []string{"Call", "[Work, Call]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TaskLine(1, tt.task)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("TaskLine = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestActivity(t *testing.T) {
	at := time.Date(2024, 6, 5, 9, 30, 0, 0, time.Local)

	created := events.NewOwnedEvent(events.SourceAssistant, events.TaskCreatedPayload{
		Task: events.TaskSnapshot{ID: "task_a", Title: "Dentist", Date: "2024-06-06"},
	}, "u1")
	created.Timestamp = at
	out := Activity(created)
	for _, want := range []string{"2024-06-05 09:30", "assistant", "task.created", `"Dentist" on 2024-06-06`} {
		if !strings.Contains(out, want) {
			t.Errorf("Activity missing %q: %s", want, out)
		}
	}

	reopened := events.NewOwnedEvent(events.SourceGateway, events.TaskCompletedPayload{TaskID: "task_b"}, "u1")
	if out := Activity(reopened); !strings.Contains(out, "task_b reopened") {
		t.Errorf("Activity = %s", out)
	}
}
