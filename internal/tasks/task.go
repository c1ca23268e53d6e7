// Package tasks holds the dated task model and the pure functions that
// group, filter, auto-complete and reorder task collections.
package tasks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dohr-michael/dayplan/internal/calendar"
)

var (
	ErrNotFound        = errors.New("task not found")
	ErrInvalidTask     = errors.New("invalid task")
	ErrInvalidPosition = errors.New("invalid position")
)

// Priority is the user-assigned importance of a task.
type Priority string

const (
	PriorityNone   Priority = "None"
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority is case-insensitive. Empty input yields PriorityNone.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return PriorityNone, nil
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	}
	return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, s)
}

// Task is a single dated entry on the planner.
type Task struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description,omitempty"`
	Category    string   `json:"category" yaml:"category,omitempty"`
	Date        string   `json:"date" yaml:"date"`
	Time        string   `json:"time" yaml:"time,omitempty"`
	Priority    Priority `json:"priority" yaml:"priority"`
	Done        Flag     `json:"done" yaml:"done"`
}

// Categories returns the category labels of t.
func (t Task) Categories() []string {
	return SplitCategories(t.Category)
}

// Normalized returns t with its date and time in canonical form.
// An unparseable date is kept verbatim.
func (t Task) Normalized() Task {
	t.Date = calendar.NormalizeDate(t.Date)
	t.Time = calendar.NormalizeClock(t.Time)
	return t
}

// GenerateID returns a short unique task identifier.
func GenerateID() string {
	u := uuid.New().String()
	return "task_" + strings.ReplaceAll(u[:8], "-", "")
}

// Draft carries the user-editable fields of a task.
type Draft struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description,omitempty"`
	Category    string   `json:"category" yaml:"category,omitempty"`
	Date        string   `json:"date" yaml:"date"`
	Time        string   `json:"time" yaml:"time,omitempty"`
	Priority    Priority `json:"priority" yaml:"priority,omitempty"`
}

// DraftOf populates an edit form from an existing task.
func DraftOf(t Task) Draft {
	return Draft{
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Date:        t.Date,
		Time:        t.Time,
		Priority:    t.Priority,
	}
}

// Normalize trims text fields and canonicalizes date, time, categories
// and priority casing.
func (d Draft) Normalize() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Category = JoinCategories(SplitCategories(d.Category))
	d.Date = calendar.NormalizeDate(d.Date)
	d.Time = calendar.NormalizeClock(d.Time)
	if p, err := ParsePriority(string(d.Priority)); err == nil {
		d.Priority = p
	}
	return d
}

// Validate checks a normalized draft.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if _, err := calendar.ParseDate(d.Date); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	if !calendar.ValidClock(d.Time) {
		return fmt.Errorf("%w: invalid time %q", ErrInvalidTask, d.Time)
	}
	if _, err := ParsePriority(string(d.Priority)); err != nil {
		return err
	}
	return nil
}

// Apply copies the draft fields onto t, leaving ID and Done untouched.
func (d Draft) Apply(t *Task) {
	t.Title = d.Title
	t.Description = d.Description
	t.Category = d.Category
	t.Date = d.Date
	t.Time = d.Time
	t.Priority = d.Priority
}
