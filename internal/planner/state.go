package planner

import (
	"maps"
	"slices"
	"time"

	"github.com/dohr-michael/dayplan/internal/calendar"
	"github.com/dohr-michael/dayplan/internal/tasks"
)

// State is the in-memory planner session: a cache of the remote task
// list plus presentation settings.
type State struct {
	Tasks    []tasks.Task
	Filter   tasks.Mode
	Expanded map[string]bool
	LoadedAt time.Time
}

// Replace swaps in a freshly fetched collection and expands every date.
func (s *State) Replace(list []tasks.Task, now time.Time) {
	s.Tasks = list
	s.Expanded = make(map[string]bool)
	for _, t := range list {
		s.Expanded[t.Date] = true
	}
	s.LoadedAt = now
}

// ToggleExpanded flips a date's expanded flag and returns the new value.
func (s *State) ToggleExpanded(date string) bool {
	if s.Expanded == nil {
		s.Expanded = make(map[string]bool)
	}
	s.Expanded[date] = !s.Expanded[date]
	return s.Expanded[date]
}

// Visible groups the tasks shown under the current filter.
func (s State) Visible(today calendar.Date) tasks.Grouping {
	return tasks.Group(tasks.Filter(s.Tasks, s.Filter, today))
}

func (s State) Clone() State {
	s.Tasks = slices.Clone(s.Tasks)
	s.Expanded = maps.Clone(s.Expanded)
	return s
}

// Bucket is one date row of the board.
type Bucket struct {
	Date     string       `json:"date"`
	Expanded bool         `json:"expanded"`
	Tasks    []tasks.Task `json:"tasks"`
}

// Board is the presentation view of a State.
type Board struct {
	Today   calendar.Date `json:"today"`
	Filter  tasks.Mode    `json:"filter"`
	Buckets []Bucket      `json:"buckets"`
}

// Board builds the date-ordered view for today.
func (s State) Board(today calendar.Date) Board {
	g := s.Visible(today)
	b := Board{Today: today, Filter: s.Filter}
	for _, d := range g.Dates() {
		b.Buckets = append(b.Buckets, Bucket{Date: d, Expanded: s.Expanded[d], Tasks: g[d]})
	}
	return b
}

// PositionOf locates a task in the full date grouping.
func (s State) PositionOf(taskID string) (tasks.Position, bool) {
	g := tasks.Group(s.Tasks)
	for date, ts := range g {
		for i, t := range ts {
			if t.ID == taskID {
				return tasks.Position{Date: date, Index: i}, true
			}
		}
	}
	return tasks.Position{}, false
}
