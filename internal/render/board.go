package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/dayplan/internal/calendar"
	"github.com/dohr-michael/dayplan/internal/planner"
	"github.com/dohr-michael/dayplan/internal/tasks"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 80

// Palette.
const (
	ColorPrimary    = "#7C3AED" // Violet - headings, today
	ColorSecondary  = "#10B981" // Green - done
	ColorAccent     = "#60A5FA" // Blue - links, times
	ColorWarning    = "#F59E0B" // Amber - high priority
	ColorError      = "#EF4444" // Red - overdue
	ColorMuted      = "#6B7280"
	ColorBorder     = "#374151"
	ColorBackground = "#1F2937"
	ColorText       = "#E5E7EB"
	ColorTextBright = "#FFFFFF"
)

var (
	dateStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorPrimary))
	overdueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorError))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMuted))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondary)).Strikethrough(true)
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))
	highStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).Bold(true)
	headerStyle  = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorTextBright)).
			Background(lipgloss.Color(ColorPrimary)).
			Padding(0, 1)
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Bold(true)
	MutedStyle = mutedStyle
)

// Board renders every bucket of b, collapsed buckets as a single line.
func Board(b planner.Board) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("%s · %s", b.Filter, b.Today)))
	sb.WriteString("\n")
	if len(b.Buckets) == 0 {
		sb.WriteString(mutedStyle.Render("No tasks."))
		return sb.String()
	}
	for _, bucket := range b.Buckets {
		sb.WriteString("\n")
		sb.WriteString(dateHeading(bucket.Date, b.Today))
		if !bucket.Expanded {
			sb.WriteString(mutedStyle.Render(fmt.Sprintf(" (%d hidden)", len(bucket.Tasks))))
			sb.WriteString("\n")
			continue
		}
		sb.WriteString("\n")
		for i, t := range bucket.Tasks {
			sb.WriteString(TaskLine(i, t))
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Tasks renders a flat list grouped under date headings.
func Tasks(list []tasks.Task, today calendar.Date) string {
	g := tasks.Group(list)
	if g.Len() == 0 {
		return mutedStyle.Render("No tasks.")
	}
	var sb strings.Builder
	for _, d := range g.Dates() {
		sb.WriteString(dateHeading(d, today))
		sb.WriteString("\n")
		for i, t := range g[d] {
			sb.WriteString(TaskLine(i, t))
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func dateHeading(date string, today calendar.Date) string {
	d, err := calendar.ParseDate(date)
	if err != nil {
		return mutedStyle.Render(date)
	}
	label := fmt.Sprintf("%s %s", d.Weekday().String()[:3], d)
	switch {
	case d == today:
		return dateStyle.Render(label + " (today)")
	case d.Before(today):
		return overdueStyle.Render(label)
	}
	return dateStyle.Render(label)
}

// TaskLine renders one task with its position in the bucket.
func TaskLine(i int, t tasks.Task) string {
	mark := "⏳"
	if t.Done {
		mark = "✅"
	}
	title := t.Title
	switch {
	case bool(t.Done):
		title = doneStyle.Render(title)
	case t.Priority == tasks.PriorityHigh:
		title = highStyle.Render(title)
	}

	parts := []string{fmt.Sprintf("  %d. %s", i, mark)}
	if t.Time != "" {
		parts = append(parts, timeStyle.Render(t.Time))
	}
	parts = append(parts, title)
	if cats := t.Categories(); len(cats) > 0 {
		parts = append(parts, mutedStyle.Render("["+strings.Join(cats, ", ")+"]"))
	}
	parts = append(parts, mutedStyle.Render(t.ID))
	return strings.Join(parts, " ")
}
