package tasks

import "strings"

// PresetCategories are offered by the CLI and the assistant.
var PresetCategories = []string{"Work", "Personal", "Meeting", "Call", "Errand", "Health"}

// SplitCategories splits a comma-joined category string into labels,
// trimming whitespace and dropping empty and repeated labels.
func SplitCategories(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

// JoinCategories is the inverse of SplitCategories.
func JoinCategories(labels []string) string {
	return strings.Join(SplitCategories(strings.Join(labels, ",")), ",")
}

// ToggleCategory adds name to s, or removes it when already present.
func ToggleCategory(s, name string) string {
	labels := SplitCategories(s)
	for i, l := range labels {
		if l == name {
			return JoinCategories(append(labels[:i:i], labels[i+1:]...))
		}
	}
	return JoinCategories(append(labels, name))
}
