package tasks

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is a YAML document listing tasks to import:
//
//	tasks:
//	  - title: Dentist
//	    date: 2024-06-03
//	    time: "09:30"
//	    categories: [Health]
//	    priority: high
type Manifest struct {
	Tasks []ManifestEntry `yaml:"tasks"`
}

type ManifestEntry struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Categories  []string `yaml:"categories"`
	Date        string   `yaml:"date"`
	Time        string   `yaml:"time"`
	Priority    string   `yaml:"priority"`
}

// ParseManifest decodes and validates a manifest, returning one
// normalized draft per entry.
func ParseManifest(data []byte) ([]Draft, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	drafts := make([]Draft, 0, len(m.Tasks))
	var problems []string
	for i, e := range m.Tasks {
		d := Draft{
			Title:       e.Title,
			Description: e.Description,
			Category:    JoinCategories(e.Categories),
			Date:        e.Date,
			Time:        e.Time,
			Priority:    Priority(e.Priority),
		}.Normalize()
		if err := d.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("entry %d: %v", i+1, err))
			continue
		}
		drafts = append(drafts, d)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTask, strings.Join(problems, "; "))
	}
	return drafts, nil
}
