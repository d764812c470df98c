// Package scenario loads the source-of-truth record for a meeting.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"plangrade/internal/model"
)

// Load reads a scenario record from a YAML or JSON file
func Load(path string) (*model.ScenarioRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var record model.ScenarioRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("parse scenario: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("parse scenario: %w", err)
		}
	}

	if record.Date == "" {
		return nil, fmt.Errorf("scenario %s has no meeting date", path)
	}
	return &record, nil
}

// Facts renders the record as plain text for oracle prompts
func Facts(record *model.ScenarioRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Meeting date: %s", record.Date)
	if record.Time != "" {
		fmt.Fprintf(&b, " %s", record.Time)
	}
	if record.Timezone != "" {
		fmt.Fprintf(&b, " (%s)", record.Timezone)
	}
	b.WriteString("\n")

	if record.Organizer != "" {
		fmt.Fprintf(&b, "Organizer: %s\n", record.Organizer)
	}
	if len(record.Attendees) > 0 {
		fmt.Fprintf(&b, "Attendees: %s\n", strings.Join(record.Attendees, ", "))
	}
	if len(record.Artifacts) > 0 {
		fmt.Fprintf(&b, "Artifacts: %s\n", strings.Join(record.Artifacts, ", "))
	}
	if len(record.Topics) > 0 {
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(record.Topics, ", "))
	}
	for _, item := range record.ActionItems {
		fmt.Fprintf(&b, "Action item: %s: %s", item.Owner, item.Description)
		if item.DueDate != "" {
			fmt.Fprintf(&b, " (due %s)", item.DueDate)
		}
		b.WriteString("\n")
	}
	return b.String()
}
