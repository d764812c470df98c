package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"plangrade/internal/model"
)

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	content := `meeting_id: mtg-42
attendees:
  - Alice Chen
  - Bob Smith
organizer: Carol Diaz
date: "2026-03-15"
timezone: PST
topics:
  - Q2 launch readiness
action_items:
  - owner: Alice Chen
    description: circulate the deck
    due_date: "2026-03-12"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	record, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if record.MeetingID != "mtg-42" || record.Date != "2026-03-15" {
		t.Errorf("unexpected record: %+v", record)
	}
	if len(record.Attendees) != 2 {
		t.Errorf("expected 2 attendees, got %v", record.Attendees)
	}
	people := record.People()
	if len(people) != 3 || people[2] != "Carol Diaz" {
		t.Errorf("People should include the organizer, got %v", people)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.json")
	content := `{"meeting_id": "mtg-7", "attendees": ["Alice Chen"], "date": "2026-04-01"}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	record, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if record.MeetingID != "mtg-7" {
		t.Errorf("unexpected record: %+v", record)
	}
}

func TestLoad_RequiresMeetingDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte("meeting_id: mtg-1\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for a record without a meeting date")
	}
}

func TestFacts(t *testing.T) {
	record := &model.ScenarioRecord{
		Date:      "2026-03-15",
		Time:      "10:00",
		Timezone:  "PST",
		Organizer: "Carol Diaz",
		Attendees: []string{"Alice Chen", "Bob Smith"},
		Topics:    []string{"Q2 launch readiness"},
		ActionItems: []model.ActionItem{
			{Owner: "Alice Chen", Description: "circulate the deck", DueDate: "2026-03-12"},
		},
	}

	facts := Facts(record)
	for _, want := range []string{
		"2026-03-15", "PST", "Carol Diaz", "Alice Chen, Bob Smith",
		"Q2 launch readiness", "circulate the deck", "due 2026-03-12",
	} {
		if !strings.Contains(facts, want) {
			t.Errorf("facts missing %q:\n%s", want, facts)
		}
	}
}
