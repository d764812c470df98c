package model

// ActionItem is one agreed follow-up recorded for a meeting
type ActionItem struct {
	Owner       string `json:"owner" yaml:"owner"`
	Description string `json:"description" yaml:"description"`
	DueDate     string `json:"due_date,omitempty" yaml:"due_date,omitempty"` // YYYY-MM-DD
}

// ScenarioRecord holds the source-of-truth facts for one meeting.
// Read-only during verification.
type ScenarioRecord struct {
	MeetingID   string       `json:"meeting_id" yaml:"meeting_id"`
	Attendees   []string     `json:"attendees" yaml:"attendees"`
	Organizer   string       `json:"organizer" yaml:"organizer"`
	Date        string       `json:"date" yaml:"date"` // YYYY-MM-DD
	Time        string       `json:"time,omitempty" yaml:"time,omitempty"`
	Timezone    string       `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Artifacts   []string     `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Topics      []string     `json:"topics,omitempty" yaml:"topics,omitempty"`
	ActionItems []ActionItem `json:"action_items,omitempty" yaml:"action_items,omitempty"`
}

// People returns everyone named in the record (attendees plus organizer)
func (s *ScenarioRecord) People() []string {
	people := make([]string, 0, len(s.Attendees)+1)
	people = append(people, s.Attendees...)
	if s.Organizer != "" {
		people = append(people, s.Organizer)
	}
	return people
}

// ArtifactUnderTest is the generated workback plan being graded
type ArtifactUnderTest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
