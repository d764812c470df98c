package verify

import (
	"strings"
	"time"

	"plangrade/internal/model"
)

// dateLayouts are the plan date formats we normalize before comparing
var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"01/02/2006",
	"2006/01/02",
}

// parseDate normalizes a date string across common plan formats
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// normalize lowercases and collapses whitespace for comparison
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// matchesNormalized compares a slot value against one record value with the
// normalization appropriate for the slot type.
func matchesNormalized(slotType, got, want string) bool {
	switch slotType {
	case "MEETING_DATE", "DUE_DATE", "MILESTONE":
		gt, err1 := parseDate(got)
		wt, err2 := parseDate(want)
		if err1 != nil || err2 != nil {
			return normalize(got) == normalize(want)
		}
		return gt.Equal(wt)

	case "TOPIC", "ACTION_ITEM", "ARTIFACT":
		// Free-text fields match on containment either way
		g, w := normalize(got), normalize(want)
		return g == w || strings.Contains(w, g) || strings.Contains(g, w)

	default:
		return normalize(got) == normalize(want)
	}
}

// recordValues returns the record field a slot type grounds against and its
// human-readable name.
func recordValues(slotType string, record *model.ScenarioRecord) ([]string, string) {
	switch slotType {
	case "OWNER", "ATTENDEE":
		return record.People(), "attendee list"
	case "MEETING_DATE":
		if record.Date == "" {
			return nil, "meeting date"
		}
		return []string{record.Date}, "meeting date"
	case "TIMEZONE":
		if record.Timezone == "" {
			return nil, "timezone"
		}
		return []string{record.Timezone}, "timezone"
	case "ARTIFACT":
		return record.Artifacts, "artifact list"
	case "TOPIC":
		return record.Topics, "topic list"
	case "ACTION_ITEM":
		var out []string
		for _, item := range record.ActionItems {
			out = append(out, item.Description)
		}
		return out, "action items"
	default:
		return nil, "record"
	}
}

// findSpan locates a value in the artifact text case-insensitively and
// returns the matched span verbatim from the artifact, or "" when absent.
func findSpan(text, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	idx := strings.Index(strings.ToLower(text), strings.ToLower(value))
	if idx < 0 {
		return ""
	}
	return text[idx : idx+len(value)]
}

// findAnySpan returns the first term found in the text
func findAnySpan(text string, terms []string) string {
	for _, term := range terms {
		if span := findSpan(text, term); span != "" {
			return span
		}
	}
	return ""
}
