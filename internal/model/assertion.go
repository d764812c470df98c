package model

import "fmt"

// RawAssertion is one free-form quality assertion about a workback plan
type RawAssertion struct {
	ID        string `json:"id"`
	MeetingID string `json:"meeting_id,omitempty"`
	Text      string `json:"text"`
}

// UnitFlag marks units that need attention in the final report
type UnitFlag string

const (
	FlagLowConfidence UnitFlag = "low_confidence" // Produced by the heuristic fallback
	FlagUnclassified  UnitFlag = "unclassified"   // Oracle returned an invalid dimension twice
	FlagOracleTimeout UnitFlag = "ORACLE_TIMEOUT" // Oracle call timed out
	FlagReview        UnitFlag = "needs_review"   // Flagged for human review
)

// AtomicUnit is one indivisible, single-requirement check decomposed from an assertion.
// Units are append-only: corrections require a new unit with a new id.
type AtomicUnit struct {
	ID               string          `json:"id"`
	AssertionID      string          `json:"assertion_id"`
	SDimension       string          `json:"s_dimension,omitempty"` // Empty only for the meta/hallucination unit
	SDimensionName   string          `json:"s_dimension_name,omitempty"`
	Level            Level           `json:"level"`
	Template         string          `json:"template,omitempty"`
	InstantiatedText string          `json:"instantiated_text"`
	LinkedGDims      []string        `json:"linked_g_dims,omitempty"`
	Slots            []GroundingSlot `json:"g_slots,omitempty"`
	Flags            []UnitFlag      `json:"flags,omitempty"`
	RegistryVersion  string          `json:"registry_version,omitempty"`
}

// UnitID builds the stable, monotonic id for the n-th unit of an assertion (1-based)
func UnitID(assertionID string, n int) string {
	return fmt.Sprintf("%s-u%02d", assertionID, n)
}

// HasFlag reports whether the unit carries the given flag
func (u *AtomicUnit) HasFlag(flag UnitFlag) bool {
	for _, f := range u.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// IsMeta reports whether this is the parent-less meta/hallucination unit
func (u *AtomicUnit) IsMeta() bool {
	return u.SDimension == ""
}
