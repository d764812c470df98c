package model

import (
	"sort"
	"time"
)

// NoEvidence is the evidence marker for a check that found nothing to cite
const NoEvidence = "NO_EVIDENCE"

// Outcome is the result of one verification check
type Outcome string

const (
	OutcomePass    Outcome = "pass"
	OutcomeFail    Outcome = "fail"
	OutcomeSkipped Outcome = "skipped" // CONDITIONAL slot with no record field
)

// VerificationResult is the outcome of checking one unit's dimension against one artifact.
// Immutable once created; recomputing with identical inputs yields identical output.
type VerificationResult struct {
	UnitID     string  `json:"unit_id"`
	ArtifactID string  `json:"artifact_id"`
	Dimension  string  `json:"dimension"`
	Layer      Layer   `json:"layer"`
	Outcome    Outcome `json:"outcome"`
	Evidence   string  `json:"evidence"` // Span from the artifact, or NO_EVIDENCE
	Rationale  string  `json:"rationale,omitempty"`
}

// Passed reports whether the result is a pass
func (r VerificationResult) Passed() bool {
	return r.Outcome == OutcomePass
}

// Verdict is the four-way terminal grade for an artifact
type Verdict string

const (
	VerdictPass          Verdict = "pass"           // EXCELLENT
	VerdictFailStructure Verdict = "fail_structure" // NEEDS_WORK: incomplete but accurate
	VerdictFailGrounding Verdict = "fail_grounding" // REJECT: complete but hallucinated
	VerdictFailBoth      Verdict = "fail_both"      // POOR
)

// Rank orders verdicts from best to worst. A grounding failure always ranks
// worse than a structural one: a hallucinated plan is never reported as better
// than an incomplete-but-accurate one.
func (v Verdict) Rank() int {
	switch v {
	case VerdictPass:
		return 0
	case VerdictFailStructure:
		return 1
	case VerdictFailGrounding:
		return 2
	default:
		return 3
	}
}

// Label returns the narrative name for a verdict
func (v Verdict) Label() string {
	switch v {
	case VerdictPass:
		return "EXCELLENT"
	case VerdictFailStructure:
		return "NEEDS_WORK"
	case VerdictFailGrounding:
		return "REJECT"
	default:
		return "POOR"
	}
}

// DimensionFailure records one failed dimension for the report
type DimensionFailure struct {
	Dimension string   `json:"dimension"`
	Name      string   `json:"name,omitempty"`
	UnitIDs   []string `json:"unit_ids"`
	Rationale string   `json:"rationale,omitempty"`
}

// EvaluationReport aggregates all verification results for one artifact.
// Regenerable from results; not persisted as source of truth.
type EvaluationReport struct {
	RunID           string    `json:"run_id"`
	ArtifactID      string    `json:"artifact_id"`
	RegistryVersion string    `json:"registry_version"`
	GeneratedAt     time.Time `json:"generated_at"`

	StructuralScore float64 `json:"structural_score"`
	GroundingScore  float64 `json:"grounding_score"`
	Verdict         Verdict `json:"verdict"`

	FailedStructural []DimensionFailure `json:"failed_structural"`
	FailedGrounding  []DimensionFailure `json:"failed_grounding"`

	// Unresolved units (low-confidence, unclassified, timed out) are surfaced
	// separately, never mixed into pass/fail counts.
	UnresolvedUnits []string `json:"unresolved_units,omitempty"`
}

// SortReports orders reports best to worst by verdict rank, breaking ties on
// higher combined scores. Stable, so equal reports keep input order.
func SortReports(reports []*EvaluationReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		a, b := reports[i], reports[j]
		if a.Verdict.Rank() != b.Verdict.Rank() {
			return a.Verdict.Rank() < b.Verdict.Rank()
		}
		return a.StructuralScore+a.GroundingScore > b.StructuralScore+b.GroundingScore
	})
}
