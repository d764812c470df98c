// Package verify checks atomic units against the scenario record and the
// plan under test. Verification fails closed: a check that finds no
// supporting span in the artifact never passes, and a pass always carries
// cited evidence.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"plangrade/internal/llm"
	"plangrade/internal/model"
	"plangrade/internal/registry"
	"plangrade/internal/scenario"
)

// Verifier evaluates units against one artifact and scenario record.
// GROUNDED and DERIVED slots are checked deterministically in-process; only
// PLANNER-GENERATED non-contradiction checks consult the oracle.
type Verifier struct {
	registry *registry.Registry
	oracle   llm.Oracle
	logger   *zap.Logger
}

// NewVerifier creates a verifier
func NewVerifier(reg *registry.Registry, oracle llm.Oracle, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{registry: reg, oracle: oracle, logger: logger}
}

// VerifyUnit produces one structural result for the unit plus one grounding
// result per slot. Identical inputs always yield identical results.
func (v *Verifier) VerifyUnit(ctx context.Context, unit model.AtomicUnit, art *model.ArtifactUnderTest, record *model.ScenarioRecord) []model.VerificationResult {
	var results []model.VerificationResult

	if unit.SDimension != "" {
		results = append(results, v.verifyStructural(unit, art))
	}
	for _, slot := range unit.Slots {
		results = append(results, v.verifySlot(ctx, unit, slot, art, record))
	}
	return results
}

// verifyStructural checks that the plan element the unit demands is present
// at all; correctness is the grounding layer's job.
func (v *Verifier) verifyStructural(unit model.AtomicUnit, art *model.ArtifactUnderTest) model.VerificationResult {
	result := model.VerificationResult{
		UnitID:     unit.ID,
		ArtifactID: art.ID,
		Dimension:  unit.SDimension,
		Layer:      model.LayerStructural,
	}

	// Slot values double as presence probes: an owner assertion is present
	// when some owner value appears in the plan.
	for _, slot := range unit.Slots {
		if span := findSpan(art.Text, slot.Value); span != "" {
			result.Outcome = model.OutcomePass
			result.Evidence = span
			result.Rationale = fmt.Sprintf("%s present in plan", slot.SlotType)
			return result
		}
	}

	// Slot-less units fall back to the dimension's registered signal terms.
	if span := findAnySpan(art.Text, v.signalTerms(unit.SDimension)); span != "" {
		result.Outcome = model.OutcomePass
		result.Evidence = span
		result.Rationale = fmt.Sprintf("%s signal found in plan", unit.SDimensionName)
		return result
	}

	result.Outcome = model.OutcomeFail
	result.Evidence = model.NoEvidence
	result.Rationale = fmt.Sprintf("%s absent from plan", unit.SDimensionName)
	return result
}

// signalTerms returns the presence markers the registry carries for a
// structural dimension, following MERGED redirects.
func (v *Verifier) signalTerms(sDim string) []string {
	dim, err := v.registry.Resolve(sDim)
	if err != nil {
		return nil
	}
	return dim.SignalTerms
}

// verifySlot applies the strictness dictated by the slot's grounding class
func (v *Verifier) verifySlot(ctx context.Context, unit model.AtomicUnit, slot model.GroundingSlot, art *model.ArtifactUnderTest, record *model.ScenarioRecord) model.VerificationResult {
	result := model.VerificationResult{
		UnitID:     unit.ID,
		ArtifactID: art.ID,
		Dimension:  slot.GDim,
		Layer:      model.LayerGrounding,
	}

	// Zero supporting evidence in the artifact always fails, regardless of
	// what the record says: a pass is never inferred from absence.
	span := findSpan(art.Text, slot.Value)
	if span == "" {
		result.Outcome = model.OutcomeFail
		result.Evidence = model.NoEvidence
		result.Rationale = fmt.Sprintf("%q not found in plan", slot.Value)
		return result
	}
	result.Evidence = span

	switch slot.GroundingClass {
	case model.ClassGrounded:
		v.checkGrounded(&result, slot, record, false)

	case model.ClassConditional:
		v.checkGrounded(&result, slot, record, true)

	case model.ClassDerived:
		v.checkDerived(&result, slot, record)

	case model.ClassPlannerGenerated:
		v.checkNonContradiction(ctx, &result, slot, art, record)

	default:
		result.Outcome = model.OutcomeSkipped
		result.Rationale = fmt.Sprintf("grounding class %s is not verified", slot.GroundingClass)
	}
	return result
}

// checkGrounded matches the slot value against the record field for its
// slot type. Conditional slots are skipped, not penalized, when the record
// does not supply the field.
func (v *Verifier) checkGrounded(result *model.VerificationResult, slot model.GroundingSlot, record *model.ScenarioRecord, conditional bool) {
	values, field := recordValues(slot.SlotType, record)
	if len(values) == 0 {
		if conditional {
			result.Outcome = model.OutcomeSkipped
			result.Rationale = fmt.Sprintf("record supplies no %s", field)
			return
		}
		result.Outcome = model.OutcomeFail
		result.Rationale = fmt.Sprintf("record supplies no %s to ground against", field)
		return
	}

	for _, want := range values {
		if matchesNormalized(slot.SlotType, slot.Value, want) {
			result.Outcome = model.OutcomePass
			result.Rationale = fmt.Sprintf("%q matches %s", slot.Value, field)
			return
		}
	}
	result.Outcome = model.OutcomeFail
	result.Rationale = fmt.Sprintf("%q not in %s", slot.Value, field)
}

// checkDerived applies the documented inference rule for the slot type
func (v *Verifier) checkDerived(result *model.VerificationResult, slot model.GroundingSlot, record *model.ScenarioRecord) {
	meetingDate, err := parseDate(record.Date)
	if err != nil {
		result.Outcome = model.OutcomeFail
		result.Rationale = fmt.Sprintf("record meeting date %q is unparsable", record.Date)
		return
	}

	switch slot.SlotType {
	case "DUE_DATE", "MILESTONE":
		// Rule: a workback date must fall on or before the meeting date
		date, err := parseDate(slot.Value)
		if err != nil {
			result.Outcome = model.OutcomeFail
			result.Rationale = fmt.Sprintf("%q is not a recognizable date", slot.Value)
			return
		}
		if date.After(meetingDate) {
			result.Outcome = model.OutcomeFail
			result.Rationale = fmt.Sprintf("%q falls after the meeting date %s", slot.Value, record.Date)
			return
		}
		result.Outcome = model.OutcomePass
		result.Rationale = fmt.Sprintf("%q is on or before the meeting date %s", slot.Value, record.Date)

	default:
		result.Outcome = model.OutcomeFail
		result.Rationale = fmt.Sprintf("no derivation rule for slot type %s", slot.SlotType)
	}
}

// checkNonContradiction asks the oracle whether a planner-generated value
// (assumption, blocker, mitigation) contradicts the record. Presence in the
// record is not required: inventing is legitimate planning, contradicting
// is hallucination.
func (v *Verifier) checkNonContradiction(ctx context.Context, result *model.VerificationResult, slot model.GroundingSlot, art *model.ArtifactUnderTest, record *model.ScenarioRecord) {
	if v.oracle == nil {
		result.Outcome = model.OutcomeSkipped
		result.Rationale = "no verification oracle configured"
		return
	}

	resp, err := v.oracle.Verify(ctx, llm.VerifyRequest{
		Claim: fmt.Sprintf("The plan's %s %q does not contradict any fact in the record.",
			strings.ToLower(slot.SlotType), slot.Value),
		ArtifactText:  art.Text,
		ScenarioFacts: scenario.Facts(record),
	})
	if err != nil {
		if errors.Is(err, llm.ErrOracleTimeout) {
			result.Outcome = model.OutcomeSkipped
			result.Rationale = string(model.FlagOracleTimeout)
			return
		}
		result.Outcome = model.OutcomeSkipped
		result.Rationale = fmt.Sprintf("oracle unavailable: %v", err)
		return
	}

	if resp.Pass && strings.TrimSpace(resp.Evidence) == "" {
		// Pass with no evidence is disallowed; fail closed
		result.Outcome = model.OutcomeFail
		result.Evidence = model.NoEvidence
		result.Rationale = "oracle passed without citing evidence"
		return
	}
	if resp.Pass {
		result.Outcome = model.OutcomePass
		result.Evidence = resp.Evidence
	} else {
		result.Outcome = model.OutcomeFail
	}
	if resp.Rationale != "" {
		result.Rationale = resp.Rationale
	}
}

// MetaResult computes the overall hallucination check for an artifact: it
// passes iff every grounding result passed, and fails naming the first
// offending entity otherwise. Computed, never independently verified.
func (v *Verifier) MetaResult(unit model.AtomicUnit, art *model.ArtifactUnderTest, results []model.VerificationResult) model.VerificationResult {
	meta := model.VerificationResult{
		UnitID:     unit.ID,
		ArtifactID: art.ID,
		Dimension:  v.registry.MetaID(),
		Layer:      model.LayerMeta,
	}

	checked := 0
	for _, r := range results {
		if r.Layer != model.LayerGrounding || r.Outcome == model.OutcomeSkipped {
			continue
		}
		checked++
		if r.Outcome == model.OutcomeFail {
			meta.Outcome = model.OutcomeFail
			meta.Evidence = r.Evidence
			meta.Rationale = fmt.Sprintf("grounding check %s failed on %q", r.Dimension, firstEntity(r))
			return meta
		}
	}

	meta.Outcome = model.OutcomePass
	meta.Evidence = fmt.Sprintf("all %d grounding checks passed", checked)
	meta.Rationale = "no contradiction with the scenario record"
	return meta
}

func firstEntity(r model.VerificationResult) string {
	if r.Evidence != "" && r.Evidence != model.NoEvidence {
		return r.Evidence
	}
	return r.Rationale
}
