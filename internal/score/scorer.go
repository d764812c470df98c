// Package score aggregates verification results into weighted structural and
// grounding scores and a four-way verdict.
package score

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"plangrade/internal/model"
	"plangrade/internal/registry"
)

// Thresholds are the verdict cutoffs (default 0.75/0.75)
type Thresholds struct {
	Structural float64
	Grounding  float64
}

// DefaultThresholds returns the standard cutoffs
func DefaultThresholds() Thresholds {
	return Thresholds{Structural: 0.75, Grounding: 0.75}
}

// Scorer computes evaluation reports
type Scorer struct {
	registry   *registry.Registry
	thresholds Thresholds
}

// NewScorer creates a scorer
func NewScorer(reg *registry.Registry, thresholds Thresholds) *Scorer {
	if thresholds.Structural <= 0 {
		thresholds.Structural = 0.75
	}
	if thresholds.Grounding <= 0 {
		thresholds.Grounding = 0.75
	}
	return &Scorer{registry: reg, thresholds: thresholds}
}

// dimState accumulates the results touching one dimension
type dimState struct {
	passes  int
	fails   int
	present bool // At least one result cites real evidence
	unitIDs []string
	reason  string
}

// Score aggregates all results for one artifact into a report.
// score = sum(weight_i * met_i) / sum(weight_i) over applicable dimensions,
// so both scores are always within [0, 1].
func (s *Scorer) Score(units []model.AtomicUnit, results []model.VerificationResult, artifactID string) *model.EvaluationReport {
	report := &model.EvaluationReport{
		RunID:           uuid.NewString(),
		ArtifactID:      artifactID,
		RegistryVersion: s.registry.Version(),
		GeneratedAt:     time.Now().UTC(),
	}

	// Unresolved units are surfaced separately, never mixed into pass/fail
	resolved := make(map[string]bool, len(units))
	for _, u := range units {
		if u.HasFlag(model.FlagUnclassified) || u.HasFlag(model.FlagOracleTimeout) ||
			u.HasFlag(model.FlagLowConfidence) {
			report.UnresolvedUnits = append(report.UnresolvedUnits, u.ID)
			continue
		}
		resolved[u.ID] = true
	}
	sort.Strings(report.UnresolvedUnits)

	states := make(map[string]*dimState)
	var metaFailure *model.VerificationResult
	for i, r := range results {
		if r.UnitID != "" && !resolved[r.UnitID] {
			continue
		}
		if r.Layer == model.LayerMeta {
			// The meta check never enters the scores; a failure is reported
			// alongside the grounding failures.
			if r.Outcome == model.OutcomeFail && metaFailure == nil {
				metaFailure = &results[i]
			}
			continue
		}
		if r.Outcome == model.OutcomeSkipped {
			continue
		}

		st := states[r.Dimension]
		if st == nil {
			st = &dimState{}
			states[r.Dimension] = st
		}
		st.unitIDs = appendUnique(st.unitIDs, r.UnitID)
		switch r.Outcome {
		case model.OutcomePass:
			st.passes++
			st.present = true
		case model.OutcomeFail:
			st.fails++
			if r.Evidence != model.NoEvidence {
				st.present = true
			}
			if st.reason == "" {
				st.reason = r.Rationale
			}
		}
	}

	report.StructuralScore, report.FailedStructural = s.layerScore(model.LayerStructural, states)
	report.GroundingScore, report.FailedGrounding = s.layerScore(model.LayerGrounding, states)

	if metaFailure != nil {
		meta, _ := s.registry.Get(metaFailure.Dimension)
		report.FailedGrounding = append(report.FailedGrounding, model.DimensionFailure{
			Dimension: metaFailure.Dimension,
			Name:      meta.Name,
			UnitIDs:   []string{metaFailure.UnitID},
			Rationale: metaFailure.Rationale,
		})
	}

	report.Verdict = s.verdict(report.StructuralScore, report.GroundingScore)
	return report
}

// layerScore computes the weighted score for one layer. REQUIRED dimensions
// are always applicable; ASPIRATIONAL and CONDITIONAL ones only count when
// the element is present in the artifact, so absence never penalizes them.
func (s *Scorer) layerScore(layer model.Layer, states map[string]*dimState) (float64, []model.DimensionFailure) {
	var weightSum, metSum float64
	var failures []model.DimensionFailure

	for _, dim := range s.registry.List(layer) {
		if dim.Status == model.StatusMerged || dim.Status == model.StatusNA {
			continue
		}
		st := states[dim.ID]

		applicable := false
		switch dim.Status {
		case model.StatusRequired:
			applicable = true
		case model.StatusAspirational, model.StatusConditional:
			applicable = st != nil && st.present
		}
		if !applicable {
			continue
		}

		weightSum += float64(dim.Weight)
		met := st != nil && st.fails == 0 && st.passes > 0
		if met {
			metSum += float64(dim.Weight)
			continue
		}

		failure := model.DimensionFailure{Dimension: dim.ID, Name: dim.Name}
		if st != nil {
			failure.UnitIDs = st.unitIDs
			failure.Rationale = st.reason
		}
		if failure.Rationale == "" {
			failure.Rationale = fmt.Sprintf("%s not evaluated or absent from plan", dim.Name)
		}
		failures = append(failures, failure)
	}

	if weightSum == 0 {
		return 0, failures
	}
	return metSum / weightSum, failures
}

// verdict maps the two scores onto the four terminal states. A grounding
// failure outranks a structural one in the narrative ordering (Verdict.Rank):
// a complete but hallucinated plan is never reported as better than an
// incomplete but accurate one.
func (s *Scorer) verdict(structural, grounding float64) model.Verdict {
	okS := structural >= s.thresholds.Structural
	okG := grounding >= s.thresholds.Grounding
	switch {
	case okS && okG:
		return model.VerdictPass
	case okS && !okG:
		return model.VerdictFailGrounding
	case !okS && okG:
		return model.VerdictFailStructure
	default:
		return model.VerdictFailBoth
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
