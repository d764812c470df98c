package classify

import (
	"strings"

	"plangrade/internal/model"
	"plangrade/internal/registry"
)

// Heuristic is the keyword-based fallback classifier. It guarantees forward
// progress when the oracle is unavailable or keeps producing invalid ids;
// everything it emits is flagged low_confidence. Routing keywords come from
// the registry, never from code.
type Heuristic struct {
	registry *registry.Registry
}

// NewHeuristic creates the fallback classifier
func NewHeuristic(reg *registry.Registry) *Heuristic {
	return &Heuristic{registry: reg}
}

// Decompose splits an assertion on clause boundaries and routes each clause
// to the dimension whose registry keyword matches. Unmatched clauses are
// dropped; the meta dimension's keywords route to the meta unit.
func (h *Heuristic) Decompose(assertion model.RawAssertion) []model.AtomicUnit {
	var units []model.AtomicUnit

	for _, clause := range splitClauses(assertion.Text) {
		dim, ok := h.route(strings.ToLower(clause))
		if !ok {
			continue
		}
		if dim.Layer == model.LayerMeta {
			units = append(units, h.metaUnit(assertion, clause))
			continue
		}
		units = append(units, model.AtomicUnit{
			AssertionID:      assertion.ID,
			SDimension:       dim.ID,
			SDimensionName:   dim.Name,
			Level:            dim.Level(),
			Template:         dim.Template,
			InstantiatedText: clause,
			Flags:            []model.UnitFlag{model.FlagLowConfidence},
			RegistryVersion:  h.registry.Version(),
		})
	}

	for i := range units {
		units[i].ID = model.UnitID(assertion.ID, i+1)
	}
	return units
}

// route picks the dimension whose longest registered keyword appears in the
// clause. Longest match wins so "owner" beats "task" in "each task has an
// owner"; ties resolve to the dimension seen first.
func (h *Heuristic) route(lower string) (model.Dimension, bool) {
	var best model.Dimension
	bestLen := 0
	consider := func(d model.Dimension) {
		for _, k := range d.Keywords {
			if len(k) > bestLen && strings.Contains(lower, k) {
				best, bestLen = d, len(k)
			}
		}
	}

	if meta, err := h.registry.Get(h.registry.MetaID()); err == nil {
		consider(meta)
	}
	for _, d := range h.registry.List(model.LayerStructural) {
		if d.Status == model.StatusMerged {
			continue
		}
		consider(d)
	}
	return best, bestLen > 0
}

func (h *Heuristic) metaUnit(assertion model.RawAssertion, clause string) model.AtomicUnit {
	meta, _ := h.registry.Get(h.registry.MetaID())
	return model.AtomicUnit{
		AssertionID:      assertion.ID,
		Level:            meta.Level(),
		InstantiatedText: clause,
		Flags:            []model.UnitFlag{model.FlagLowConfidence},
		RegistryVersion:  h.registry.Version(),
	}
}

// splitClauses breaks an assertion into independent requirement clauses.
// "owner and a due date" must yield two clauses, never one merged unit.
func splitClauses(text string) []string {
	text = strings.TrimSpace(text)
	seps := []string{"; ", " and ", " as well as ", ", plus "}

	clauses := []string{text}
	for _, sep := range seps {
		var next []string
		for _, c := range clauses {
			next = append(next, strings.Split(c, sep)...)
		}
		clauses = next
	}

	var out []string
	for _, c := range clauses {
		c = strings.TrimSpace(strings.Trim(c, ".,;"))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
