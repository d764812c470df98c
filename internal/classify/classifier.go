// Package classify validates oracle draft units against the registry: it
// confirms the structural dimension, keeps only the grounding dimensions the
// assertion text actually implies, and rejects hallucinated ids at the
// boundary instead of letting taxonomy drift into scoring.
package classify

import (
	"fmt"
	"strings"

	"plangrade/internal/llm"
	"plangrade/internal/model"
	"plangrade/internal/registry"
)

// InvalidDimensionError marks a draft that referenced an unregistered id.
// Callers retry once with a corrective prompt naming the id.
type InvalidDimensionError struct {
	ID string
}

func (e *InvalidDimensionError) Error() string {
	return fmt.Sprintf("dimension id %q is not in the registry", e.ID)
}

// Result is one validated unit plus the grounding dims pruned from it
type Result struct {
	Unit   model.AtomicUnit
	Pruned []string // G dims dropped for lack of an implying text span
}

// Classifier validates draft units against a registry
type Classifier struct {
	registry *registry.Registry
}

// NewClassifier creates a classifier for the given registry
func NewClassifier(reg *registry.Registry) *Classifier {
	return &Classifier{registry: reg}
}

// Classify validates one draft unit. The returned unit has no id yet; the
// decomposer assigns stable monotonic ids over the whole assertion.
func (c *Classifier) Classify(draft llm.DraftUnit) (Result, error) {
	unit := model.AtomicUnit{
		Template:         draft.Template,
		InstantiatedText: strings.TrimSpace(draft.InstantiatedText),
		RegistryVersion:  c.registry.Version(),
	}

	// Structural parent. Empty is reserved for the single meta unit; every
	// other unit must resolve to a registered structural dimension.
	if draft.SDimension != "" {
		if !c.registry.ValidateID(draft.SDimension) {
			return Result{}, &InvalidDimensionError{ID: draft.SDimension}
		}
		dim, err := c.registry.Resolve(draft.SDimension)
		if err != nil {
			return Result{}, err
		}
		if dim.Layer == model.LayerMeta {
			// Meta routed by id: normalize to the parent-less form
			unit.Level = dim.Level()
		} else {
			if dim.Layer != model.LayerStructural {
				return Result{}, fmt.Errorf("dimension %s is not structural", dim.ID)
			}
			unit.SDimension = dim.ID
			unit.SDimensionName = dim.Name
			// The registry owns the weight/level mapping, not the oracle
			unit.Level = dim.Level()
		}
	} else {
		meta, err := c.registry.Get(c.registry.MetaID())
		if err != nil {
			return Result{}, err
		}
		unit.Level = meta.Level()
	}

	// Slots: unknown slot types are rejected outright; unregistered grounding
	// ids bubble up as InvalidDimensionError for the corrective retry.
	justified := c.justifiedDims(draft, unit.InstantiatedText)
	var pruned []string
	for _, ds := range draft.GSlots {
		slotType, err := c.registry.SlotType(ds.SlotType)
		if err != nil {
			return Result{}, fmt.Errorf("unit slot: %w", err)
		}

		gDim := ds.GDim
		if gDim == "" && len(slotType.DefaultGDims) > 0 {
			gDim = slotType.DefaultGDims[0]
		}
		if !c.registry.ValidateID(gDim) {
			return Result{}, &InvalidDimensionError{ID: gDim}
		}
		dim, err := c.registry.Get(gDim)
		if err != nil {
			return Result{}, err
		}
		if dim.Layer != model.LayerGrounding {
			return Result{}, fmt.Errorf("slot %s links %s, which is not a grounding dimension", ds.SlotType, gDim)
		}

		// Minimal relevant subset: a grounding check stays only when the
		// assertion text contains the span that implies it.
		if !justified[gDim] {
			pruned = append(pruned, gDim)
			continue
		}

		unit.Slots = append(unit.Slots, model.GroundingSlot{
			GDim:           gDim,
			SlotType:       slotType.Name,
			Value:          strings.TrimSpace(ds.Value),
			GroundingClass: slotType.GroundingClass,
		})
		unit.LinkedGDims = appendUnique(unit.LinkedGDims, gDim)
	}

	// A parent-less unit may carry no grounding slots of its own: only the
	// designated meta check is allowed without a structural parent.
	if unit.SDimension == "" && len(unit.Slots) > 0 {
		return Result{}, fmt.Errorf("grounding slots without a structural parent")
	}

	return Result{Unit: unit, Pruned: pruned}, nil
}

// justifiedDims returns the grounding dims whose rationale span is actually
// present in the instantiated text (auditable selection, not opaque).
func (c *Classifier) justifiedDims(draft llm.DraftUnit, text string) map[string]bool {
	lower := strings.ToLower(text)
	justified := make(map[string]bool, len(draft.GRationales))
	for gDim, span := range draft.GRationales {
		span = strings.ToLower(strings.TrimSpace(span))
		if span != "" && strings.Contains(lower, span) {
			justified[gDim] = true
		}
	}
	// Drafts without rationales at all keep their linked dims; pruning only
	// applies when the oracle claimed a justification that does not hold.
	if len(draft.GRationales) == 0 {
		for _, g := range draft.LinkedGDims {
			justified[g] = true
		}
		for _, s := range draft.GSlots {
			justified[s.GDim] = true
		}
	}
	return justified
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
