package classify

import (
	"errors"
	"testing"

	"plangrade/internal/llm"
	"plangrade/internal/model"
	"plangrade/internal/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.LoadDefault()
	if err != nil {
		t.Fatalf("load default registry: %v", err)
	}
	return reg
}

func TestClassifier_Classify_ValidDraft(t *testing.T) {
	c := NewClassifier(testRegistry(t))

	result, err := c.Classify(llm.DraftUnit{
		SDimension:       "S2",
		Level:            "expected", // Oracle says expected; the registry says critical
		Template:         "Each task is assigned to an owner [OWNER]",
		InstantiatedText: "Task 1 is owned by Alice Chen",
		LinkedGDims:      []string{"G1"},
		GSlots:           []llm.DraftSlot{{GDim: "G1", SlotType: "OWNER", Value: "Alice Chen"}},
		GRationales:      map[string]string{"G1": "owned by Alice Chen"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unit := result.Unit
	if unit.SDimension != "S2" {
		t.Errorf("expected S2, got %s", unit.SDimension)
	}
	// The registry owns the weight/level mapping, not the oracle
	if unit.Level != model.LevelCritical {
		t.Errorf("expected level critical from registry, got %s", unit.Level)
	}
	if len(unit.Slots) != 1 || unit.Slots[0].GroundingClass != model.ClassGrounded {
		t.Errorf("expected one GROUNDED slot, got %+v", unit.Slots)
	}
	if len(unit.LinkedGDims) != 1 || unit.LinkedGDims[0] != "G1" {
		t.Errorf("expected linked G1, got %v", unit.LinkedGDims)
	}
}

func TestClassifier_Classify_RejectsHallucinatedDimension(t *testing.T) {
	c := NewClassifier(testRegistry(t))

	_, err := c.Classify(llm.DraftUnit{
		SDimension:       "S2",
		InstantiatedText: "Task 1 is owned by Alice Chen",
		GSlots:           []llm.DraftSlot{{GDim: "G18", SlotType: "OWNER", Value: "Alice Chen"}},
	})

	var invErr *InvalidDimensionError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected InvalidDimensionError, got %v", err)
	}
	if invErr.ID != "G18" {
		t.Errorf("expected offending id G18, got %s", invErr.ID)
	}
}

func TestClassifier_Classify_RejectsUnknownStructuralID(t *testing.T) {
	c := NewClassifier(testRegistry(t))

	_, err := c.Classify(llm.DraftUnit{
		SDimension:       "S99",
		InstantiatedText: "whatever",
	})

	var invErr *InvalidDimensionError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected InvalidDimensionError for S99, got %v", err)
	}
}

func TestClassifier_Classify_RejectsUnknownSlotType(t *testing.T) {
	c := NewClassifier(testRegistry(t))

	_, err := c.Classify(llm.DraftUnit{
		SDimension:       "S2",
		InstantiatedText: "Task 1 is owned by Alice Chen",
		GSlots:           []llm.DraftSlot{{GDim: "G1", SlotType: "MANAGER", Value: "Alice Chen"}},
	})
	if err == nil {
		t.Fatal("expected error for unknown slot type")
	}
}

func TestClassifier_Classify_PrunesUnjustifiedGroundingDims(t *testing.T) {
	c := NewClassifier(testRegistry(t))

	result, err := c.Classify(llm.DraftUnit{
		SDimension:       "S2",
		InstantiatedText: "Task 1 is owned by Alice Chen",
		GSlots: []llm.DraftSlot{
			{GDim: "G1", SlotType: "OWNER", Value: "Alice Chen"},
			{GDim: "G2", SlotType: "DUE_DATE", Value: "2026-03-01"},
		},
		GRationales: map[string]string{
			"G1": "owned by Alice Chen",
			"G2": "due before the review", // Span not present in the text
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Unit.Slots) != 1 {
		t.Fatalf("expected G2 pruned, got slots %+v", result.Unit.Slots)
	}
	if len(result.Pruned) != 1 || result.Pruned[0] != "G2" {
		t.Errorf("expected pruned=[G2], got %v", result.Pruned)
	}
}

func TestClassifier_Classify_NoParentlessGroundingSlots(t *testing.T) {
	c := NewClassifier(testRegistry(t))

	// Only the meta check may lack a structural parent; grounding slots
	// without one are rejected.
	_, err := c.Classify(llm.DraftUnit{
		SDimension:       "",
		InstantiatedText: "Owners must be attendees",
		GSlots:           []llm.DraftSlot{{GDim: "G1", SlotType: "OWNER", Value: "Alice Chen"}},
		GRationales:      map[string]string{"G1": "owners"},
	})
	if err == nil {
		t.Fatal("expected error for parent-less grounding slots")
	}
}

func TestClassifier_Classify_MetaUnitAllowed(t *testing.T) {
	c := NewClassifier(testRegistry(t))

	result, err := c.Classify(llm.DraftUnit{
		SDimension:       "",
		InstantiatedText: "The plan must not hallucinate facts",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Unit.IsMeta() {
		t.Error("expected a meta unit")
	}
}
