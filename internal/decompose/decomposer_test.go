package decompose

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"plangrade/internal/llm"
	"plangrade/internal/model"
	"plangrade/internal/registry"
)

// scriptedOracle returns canned responses in order, recording each request
type scriptedOracle struct {
	responses []*llm.ClassifyResponse
	errs      []error
	requests  []llm.ClassifyRequest
}

func (o *scriptedOracle) Name() string { return "scripted" }

func (o *scriptedOracle) Classify(_ context.Context, req llm.ClassifyRequest) (*llm.ClassifyResponse, error) {
	o.requests = append(o.requests, req)
	i := len(o.requests) - 1
	if i >= len(o.responses) {
		i = len(o.responses) - 1
	}
	var err error
	if i < len(o.errs) {
		err = o.errs[i]
	}
	return o.responses[i], err
}

func (o *scriptedOracle) Verify(context.Context, llm.VerifyRequest) (*llm.VerifyResponse, error) {
	return nil, errors.New("not implemented")
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.LoadDefault()
	if err != nil {
		t.Fatalf("load default registry: %v", err)
	}
	return reg
}

func ownerDraft() llm.DraftUnit {
	return llm.DraftUnit{
		SDimension:       "S2",
		Template:         "Each task is assigned to an owner [OWNER]",
		InstantiatedText: "Task 1 is owned by Alice Chen",
		LinkedGDims:      []string{"G1"},
		GSlots:           []llm.DraftSlot{{GDim: "G1", SlotType: "OWNER", Value: "Alice Chen"}},
		GRationales:      map[string]string{"G1": "owned by Alice Chen"},
	}
}

func dueDateDraft() llm.DraftUnit {
	return llm.DraftUnit{
		SDimension:       "S3",
		Template:         "Each task has a due date [DUE_DATE]",
		InstantiatedText: "Task 1 is due 2026-03-01",
		LinkedGDims:      []string{"G2"},
		GSlots:           []llm.DraftSlot{{GDim: "G2", SlotType: "DUE_DATE", Value: "2026-03-01"}},
		GRationales:      map[string]string{"G2": "due 2026-03-01"},
	}
}

func TestDecomposer_Decompose_SplitsIntoAtomicUnits(t *testing.T) {
	oracle := &scriptedOracle{
		responses: []*llm.ClassifyResponse{{Units: []llm.DraftUnit{ownerDraft(), dueDateDraft()}}},
	}
	d := NewDecomposer(oracle, testRegistry(t), nil)

	assertion := model.RawAssertion{ID: "a1", Text: "Each task should have an owner and a due date"}
	units, err := d.Decompose(context.Background(), assertion, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[0].ID != "a1-u01" || units[1].ID != "a1-u02" {
		t.Errorf("expected monotonic ids, got %s, %s", units[0].ID, units[1].ID)
	}
	if units[0].SDimension != "S2" || units[1].SDimension != "S3" {
		t.Errorf("expected S2 then S3, got %s, %s", units[0].SDimension, units[1].SDimension)
	}
	for _, u := range units {
		if u.AssertionID != "a1" {
			t.Errorf("unit %s has wrong assertion id %s", u.ID, u.AssertionID)
		}
	}
}

func TestDecomposer_Decompose_Idempotent(t *testing.T) {
	reg := testRegistry(t)
	assertion := model.RawAssertion{ID: "a1", Text: "Each task should have an owner and a due date"}

	run := func() []model.AtomicUnit {
		oracle := &scriptedOracle{
			responses: []*llm.ClassifyResponse{{Units: []llm.DraftUnit{ownerDraft(), dueDateDraft()}}},
		}
		units, err := NewDecomposer(oracle, reg, nil).Decompose(context.Background(), assertion, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return units
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same input and oracle response produced different units:\n%+v\nvs\n%+v", first, second)
	}
}

func TestDecomposer_Decompose_CorrectiveRetryOnInvalidID(t *testing.T) {
	invalid := ownerDraft()
	invalid.GSlots = []llm.DraftSlot{{GDim: "G18", SlotType: "OWNER", Value: "Alice Chen"}}
	invalid.GRationales = map[string]string{"G18": "owned by Alice Chen"}

	oracle := &scriptedOracle{
		responses: []*llm.ClassifyResponse{
			{Units: []llm.DraftUnit{invalid}},
			{Units: []llm.DraftUnit{ownerDraft()}},
		},
	}
	d := NewDecomposer(oracle, testRegistry(t), nil)

	units, err := d.Decompose(context.Background(), model.RawAssertion{ID: "a1", Text: "owner check"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(oracle.requests) != 2 {
		t.Fatalf("expected a corrective retry, got %d calls", len(oracle.requests))
	}
	if oracle.requests[1].Corrective == "" {
		t.Error("retry request missing corrective context")
	}
	if len(units) != 1 || units[0].SDimension != "S2" {
		t.Errorf("expected one valid S2 unit after retry, got %+v", units)
	}
}

func TestDecomposer_Decompose_DowngradesToUnclassifiedAfterTwoStrikes(t *testing.T) {
	invalid := ownerDraft()
	invalid.SDimension = "S99"

	oracle := &scriptedOracle{
		responses: []*llm.ClassifyResponse{
			{Units: []llm.DraftUnit{invalid}},
			{Units: []llm.DraftUnit{invalid}},
		},
	}
	d := NewDecomposer(oracle, testRegistry(t), nil)

	units, err := d.Decompose(context.Background(), model.RawAssertion{ID: "a1", Text: "owner check"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Never silently accepted into scoring
	if len(units) != 1 {
		t.Fatalf("expected one downgraded unit, got %d", len(units))
	}
	if !units[0].HasFlag(model.FlagUnclassified) || !units[0].HasFlag(model.FlagReview) {
		t.Errorf("expected unclassified+review flags, got %v", units[0].Flags)
	}
	if len(units[0].Slots) != 0 {
		t.Error("downgraded unit must carry no grounding slots")
	}
}

func TestDecomposer_Decompose_TimeoutPropagates(t *testing.T) {
	oracle := &scriptedOracle{
		responses: []*llm.ClassifyResponse{nil},
		errs:      []error{llm.ErrOracleTimeout},
	}
	d := NewDecomposer(oracle, testRegistry(t), nil)

	_, err := d.Decompose(context.Background(), model.RawAssertion{ID: "a1", Text: "owner check"}, "")
	if !errors.Is(err, llm.ErrOracleTimeout) {
		t.Errorf("expected ErrOracleTimeout, got %v", err)
	}
}

func TestDecomposer_Decompose_HeuristicFallbackOnOracleError(t *testing.T) {
	oracle := &scriptedOracle{
		responses: []*llm.ClassifyResponse{nil},
		errs:      []error{errors.New("connection refused")},
	}
	d := NewDecomposer(oracle, testRegistry(t), nil)

	units, err := d.Decompose(context.Background(),
		model.RawAssertion{ID: "a1", Text: "Each task should have an owner and a due date"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(units) < 2 {
		t.Fatalf("expected heuristic fallback to split the assertion, got %d units", len(units))
	}
	for _, u := range units {
		if !u.HasFlag(model.FlagLowConfidence) {
			t.Errorf("fallback unit %s missing low_confidence flag", u.ID)
		}
	}
}

func TestDecomposer_Decompose_RegistryVersionStamped(t *testing.T) {
	reg := testRegistry(t)
	oracle := &scriptedOracle{
		responses: []*llm.ClassifyResponse{{Units: []llm.DraftUnit{ownerDraft()}}},
	}
	d := NewDecomposer(oracle, reg, nil)

	units, err := d.Decompose(context.Background(), model.RawAssertion{ID: "a1", Text: "owner check"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if units[0].RegistryVersion != reg.Version() {
		t.Errorf("expected registry version %s, got %s", reg.Version(), units[0].RegistryVersion)
	}
}
