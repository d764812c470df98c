package model

// GroundingClass dictates how strictly a slot value is verified
type GroundingClass string

const (
	ClassGrounded         GroundingClass = "GROUNDED"          // Must match a scenario record field
	ClassDerived          GroundingClass = "DERIVED"           // Must follow from the record by a documented rule
	ClassConditional      GroundingClass = "CONDITIONAL"       // Skipped when the record lacks the field
	ClassPlannerGenerated GroundingClass = "PLANNER-GENERATED" // Checked for non-contradiction only
	ClassNA               GroundingClass = "N/A"               // Not verified
)

// SlotType represents a typed placeholder inside a dimension template (e.g. OWNER)
type SlotType struct {
	Name           string         `json:"name" yaml:"name"`
	GroundingClass GroundingClass `json:"grounding_class" yaml:"grounding_class"`
	DefaultGDims   []string       `json:"default_g_dims,omitempty" yaml:"default_g_dims,omitempty"`
}

// GroundingSlot binds a slot type to a concrete value extracted from an assertion
type GroundingSlot struct {
	GDim           string         `json:"g_dim"`
	SlotType       string         `json:"slot_type"`
	Value          string         `json:"value"`
	GroundingClass GroundingClass `json:"grounding_class"`
}
