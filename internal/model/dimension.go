package model

// Layer identifies which part of the taxonomy a dimension belongs to
type Layer string

const (
	LayerStructural Layer = "structural" // Presence/shape of a plan element
	LayerGrounding  Layer = "grounding"  // Correctness against the scenario record
	LayerMeta       Layer = "meta"       // Derived overall check (AND over grounding)
)

// Status controls how a dimension contributes to scoring
type Status string

const (
	StatusRequired     Status = "REQUIRED"     // Absence is a structural failure
	StatusAspirational Status = "ASPIRATIONAL" // Only rewards correct presence
	StatusConditional  Status = "CONDITIONAL"  // Applicable only when present
	StatusNA           Status = "N/A"          // Excluded from scoring
	StatusMerged       Status = "MERGED"       // Consolidated into another dimension
)

// Level is the human-readable name of a dimension weight
type Level string

const (
	LevelCritical     Level = "critical"     // weight 3
	LevelExpected     Level = "expected"     // weight 2
	LevelAspirational Level = "aspirational" // weight 1
)

// Dimension represents one taxonomy category (e.g. "S6", "G3", "M1")
type Dimension struct {
	ID         string `json:"id" yaml:"id"`
	Layer      Layer  `json:"layer" yaml:"layer"`
	Weight     int    `json:"weight" yaml:"weight"` // 1..3, bijective with Level
	Status     Status `json:"status" yaml:"status"`
	Name       string `json:"name" yaml:"name"`
	Template   string `json:"template,omitempty" yaml:"template,omitempty"` // Contains [SLOT] placeholders
	MergedInto string `json:"merged_into,omitempty" yaml:"merged_into,omitempty"`

	// Keywords route assertion clauses to this dimension in the fallback
	// classifier; SignalTerms mark its presence in a plan artifact. Both live
	// in the registry file so taxonomy edits never require a code change.
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	SignalTerms []string `json:"signal_terms,omitempty" yaml:"signal_terms,omitempty"`
}

// Level returns the level name for the dimension's weight
func (d Dimension) Level() Level {
	return LevelForWeight(d.Weight)
}

// LevelForWeight maps a weight to its level name (3=critical, 2=expected, 1=aspirational)
func LevelForWeight(weight int) Level {
	switch weight {
	case 3:
		return LevelCritical
	case 2:
		return LevelExpected
	default:
		return LevelAspirational
	}
}

// WeightForLevel is the inverse of LevelForWeight
func WeightForLevel(level Level) int {
	switch level {
	case LevelCritical:
		return 3
	case LevelExpected:
		return 2
	default:
		return 1
	}
}
