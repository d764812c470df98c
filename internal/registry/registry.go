// Package registry loads and serves the versioned dimension taxonomy and slot
// vocabulary. The registry is immutable after load and safely shared across
// workers; every dimension id arriving from an external oracle must pass
// through ValidateID before use so taxonomy drift is caught at the boundary.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"plangrade/internal/model"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

// ErrNotFound is returned when a dimension or slot type is not registered
var ErrNotFound = errors.New("not found in registry")

// Registry is the loaded, immutable taxonomy
type Registry struct {
	version    string
	dimensions []model.Dimension
	byID       map[string]model.Dimension
	slots      map[string]model.SlotType
	slotOrder  []string
	metaID     string
}

type registryFile struct {
	Version    string            `yaml:"version"`
	Dimensions []model.Dimension `yaml:"dimensions"`
	SlotTypes  []model.SlotType  `yaml:"slot_types"`
}

// LoadDefault loads the embedded taxonomy
func LoadDefault() (*Registry, error) {
	return parse(defaultTaxonomy)
}

// Load loads a taxonomy registry from a YAML file
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	if file.Version == "" {
		return nil, fmt.Errorf("registry has no version")
	}

	r := &Registry{
		version:    file.Version,
		dimensions: file.Dimensions,
		byID:       make(map[string]model.Dimension, len(file.Dimensions)),
		slots:      make(map[string]model.SlotType, len(file.SlotTypes)),
	}

	for _, d := range file.Dimensions {
		if err := checkDimension(d); err != nil {
			return nil, fmt.Errorf("dimension %s: %w", d.ID, err)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate dimension id: %s", d.ID)
		}
		r.byID[d.ID] = d
		if d.Layer == model.LayerMeta {
			if r.metaID != "" {
				return nil, fmt.Errorf("multiple meta dimensions: %s and %s", r.metaID, d.ID)
			}
			r.metaID = d.ID
		}
	}
	if r.metaID == "" {
		return nil, fmt.Errorf("registry declares no meta dimension")
	}

	// MERGED targets and slot default G dims must resolve inside the registry
	for _, d := range file.Dimensions {
		if d.Status == model.StatusMerged {
			if d.MergedInto == "" {
				return nil, fmt.Errorf("dimension %s is MERGED but names no target", d.ID)
			}
			if _, ok := r.byID[d.MergedInto]; !ok {
				return nil, fmt.Errorf("dimension %s merged into unknown id %s", d.ID, d.MergedInto)
			}
		}
	}
	for _, s := range file.SlotTypes {
		if s.Name == "" {
			return nil, fmt.Errorf("slot type with empty name")
		}
		if _, dup := r.slots[s.Name]; dup {
			return nil, fmt.Errorf("duplicate slot type: %s", s.Name)
		}
		if !validGroundingClass(s.GroundingClass) {
			return nil, fmt.Errorf("slot type %s: unknown grounding class %q", s.Name, s.GroundingClass)
		}
		for _, g := range s.DefaultGDims {
			dim, ok := r.byID[g]
			if !ok {
				return nil, fmt.Errorf("slot type %s links unknown dimension %s", s.Name, g)
			}
			if dim.Layer != model.LayerGrounding {
				return nil, fmt.Errorf("slot type %s links non-grounding dimension %s", s.Name, g)
			}
		}
		r.slots[s.Name] = s
		r.slotOrder = append(r.slotOrder, s.Name)
	}

	return r, nil
}

func checkDimension(d model.Dimension) error {
	if d.ID == "" {
		return fmt.Errorf("empty id")
	}
	if d.Weight < 1 || d.Weight > 3 {
		return fmt.Errorf("weight %d outside 1..3", d.Weight)
	}
	var wantPrefix string
	switch d.Layer {
	case model.LayerStructural:
		wantPrefix = "S"
	case model.LayerGrounding:
		wantPrefix = "G"
	case model.LayerMeta:
		wantPrefix = "M"
	default:
		return fmt.Errorf("unknown layer %q", d.Layer)
	}
	if !strings.HasPrefix(d.ID, wantPrefix) {
		return fmt.Errorf("id does not match layer %s", d.Layer)
	}
	switch d.Status {
	case model.StatusRequired, model.StatusAspirational, model.StatusConditional,
		model.StatusNA, model.StatusMerged:
	default:
		return fmt.Errorf("unknown status %q", d.Status)
	}
	return nil
}

func validGroundingClass(c model.GroundingClass) bool {
	switch c {
	case model.ClassGrounded, model.ClassDerived, model.ClassConditional,
		model.ClassPlannerGenerated, model.ClassNA:
		return true
	}
	return false
}

// Version returns the registry version string
func (r *Registry) Version() string {
	return r.version
}

// Get returns the dimension with the given id
func (r *Registry) Get(id string) (model.Dimension, error) {
	d, ok := r.byID[id]
	if !ok {
		return model.Dimension{}, fmt.Errorf("dimension %s: %w", id, ErrNotFound)
	}
	return d, nil
}

// ValidateID reports whether the id names a registered dimension
func (r *Registry) ValidateID(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// List returns the dimensions of one layer in registry-file order
func (r *Registry) List(layer model.Layer) []model.Dimension {
	var out []model.Dimension
	for _, d := range r.dimensions {
		if d.Layer == layer {
			out = append(out, d)
		}
	}
	return out
}

// SlotType returns the named slot type
func (r *Registry) SlotType(name string) (model.SlotType, error) {
	s, ok := r.slots[name]
	if !ok {
		return model.SlotType{}, fmt.Errorf("slot type %s: %w", name, ErrNotFound)
	}
	return s, nil
}

// MetaID returns the id of the single meta dimension
func (r *Registry) MetaID() string {
	return r.metaID
}

// Resolve follows MERGED redirects to the surviving dimension
func (r *Registry) Resolve(id string) (model.Dimension, error) {
	d, err := r.Get(id)
	if err != nil {
		return model.Dimension{}, err
	}
	for d.Status == model.StatusMerged {
		d, err = r.Get(d.MergedInto)
		if err != nil {
			return model.Dimension{}, err
		}
	}
	return d, nil
}

// Snapshot renders a compact text form of the taxonomy for oracle prompts.
// Includes the version so classification is reproducible per registry version.
func (r *Registry) Snapshot() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Taxonomy version %s\n", r.version)
	b.WriteString("Structural dimensions (presence checks):\n")
	for _, d := range r.List(model.LayerStructural) {
		if d.Status == model.StatusMerged {
			continue
		}
		fmt.Fprintf(&b, "  %s (%s, %s): %s\n", d.ID, d.Level(), d.Status, d.Name)
	}
	b.WriteString("Grounding dimensions (correctness checks):\n")
	for _, d := range r.List(model.LayerGrounding) {
		fmt.Fprintf(&b, "  %s (%s, %s): %s\n", d.ID, d.Level(), d.Status, d.Name)
	}
	fmt.Fprintf(&b, "Meta dimension: %s\n", r.metaID)
	b.WriteString("Slot types:\n")
	for _, name := range r.slotOrder {
		s := r.slots[name]
		fmt.Fprintf(&b, "  %s (%s) -> %s\n", s.Name, s.GroundingClass, strings.Join(s.DefaultGDims, ","))
	}
	return b.String()
}
