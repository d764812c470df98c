package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plangrade/internal/model"
)

func TestLoadDefault(t *testing.T) {
	reg, err := LoadDefault()
	require.NoError(t, err)

	assert.NotEmpty(t, reg.Version())
	assert.NotEmpty(t, reg.List(model.LayerStructural))
	assert.NotEmpty(t, reg.List(model.LayerGrounding))
	assert.Len(t, reg.List(model.LayerMeta), 1)
	assert.Equal(t, "M1", reg.MetaID())
}

func TestRegistry_Get(t *testing.T) {
	reg, err := LoadDefault()
	require.NoError(t, err)

	dim, err := reg.Get("G1")
	require.NoError(t, err)
	assert.Equal(t, model.LayerGrounding, dim.Layer)
	assert.Equal(t, 3, dim.Weight)
	assert.Equal(t, model.LevelCritical, dim.Level())

	_, err = reg.Get("G18")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_ValidateID_RejectsDrift(t *testing.T) {
	reg, err := LoadDefault()
	require.NoError(t, err)

	// Ids beyond the declared set are rejected, not silently accepted
	for _, id := range []string{"G18", "S99", "M2", "X1", ""} {
		assert.False(t, reg.ValidateID(id), "id %q must not validate", id)
	}
	for _, id := range []string{"S1", "G7", "M1"} {
		assert.True(t, reg.ValidateID(id), "id %q must validate", id)
	}
}

func TestRegistry_Resolve_FollowsMerge(t *testing.T) {
	reg, err := LoadDefault()
	require.NoError(t, err)

	dim, err := reg.Resolve("S13")
	require.NoError(t, err)
	assert.Equal(t, "S2", dim.ID)
}

func TestRegistry_WeightLevelBijection(t *testing.T) {
	for weight := 1; weight <= 3; weight++ {
		assert.Equal(t, weight, model.WeightForLevel(model.LevelForWeight(weight)))
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	reg, err := LoadDefault()
	require.NoError(t, err)

	snap := reg.Snapshot()
	assert.Contains(t, snap, reg.Version())
	assert.Contains(t, snap, "S2")
	assert.Contains(t, snap, "OWNER")
	// Merged dimensions are not offered to the oracle
	assert.NotContains(t, snap, "S13")
}

func TestLoad_RejectsInvalidRegistries(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			name: "duplicate id",
			yaml: `version: "t1"
dimensions:
  - {id: S1, layer: structural, weight: 3, status: REQUIRED, name: A}
  - {id: S1, layer: structural, weight: 2, status: REQUIRED, name: B}
  - {id: M1, layer: meta, weight: 3, status: REQUIRED, name: Meta}`,
		},
		{
			name: "layer prefix mismatch",
			yaml: `version: "t1"
dimensions:
  - {id: G1, layer: structural, weight: 3, status: REQUIRED, name: A}
  - {id: M1, layer: meta, weight: 3, status: REQUIRED, name: Meta}`,
		},
		{
			name: "weight out of range",
			yaml: `version: "t1"
dimensions:
  - {id: S1, layer: structural, weight: 4, status: REQUIRED, name: A}
  - {id: M1, layer: meta, weight: 3, status: REQUIRED, name: Meta}`,
		},
		{
			name: "no meta dimension",
			yaml: `version: "t1"
dimensions:
  - {id: S1, layer: structural, weight: 3, status: REQUIRED, name: A}`,
		},
		{
			name: "merged without target",
			yaml: `version: "t1"
dimensions:
  - {id: S1, layer: structural, weight: 3, status: MERGED, name: A}
  - {id: M1, layer: meta, weight: 3, status: REQUIRED, name: Meta}`,
		},
		{
			name: "slot links unknown dimension",
			yaml: `version: "t1"
dimensions:
  - {id: M1, layer: meta, weight: 3, status: REQUIRED, name: Meta}
slot_types:
  - {name: OWNER, grounding_class: GROUNDED, default_g_dims: [G9]}`,
		},
		{
			name: "missing version",
			yaml: `dimensions:
  - {id: M1, layer: meta, weight: 3, status: REQUIRED, name: Meta}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "registry.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
