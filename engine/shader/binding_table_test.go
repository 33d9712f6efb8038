package shader

import (
	"encoding/json"
	"testing"

	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func buildTable(t *testing.T, stages map[StageKind]string) (*BindingTable, error) {
	t.Helper()
	b := NewBindingTableBuilder()
	scans := make(map[StageKind]*ScanResult)
	for _, kind := range Stages {
		src, ok := stages[kind]
		if !ok {
			continue
		}
		res, err := Scan(src, kind)
		require.NoError(t, err)
		scans[kind] = res
		for _, tag := range res.SemanticTags() {
			if err := b.Insert(tag, kind); err != nil {
				return nil, err
			}
		}
	}
	for _, kind := range Stages {
		res, ok := scans[kind]
		if !ok {
			continue
		}
		for _, r := range res.Resources {
			if r.Semantic != "" {
				continue
			}
			if err := b.AddUntagged(r, kind); err != nil {
				return nil, err
			}
		}
	}
	return b.Freeze(), nil
}

func TestBindingTableDebugProgram(t *testing.T) {
	table, err := buildTable(t, map[StageKind]string{StageVertex: debugVertex, StageFragment: debugFragment})
	require.NoError(t, err)
	require.Equal(t, 6, table.Len())

	entries := table.Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	assert.Equal(t, []string{
		"perspective_projection_matrix",
		"inverse_view_matrix",
		"local_to_world_matrix",
		"inverse_transpose_local_to_world_matrix",
		"albedo_texture",
		"albedo_sampler",
	}, names)

	b, ok := table.Lookup("albedo_sampler")
	require.True(t, ok)
	assert.Equal(t, 1, b.Group)
	assert.Equal(t, 3, b.Binding)
	assert.Equal(t, ResourceSampler, b.Kind)
	assert.Equal(t, StageMaskFragment, b.Stages)

	b, ok = table.BySlot(0, 1)
	require.True(t, ok)
	assert.Equal(t, "inverse_view_matrix", b.Name)
	_, ok = table.BySlot(0, 7)
	assert.False(t, ok)
	_, ok = table.Lookup("missing")
	assert.False(t, ok)

	assert.Len(t, table.Group(1), 4)
	assert.Equal(t, []int{0, 1}, table.Groups())
	assert.Empty(t, table.Untagged())
}

func TestBindingTableSharedAcrossStages(t *testing.T) {
	vertex := "@tag(view) @group(0) @binding(0) var<uniform> v: mat4x4f;"
	fragment := "@tag(view) @group(0) @binding(0) var<uniform> view: mat4x4f;"
	table, err := buildTable(t, map[StageKind]string{StageVertex: vertex, StageFragment: fragment})
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	b, _ := table.Lookup("view")
	assert.Equal(t, StageMaskVertex|StageMaskFragment, b.Stages)
	assert.Equal(t, "vertex|fragment", b.Stages.String())
}

func TestBindingTableUntaggedRedeclaration(t *testing.T) {
	vertex := "@tag(view) @group(0) @binding(0) var<uniform> v: mat4x4f;"
	fragment := "@group(0) @binding(0) var<uniform> v: mat4x4f;\n@group(2) @binding(0) var extra: sampler;"
	table, err := buildTable(t, map[StageKind]string{StageVertex: vertex, StageFragment: fragment})
	require.NoError(t, err)

	b, _ := table.Lookup("view")
	assert.True(t, b.Stages.Has(StageFragment))

	untagged := table.Untagged()
	require.Len(t, untagged, 1)
	assert.Equal(t, "extra", untagged[0].Variable)
	assert.Equal(t, ResourceSampler, untagged[0].Kind)
	assert.Equal(t, []int{0, 2}, table.Groups())
}

func TestBindingTableUntaggedAcrossStages(t *testing.T) {
	vertex := "@group(3) @binding(0) var<uniform> tint: vec4f;"
	fragment := "@group(3) @binding(0) var<uniform> tint: vec4f;"
	table, err := buildTable(t, map[StageKind]string{StageVertex: vertex, StageFragment: fragment})
	require.NoError(t, err)

	untagged := table.Untagged()
	require.Len(t, untagged, 1)
	assert.Equal(t, ResourceUniform, untagged[0].Kind)
	assert.Equal(t, StageMaskVertex|StageMaskFragment, untagged[0].Stages)
}

func TestBindingTableInvariants(t *testing.T) {
	cases := []struct {
		name     string
		vertex   string
		fragment string
		kind     common.ErrorKind
	}{
		{
			name:   "collision within a stage",
			vertex: "@tag(perspective_projection_matrix) @group(0) @binding(0) var<uniform> prj_m: mat4x4f;\n@tag(view_matrix) @group(0) @binding(0) var<uniform> v: mat4x4f;",
			kind:   common.ErrorKindBindingCollision,
		},
		{
			name:     "collision across stages",
			vertex:   "@tag(a) @group(1) @binding(2) var t: texture_2d<f32>;",
			fragment: "@tag(b) @group(1) @binding(2) var t: texture_2d<f32>;",
			kind:     common.ErrorKindBindingCollision,
		},
		{
			name:     "conflicting location",
			vertex:   "@tag(a) @group(0) @binding(0) var<uniform> x: f32;",
			fragment: "@tag(a) @group(0) @binding(1) var<uniform> x: f32;",
			kind:     common.ErrorKindBindingConflict,
		},
		{
			name:     "conflicting kind",
			vertex:   "@tag(a) @group(0) @binding(0) var<uniform> x: f32;",
			fragment: "@tag(a) @group(0) @binding(0) var<storage, read> x: f32;",
			kind:     common.ErrorKindBindingConflict,
		},
		{
			name:     "untagged redeclaration of another kind",
			vertex:   "@tag(a) @group(0) @binding(0) var<uniform> x: f32;",
			fragment: "@group(0) @binding(0) var s: sampler;",
			kind:     common.ErrorKindBindingConflict,
		},
		{
			name:     "untagged slot reused with another kind",
			vertex:   "@group(0) @binding(0) var<uniform> u: mat4x4f;",
			fragment: "@group(0) @binding(0) var s: sampler;",
			kind:     common.ErrorKindBindingConflict,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stages := map[StageKind]string{StageVertex: tc.vertex}
			if tc.fragment != "" {
				stages[StageFragment] = tc.fragment
			}
			table, err := buildTable(t, stages)
			require.Error(t, err)
			assert.Nil(t, table)
			e, ok := common.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.kind, e.Kind)
		})
	}
}

func TestBindingTableFrozen(t *testing.T) {
	b := NewBindingTableBuilder()
	res, err := Scan("@tag(a) @group(0) @binding(0) var<uniform> x: f32;", StageVertex)
	require.NoError(t, err)
	require.NoError(t, b.Insert(res.Tags[0], StageVertex))
	table := b.Freeze()

	err = b.Insert(res.Tags[0], StageFragment)
	assert.ErrorIs(t, err, common.ErrInvariantViolation)
	err = b.AddUntagged(res.Resources[0], StageFragment)
	assert.ErrorIs(t, err, common.ErrInvariantViolation)

	entries := table.Entries()
	entries[0].Name = "mutated"
	b2, ok := table.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "a", b2.Name)
}

func TestBindingTableMarshal(t *testing.T) {
	table, err := buildTable(t, map[StageKind]string{StageFragment: debugFragment})
	require.NoError(t, err)

	data, err := json.Marshal(table)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"name":"albedo_texture","group":1,"binding":2,"kind":"texture","variable":"t_albedo","type":"texture_2d<f32>","stages":"fragment"},
		{"name":"albedo_sampler","group":1,"binding":3,"kind":"sampler","variable":"s_albedo","type":"sampler","stages":"fragment"}
	]`, string(data))

	out, err := yaml.Marshal(table)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "albedo_texture", decoded[0]["name"])
	assert.Equal(t, "texture", decoded[0]["kind"])
}

func TestResourceKindText(t *testing.T) {
	var k ResourceKind
	require.NoError(t, k.UnmarshalText([]byte("storage_texture")))
	assert.Equal(t, ResourceStorageTexture, k)
	assert.Error(t, k.UnmarshalText([]byte("bogus")))
}

func TestClassifyResource(t *testing.T) {
	cases := []struct {
		space, typ string
		want       ResourceKind
	}{
		{"uniform", "Camera", ResourceUniform},
		{"storage, read_write", "array<u32>", ResourceStorage},
		{"storage", "array<u32>", ResourceStorage},
		{"private", "f32", ResourceUnknown},
		{"", "sampler", ResourceSampler},
		{"", "sampler_comparison", ResourceSampler},
		{"", "texture_2d<f32>", ResourceTexture},
		{"", "texture_depth_2d", ResourceTexture},
		{"", "texture_storage_2d<rgba8unorm, write>", ResourceStorageTexture},
		{"", "f32", ResourceUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyResource(tc.space, tc.typ), "%s %s", tc.space, tc.typ)
	}
}
