package shader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanDebugVertex(t *testing.T) {
	res, err := Scan(debugVertex, StageVertex)
	require.NoError(t, err)

	sem := res.SemanticTags()
	require.Len(t, sem, 4)
	want := []struct {
		name           string
		group, binding int
		variable       string
	}{
		{"perspective_projection_matrix", 0, 0, "prj_m"},
		{"inverse_view_matrix", 0, 1, "ivw_m"},
		{"local_to_world_matrix", 1, 0, "mdl_m"},
		{"inverse_transpose_local_to_world_matrix", 1, 1, "itm_m"},
	}
	for i, w := range want {
		assert.Equal(t, w.name, sem[i].Name)
		assert.Equal(t, w.group, sem[i].Group)
		assert.Equal(t, w.binding, sem[i].Binding)
		assert.Equal(t, w.variable, sem[i].Target.Name)
		assert.Equal(t, "mat4x4f", sem[i].Target.Type)
		assert.Equal(t, "uniform", sem[i].Target.AddressSpace)
		assert.Equal(t, "@tag("+w.name+")", debugVertex[sem[i].Marker.Start:sem[i].Marker.End])
	}

	attrs := res.AttributeTags()
	require.Len(t, attrs, 3)
	assert.Equal(t, "POSITION", attrs[0].Name)
	assert.Equal(t, 0, attrs[0].Location)
	assert.Equal(t, "pos", attrs[0].Target.Name)
	assert.Equal(t, "vec3<f32>", attrs[0].Target.Type)
	assert.Equal(t, "@attribute=TEXCOORD_0", debugVertex[attrs[2].Marker.Start:attrs[2].Marker.End])

	require.Len(t, res.Resources, 4)
	for _, r := range res.Resources {
		assert.Equal(t, ResourceUniform, r.Kind)
		assert.NotEmpty(t, r.Semantic)
	}
	assert.Len(t, res.Markers(), 7)
}

func TestScanDebugFragment(t *testing.T) {
	res, err := Scan(debugFragment, StageFragment)
	require.NoError(t, err)
	require.Len(t, res.Tags, 2)
	assert.Equal(t, ResourceTexture, res.Resources[0].Kind)
	assert.Equal(t, "texture_2d<f32>", res.Resources[0].Type)
	assert.Equal(t, ResourceSampler, res.Resources[1].Kind)
	assert.Empty(t, res.AttributeTags())
}

func TestScanToleratesLayoutAndComments(t *testing.T) {
	src := `
/* @tag(commented_out) @group(9) @binding(9) var<uniform> nope: f32; */
// @tag(also_commented) @group(9) @binding(8) var<uniform> nope2: f32;
@group(2)
	@tag(lights) /* between */ @binding(4)
var<storage, read> lights: array<vec4<f32>>;
@group(3) @binding(0) var untagged_tex: texture_depth_2d;
`
	res, err := Scan(src, StageFragment)
	require.NoError(t, err)
	require.Len(t, res.Tags, 1)
	tag := res.Tags[0]
	assert.Equal(t, "lights", tag.Name)
	assert.Equal(t, 2, tag.Group)
	assert.Equal(t, 4, tag.Binding)
	assert.Equal(t, "storage, read", tag.Target.AddressSpace)
	assert.Equal(t, "array<vec4<f32>>", tag.Target.Type)

	require.Len(t, res.Resources, 2)
	assert.Equal(t, ResourceStorage, res.Resources[0].Kind)
	assert.Equal(t, "", res.Resources[1].Semantic)
	assert.Equal(t, ResourceTexture, res.Resources[1].Kind)
	assert.Equal(t, "untagged_tex", res.Resources[1].Variable)
}

func TestScanErrors(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		stage StageKind
		kind  common.ErrorKind
	}{
		{"tag without binding", "@tag(a) @group(0) var<uniform> a: f32;", StageVertex, common.ErrorKindMalformedTag},
		{"tag without group", "@tag(a) @binding(0) var<uniform> a: f32;", StageVertex, common.ErrorKindMalformedTag},
		{"tag without any directive", "@tag(a) var<uniform> a: f32;", StageVertex, common.ErrorKindMalformedTag},
		{"tag without parens", "@tag @group(0) @binding(0) var<uniform> a: f32;", StageVertex, common.ErrorKindMalformedTag},
		{"tag with two names", "@tag(a, b) @group(0) @binding(0) var<uniform> a: f32;", StageVertex, common.ErrorKindMalformedTag},
		{"two tags", "@tag(a) @tag(b) @group(0) @binding(0) var<uniform> a: f32;", StageVertex, common.ErrorKindMalformedTag},
		{"non literal group", "@tag(a) @group(G) @binding(0) var<uniform> a: f32;", StageVertex, common.ErrorKindMalformedTag},
		{"tag on function", "@tag(a) @group(0) @binding(0) fn a() {}", StageVertex, common.ErrorKindMalformedTag},
		{"tag on private var", "@tag(a) @group(0) @binding(0) var<private> a: f32;", StageVertex, common.ErrorKindTypeMismatch},
		{"attribute without location", "struct s { @attribute=POSITION p: vec3f, }", StageVertex, common.ErrorKindMalformedTag},
		{"attribute without name", "struct s { @location(0) @attribute p: vec3f, }", StageVertex, common.ErrorKindMalformedTag},
		{"attribute in fragment", "struct s { @location(0) @attribute=POSITION p: vec3f, }", StageFragment, common.ErrorKindMalformedTag},
		{"attribute on var", "@location(0) @attribute=POSITION var<private> p: vec3f;", StageVertex, common.ErrorKindMalformedTag},
		{"tag and attribute", "struct s { @tag(x) @group(0) @binding(0) @location(0) @attribute=POSITION p: vec3f, }", StageVertex, common.ErrorKindMalformedTag},
		{"unbalanced", "@tag(a @group(0) @binding(0) var<uniform> a: f32;", StageVertex, common.ErrorKindMalformedTag},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Scan(tc.src, tc.stage)
			require.Error(t, err)
			assert.Nil(t, res)
			e, ok := common.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.kind, e.Kind)
			assert.GreaterOrEqual(t, e.Offset, 0)
		})
	}
}

func TestScanErrorOffsetPointsAtTag(t *testing.T) {
	src := "var<private> x: f32;\n  @tag(a) @group(0) var<uniform> a: f32;"
	_, err := Scan(src, StageVertex)
	e, ok := common.AsError(err)
	require.True(t, ok)
	assert.Equal(t, len("var<private> x: f32;\n  "), e.Offset)
}

func TestScanIgnoresOtherAttributes(t *testing.T) {
	src := `
@vertex fn main(@builtin(vertex_index) vi: u32, @location(0) p: vec3f) -> @builtin(position) vec4f {
	return vec4f(p, 1.0);
}
@compute @workgroup_size(8, 8) fn cs() {}
`
	res, err := Scan(src, StageVertex)
	require.NoError(t, err)
	assert.Empty(t, res.Tags)
	assert.Empty(t, res.Resources)
}
