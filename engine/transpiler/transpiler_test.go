package transpiler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/Carmen-Shannon/oxy-hll/engine/profiler"
	"github.com/Carmen-Shannon/oxy-hll/engine/pure"
	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTranspiler(t *testing.T, options ...TranspilerBuilderOption) Transpiler {
	t.Helper()
	tr, err := NewTranspiler(options...)
	require.NoError(t, err)
	t.Cleanup(tr.Close)
	return tr
}

func TestTranspileProgram(t *testing.T) {
	tr := newTranspiler(t)
	a, err := tr.Transpile(pnuProgram())
	require.NoError(t, err)

	assert.Equal(t, "debug_pnu", a.Name)
	assert.Equal(t, "vmain", a.Vertex.Entry)
	assert.Equal(t, "fmain", a.Fragment.Entry)
	assert.Equal(t, pnuVertexOut, a.Vertex.Source)
	assert.Equal(t, pnuFragmentOut, a.Fragment.Source)
	assert.Equal(t, 3, a.Vertex.Calls)
	assert.Zero(t, a.Fragment.Calls)
	assert.Equal(t, 3, a.Calls())
	assert.Equal(t, a.Fragment, a.Stage(shader.StageFragment))

	g, ok := a.GroupIndex("OBJECT_GROUP")
	assert.True(t, ok)
	assert.Equal(t, 1, g)
	_, ok = a.GroupIndex("MISSING")
	assert.False(t, ok)
}

func TestTranspileBindingTable(t *testing.T) {
	a, err := newTranspiler(t).Transpile(pnuProgram())
	require.NoError(t, err)

	require.Equal(t, 6, a.Bindings.Len())
	names := make([]string, 0, 6)
	for _, b := range a.Bindings.Entries() {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{
		"perspective_projection_matrix",
		"inverse_view_matrix",
		"local_to_world_matrix",
		"inverse_transpose_local_to_world_matrix",
		"albedo_texture",
		"albedo_sampler",
	}, names)

	ivw, ok := a.Bindings.Lookup("inverse_view_matrix")
	require.True(t, ok)
	assert.Equal(t, shader.StageMaskVertex|shader.StageMaskFragment, ivw.Stages)
	assert.Equal(t, shader.ResourceUniform, ivw.Kind)

	albedo, ok := a.Bindings.BySlot(1, 2)
	require.True(t, ok)
	assert.Equal(t, "albedo_texture", albedo.Name)
	assert.Equal(t, shader.ResourceTexture, albedo.Kind)
	assert.Equal(t, shader.StageMaskFragment, albedo.Stages)

	assert.Empty(t, a.Untagged)
}

func TestTranspileAttributes(t *testing.T) {
	a, err := newTranspiler(t).Transpile(pnuProgram())
	require.NoError(t, err)

	require.Len(t, a.Attributes, 3)
	for i, want := range []struct {
		attr   string
		field  string
		format string
	}{
		{"POSITION", "pos", "float32x3"},
		{"NORMAL", "nor", "float32x3"},
		{"TEXCOORD_0", "uv", "float32x2"},
	} {
		assert.Equal(t, i, a.Attributes[i].Location)
		assert.Equal(t, want.attr, a.Attributes[i].Attribute)
		assert.Equal(t, want.field, a.Attributes[i].Field)
		assert.Equal(t, want.format, a.Attributes[i].Format)
	}
}

func TestTranspileLeavesNoResidue(t *testing.T) {
	tr := newTranspiler(t)
	a, err := tr.Transpile(pnuProgram())
	require.NoError(t, err)

	for _, kind := range shader.Stages {
		out := a.Stage(kind).Source
		assert.NotContains(t, out, "@tag(")
		assert.NotContains(t, out, "@attribute=")
		for _, name := range tr.Library().FunctionNames() {
			assert.NotContains(t, out, name+"(")
		}
		for _, name := range tr.Library().TupleNames() {
			assert.NotContains(t, out, name+"(")
		}
	}
}

func TestTranspileIsDeterministic(t *testing.T) {
	tr := newTranspiler(t)
	first, err := tr.Transpile(pnuProgram())
	require.NoError(t, err)
	second, err := tr.Transpile(pnuProgram())
	require.NoError(t, err)

	assert.Equal(t, first, second)

	j1, err := json.Marshal(first)
	require.NoError(t, err)
	j2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(j1), string(j2))
}

func TestFragmentWithoutAnnotationsRoundTrips(t *testing.T) {
	prog := pnuProgram()
	prog.Fragment.Source = plainFragment

	a, err := newTranspiler(t).Transpile(prog)
	require.NoError(t, err)
	assert.Equal(t, plainFragment, a.Fragment.Source)

	require.Len(t, a.Untagged, 1)
	assert.Equal(t, "tint", a.Untagged[0].Variable)
	assert.Equal(t, 2, a.Untagged[0].Group)
	assert.Equal(t, shader.StageMaskFragment, a.Untagged[0].Stages)
}

func TestBindingCollisionFailsWithoutOutput(t *testing.T) {
	prog := pnuProgram()
	prog.Vertex.Source = "@tag(perspective_projection_matrix) @group(0) @binding(0) var<uniform> prj_m: mat4x4f;\n" +
		"@tag(view_matrix) @group(0) @binding(0) var<uniform> vw_m: mat4x4f;\n" +
		"@vertex fn vmain() -> @builtin(position) vec4f { return prj_m * vw_m[3]; }\n"

	a, err := newTranspiler(t).Transpile(prog)
	assert.Nil(t, a)
	require.ErrorIs(t, err, common.ErrBindingCollision)

	e, ok := common.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "debug_pnu", e.Program)
	assert.Equal(t, "vertex", e.Stage)
	assert.Equal(t, 2, e.Line)
	assert.Equal(t, 1, e.Column)
}

func TestUnknownAttributeFailsWithoutOutput(t *testing.T) {
	prog := pnuProgram()
	prog.Vertex.Source = `
struct a2v {
    @location(0) @attribute=POSITION pos: vec3<f32>,
    @location(1) @attribute=FOOBAR bar: vec3<f32>,
};
@vertex fn vmain(va: a2v) -> @builtin(position) vec4f { return vec4(va.pos + va.bar, 1.0); }
`
	a, err := newTranspiler(t).Transpile(prog)
	assert.Nil(t, a)
	require.ErrorIs(t, err, common.ErrUnknownAttributeSemantic)

	e, ok := common.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 4, e.Line)
	assert.Equal(t, strings.Index(prog.Vertex.Source, "@attribute=FOOBAR"), e.Offset)

	a, err = newTranspiler(t, WithVocabulary(shader.NewVocabulary("FOOBAR"))).Transpile(prog)
	require.NoError(t, err)
	require.Len(t, a.Attributes, 2)
	assert.Equal(t, "FOOBAR", a.Attributes[1].Attribute)
}

func TestTranspileErrorsAreStamped(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(p *shader.Program)
		err   error
		stage string
	}{
		{
			name:  "unknown function",
			edit:  func(p *shader.Program) { p.Vertex.Source = strings.Replace(pnuVertex, "world_to_screen_position", "world_to_screen_positon", 1) },
			err:   common.ErrUnknownFunction,
			stage: "vertex",
		},
		{
			name:  "missing entry point",
			edit:  func(p *shader.Program) { p.Fragment.Entry = "main" },
			err:   common.ErrInvalidDefinition,
			stage: "fragment",
		},
		{
			name:  "empty name",
			edit:  func(p *shader.Program) { p.Name = "" },
			err:   common.ErrInvalidDefinition,
			stage: "definition",
		},
		{
			name:  "attribute in fragment",
			edit:  func(p *shader.Program) { p.Fragment.Source += "\nstruct x { @location(0) @attribute=POSITION p: vec3f };\n" },
			err:   common.ErrMalformedTag,
			stage: "fragment",
		},
		{
			name: "conflicting redeclaration across stages",
			edit: func(p *shader.Program) {
				p.Fragment.Source = strings.Replace(pnuFragment, "@group(0) @binding(1) var<uniform> ivw_m", "@group(0) @binding(5) var<uniform> ivw_m", 1)
			},
			err:   common.ErrBindingConflict,
			stage: "fragment",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prog := pnuProgram()
			tc.edit(prog)
			a, err := newTranspiler(t).Transpile(prog)
			assert.Nil(t, a)
			require.ErrorIs(t, err, tc.err)
			e, ok := common.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.stage, e.Stage)
		})
	}
}

func TestWithLibrary(t *testing.T) {
	lib, err := pure.NewLibrary(pure.DefaultSource(), pure.Source{Name: "extra.wgsl", Text: `
fn clip_to_ndc(clip: vec4f) -> vec3f {
    return clip.xyz / clip.w;
}`})
	require.NoError(t, err)

	prog := pnuProgram()
	prog.Fragment.Source = strings.Replace(pnuFragment, "return col * ndl;", "return col * ndl * clip_to_ndc(o.pos).z;", 1)

	_, err = newTranspiler(t).Transpile(prog)
	require.ErrorIs(t, err, common.ErrUnknownFunction)

	a, err := newTranspiler(t, WithLibrary(lib)).Transpile(prog)
	require.NoError(t, err)
	assert.Contains(t, a.Fragment.Source, "return col * ndl * (o.pos.xyz / o.pos.w).z;")
	assert.Equal(t, 1, a.Fragment.Calls)
}

func TestArtifactSerializes(t *testing.T) {
	a, err := newTranspiler(t).Transpile(pnuProgram())
	require.NoError(t, err)

	j, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(j), `"name":"perspective_projection_matrix"`)
	assert.Contains(t, string(j), `"stages":"vertex|fragment"`)
	assert.Contains(t, string(j), `"kind":"sampler"`)
	assert.Contains(t, string(j), `"bind_groups":{"OBJECT_GROUP":1,"VIEW_GROUP":0}`)

	y, err := yaml.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(y), "calls_inlined: 3")
	assert.Contains(t, string(y), "name: albedo_texture")
	assert.Contains(t, string(y), "format: float32x2")
}

func TestTranspileAll(t *testing.T) {
	bad := pnuProgram()
	bad.Name = "broken"
	bad.Vertex.Source = strings.Replace(pnuVertex, "@binding(1) var<uniform> ivw_m", "@binding(0) var<uniform> ivw_m", 1)

	progs := make([]*shader.Program, 0, 7)
	for i := range 6 {
		p := pnuProgram()
		p.Name = "pnu_" + string(rune('a'+i))
		progs = append(progs, p)
	}
	progs = append(progs[:3], append([]*shader.Program{bad}, progs[3:]...)...)

	var buf bytes.Buffer
	prof := profiler.NewProfiler(slog.New(slog.NewTextHandler(&buf, nil)), time.Hour)
	tr := newTranspiler(t, WithWorkers(3), WithProfiler(prof))

	results := tr.TranspileAll(context.Background(), progs)
	require.Len(t, results, len(progs))
	for i, r := range results {
		assert.Equal(t, progs[i].Name, r.Program)
		if progs[i] == bad {
			assert.Nil(t, r.Artifact)
			assert.ErrorIs(t, r.Err, common.ErrBindingCollision)
			continue
		}
		require.NoError(t, r.Err)
		assert.Equal(t, progs[i].Name, r.Artifact.Name)
		assert.Equal(t, pnuVertexOut, r.Artifact.Vertex.Source)
	}

	assert.Contains(t, buf.String(), "programs=7")
	assert.Contains(t, buf.String(), "failures=1")
	assert.Contains(t, buf.String(), "calls_inlined=18")
}

func TestTranspileAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := newTranspiler(t).TranspileAll(ctx, []*shader.Program{pnuProgram(), pnuProgram()})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Nil(t, r.Artifact)
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestTranspileAllEmpty(t *testing.T) {
	assert.Empty(t, newTranspiler(t).TranspileAll(context.Background(), nil))
}

func TestWithLoggerRecordsStages(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err := newTranspiler(t, WithLogger(logger)).Transpile(pnuProgram())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "stage transpiled")
	assert.Contains(t, buf.String(), "program=debug_pnu")
	assert.Contains(t, buf.String(), "calls_inlined=3")
}
