package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructs(t *testing.T) {
	structs := ParseStructs(debugVertex)
	require.Len(t, structs, 2)

	a2v := structs[0]
	assert.Equal(t, "a2v", a2v.Name)
	require.Len(t, a2v.Fields, 3)
	assert.Equal(t, StructField{Name: "uv", Type: "vec2<f32>", Location: 2}, a2v.Fields[2])
	assert.True(t, a2v.IsVertexInput())

	v2f := structs[1]
	assert.Equal(t, "v2f", v2f.Name)
	assert.True(t, v2f.Fields[0].Builtin)
	assert.Equal(t, -1, v2f.Fields[0].Location)
	assert.False(t, v2f.IsVertexInput())
}

func TestParseStructsNestedTypes(t *testing.T) {
	src := "struct Lights { count: u32, planes: array<vec4<f32>, 6>, data: array<f32> }"
	structs := ParseStructs(src)
	require.Len(t, structs, 1)
	require.Len(t, structs[0].Fields, 3)
	assert.Equal(t, "array<vec4<f32>, 6>", structs[0].Fields[1].Type)
	assert.Equal(t, "array<f32>", structs[0].Fields[2].Type)
	assert.False(t, structs[0].IsVertexInput())
}
