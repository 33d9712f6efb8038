package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
	"github.com/stretchr/testify/assert"
)

const layoutSource = `
// declared before its member types
struct Scene {
    frustum: Frustum,
    count: u32,
};

struct Plane {
    normal: vec3<f32>,
    distance: f32,
};

struct Frustum {
    planes: array<Plane, 6>,
    corners: array<vec4<f32>, 0x8u>,
};

struct Particles {
    count: u32,
    items: array<vec4f>,
};

struct Broken {
    x: Unknown,
};
`

func TestLayoutResolver(t *testing.T) {
	r := newLayoutResolver(shader.ParseStructs(layoutSource))

	tests := []struct {
		typeName string
		size     uint64
		align    uint64
		ok       bool
	}{
		{typeName: "f32", size: 4, align: 4, ok: true},
		{typeName: "vec3<f32>", size: 12, align: 16, ok: true},
		{typeName: "mat4x4f", size: 64, align: 16, ok: true},
		{typeName: "Plane", size: 16, align: 16, ok: true},
		{typeName: "array<Plane, 6>", size: 96, align: 16, ok: true},
		{typeName: "array<vec3<f32>, 2>", size: 32, align: 16, ok: true},
		{typeName: "array<f32>", size: 4, align: 4, ok: true},
		{typeName: "array<u32, 3u>", size: 12, align: 4, ok: true},
		{typeName: "Frustum", size: 224, align: 16, ok: true},
		{typeName: "Scene", size: 240, align: 16, ok: true},
		{typeName: "Particles", size: 32, align: 16, ok: true},
		{typeName: "Broken"},
		{typeName: "array<Unknown, 2>"},
		{typeName: "array<f32, N>"},
		{typeName: "texture_2d<f32>"},
	}
	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			l, ok := r.resolve(tt.typeName)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.size, l.size)
			assert.Equal(t, tt.align, l.align)
		})
	}
}

func TestSplitTemplate(t *testing.T) {
	base, params := splitTemplate("texture_storage_2d<rgba8unorm, read_write>")
	assert.Equal(t, "texture_storage_2d", base)
	assert.Equal(t, []string{"rgba8unorm", "read_write"}, params)

	base, params = splitTemplate("sampler")
	assert.Equal(t, "sampler", base)
	assert.Nil(t, params)
}
