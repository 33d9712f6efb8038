package transpiler

import "github.com/Carmen-Shannon/oxy-hll/engine/shader"

const pnuVertex = `
@tag(perspective_projection_matrix) @group(0) @binding(0) var<uniform> prj_m: mat4x4f;
@tag(inverse_view_matrix) @group(0) @binding(1) var<uniform> ivw_m: mat4x4f;

@tag(local_to_world_matrix) @group(1) @binding(0) var<uniform> mdl_m: mat4x4f;
@tag(inverse_transpose_local_to_world_matrix) @group(1) @binding(1) var<uniform> itm_m: mat4x4f;

// attribute-to-vertex
struct a2v {
    @location(0) @attribute=POSITION pos: vec3<f32>,
    @location(1) @attribute=NORMAL nor: vec3<f32>,
    @location(2) @attribute=TEXCOORD_0 uv: vec2<f32>,
};

// vertex-to-fragment
struct v2f {
    @builtin(position) pos: vec4<f32>,
    @location(1) nor: vec3<f32>,
    @location(2) uv: vec2<f32>,
};

@vertex fn vmain(va: a2v) -> v2f {
    var o: v2f;
    debug_empty();
    o.uv = va.uv;
    o.pos = world_to_screen_position(model_view_projection_t(mdl_m, ivw_m, prj_m), va.pos);
    o.nor = world_to_view_direction(inverse_model_transpose_t(ivw_m, itm_m), va.nor);
    return o;
}
`

const pnuVertexOut = `
@group(0) @binding(0) var<uniform> prj_m: mat4x4f;
@group(0) @binding(1) var<uniform> ivw_m: mat4x4f;

@group(1) @binding(0) var<uniform> mdl_m: mat4x4f;
@group(1) @binding(1) var<uniform> itm_m: mat4x4f;

// attribute-to-vertex
struct a2v {
    @location(0) pos: vec3<f32>,
    @location(1) nor: vec3<f32>,
    @location(2) uv: vec2<f32>,
};

// vertex-to-fragment
struct v2f {
    @builtin(position) pos: vec4<f32>,
    @location(1) nor: vec3<f32>,
    @location(2) uv: vec2<f32>,
};

@vertex fn vmain(va: a2v) -> v2f {
    var o: v2f;
    o.uv = va.uv;
    o.pos = prj_m * ivw_m * mdl_m * vec4(va.pos, 1.0);
    let n = ivw_m * itm_m * vec4(va.nor, 0.0);
    o.nor = normalize(n.xyz);
    return o;
}
`

const pnuFragment = `
@tag(albedo_texture) @group(1) @binding(2) var t_albedo: texture_2d<f32>;
@tag(albedo_sampler) @group(1) @binding(3) var s_albedo: sampler;
@tag(inverse_view_matrix) @group(0) @binding(1) var<uniform> ivw_m: mat4x4f;

struct v2f {
    @builtin(position) pos: vec4<f32>,
    @location(1) nor: vec3<f32>,
    @location(2) uv: vec2<f32>,
};

@fragment fn fmain(o: v2f) -> @location(0) vec4f {
    let ndl = saturate(dot(o.nor, vec3(0.0, 0.0, 1.0)));
    let col = textureSample(t_albedo, s_albedo, o.uv);
    return col * ndl;
}
`

const pnuFragmentOut = `
@group(1) @binding(2) var t_albedo: texture_2d<f32>;
@group(1) @binding(3) var s_albedo: sampler;
@group(0) @binding(1) var<uniform> ivw_m: mat4x4f;

struct v2f {
    @builtin(position) pos: vec4<f32>,
    @location(1) nor: vec3<f32>,
    @location(2) uv: vec2<f32>,
};

@fragment fn fmain(o: v2f) -> @location(0) vec4f {
    let ndl = saturate(dot(o.nor, vec3(0.0, 0.0, 1.0)));
    let col = textureSample(t_albedo, s_albedo, o.uv);
    return col * ndl;
}
`

// plainFragment carries no tags and no library calls.
const plainFragment = `
struct v2f {
    @builtin(position) pos: vec4<f32>,
    @location(1) nor: vec3<f32>,
};

@group(2) @binding(0) var<uniform> tint: vec4f;

@fragment fn fmain(o: v2f) -> @location(0) vec4f {
    return vec4(o.nor * 0.5 + 0.5, 1.0) * tint;
}
`

func pnuProgram() *shader.Program {
	return &shader.Program{
		Name:       "debug_pnu",
		Vertex:     shader.Stage{Entry: "vmain", Source: pnuVertex},
		Fragment:   shader.Stage{Entry: "fmain", Source: pnuFragment},
		BindGroups: map[string]int{"VIEW_GROUP": 0, "OBJECT_GROUP": 1},
	}
}
