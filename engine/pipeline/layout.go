package pipeline

import (
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
	"github.com/Carmen-Shannon/oxy-hll/engine/wgsl"
)

// typeLayout holds the byte size and alignment of a host-shareable WGSL type.
// Used to compute MinBindingSize for buffer bindings.
type typeLayout struct {
	size  uint64
	align uint64
}

// primitiveLayouts maps WGSL scalar, vector, matrix and atomic type names to their
// byte size and alignment.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var primitiveLayouts = map[string]typeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"f16":  {2, 2},
	"bool": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec3<i32>": {12, 16},
	"vec3i":     {12, 16},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},

	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec3<u32>": {12, 16},
	"vec3u":     {12, 16},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	"vec2<f16>": {4, 4},
	"vec2h":     {4, 4},
	"vec3<f16>": {6, 8},
	"vec3h":     {6, 8},
	"vec4<f16>": {8, 8},
	"vec4h":     {8, 8},

	// matCxR<f32>: C columns of vecR<f32>
	"mat2x2<f32>": {16, 8},
	"mat2x2f":     {16, 8},
	"mat2x3<f32>": {32, 16},
	"mat2x3f":     {32, 16},
	"mat2x4<f32>": {32, 16},
	"mat2x4f":     {32, 16},
	"mat3x2<f32>": {24, 8},
	"mat3x2f":     {24, 8},
	"mat3x3<f32>": {48, 16},
	"mat3x3f":     {48, 16},
	"mat3x4<f32>": {48, 16},
	"mat3x4f":     {48, 16},
	"mat4x2<f32>": {32, 8},
	"mat4x2f":     {32, 8},
	"mat4x3<f32>": {64, 16},
	"mat4x3f":     {64, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},

	"atomic<u32>": {4, 4},
	"atomic<i32>": {4, 4},
}

// roundUp rounds value up to the next multiple of alignment, which must be a power of two.
func roundUp(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// layoutResolver resolves type names against the primitives and the structs of one program.
type layoutResolver struct {
	structs map[string]typeLayout
}

// newLayoutResolver computes the layout of every struct in structs. Structs may refer
// to each other in any order, so resolution repeats until a pass makes no progress.
// Structs that never resolve (unknown field types) are left out.
//
// Parameters:
//   - structs: the struct declarations of both stages
//
// Returns:
//   - *layoutResolver: a resolver over the primitives and the resolved structs
func newLayoutResolver(structs []shader.Struct) *layoutResolver {
	r := &layoutResolver{structs: make(map[string]typeLayout, len(structs))}
	remaining := structs
	for len(remaining) > 0 {
		var next []shader.Struct
		for _, s := range remaining {
			if _, seen := r.structs[s.Name]; seen {
				continue
			}
			if l, ok := r.structLayout(s); ok {
				r.structs[s.Name] = l
			} else {
				next = append(next, s)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return r
}

// resolve returns the layout of typeName. A fixed-size array<T, N> spans N strides of T.
// A runtime-sized array<T> resolves to a single element stride, the minimum useful
// binding size.
//
// Parameters:
//   - typeName: a compacted WGSL type such as "f32", "Camera" or "array<Plane, 6>"
//
// Returns:
//   - typeLayout: the resolved layout
//   - bool: false for unknown types
func (r *layoutResolver) resolve(typeName string) (typeLayout, bool) {
	if l, ok := primitiveLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := r.structs[typeName]; ok {
		return l, true
	}

	toks := wgsl.Tokenize(typeName)
	if len(toks) < 4 || !toks[0].Is("array") {
		return typeLayout{}, false
	}
	closing := wgsl.MatchTemplate(toks, 1)
	if closing != len(toks)-1 {
		return typeLayout{}, false
	}
	parts := wgsl.SplitTopLevel(toks, 2, closing)
	if len(parts) == 0 || len(parts) > 2 {
		return typeLayout{}, false
	}
	elem, ok := r.resolve(wgsl.Compact(toks, parts[0][0], parts[0][1]))
	if !ok {
		return typeLayout{}, false
	}
	stride := roundUp(elem.align, elem.size)
	if len(parts) == 1 {
		return typeLayout{stride, elem.align}, true
	}

	text := strings.TrimRight(wgsl.Compact(toks, parts[1][0], parts[1][1]), "ui")
	count, err := strconv.ParseUint(text, 0, 64)
	if err != nil {
		return typeLayout{}, false
	}
	return typeLayout{count * stride, elem.align}, true
}

// structLayout places each field at its next aligned offset and rounds the total up to
// the struct alignment. @builtin fields are skipped. A trailing runtime-sized array
// contributes one element.
func (r *layoutResolver) structLayout(s shader.Struct) (typeLayout, bool) {
	offset := uint64(0)
	maxAlign := uint64(1)
	for _, f := range s.Fields {
		if f.Builtin {
			continue
		}
		l, ok := r.resolve(f.Type)
		if !ok {
			return typeLayout{}, false
		}
		offset = roundUp(l.align, offset) + l.size
		maxAlign = max(maxAlign, l.align)
	}
	return typeLayout{roundUp(maxAlign, offset), maxAlign}, true
}
