package wgsl

import "strings"

// keywords are the WGSL keywords plus the literal values true and false.
var keywords = setOf(
	"alias", "break", "case", "const", "const_assert", "continue", "continuing",
	"default", "diagnostic", "discard", "else", "enable", "false", "fn", "for",
	"if", "let", "loop", "override", "requires", "return", "struct", "switch",
	"true", "var", "while",
)

// typeNames are the predeclared types, including the shorthand aliases.
var typeNames = setOf(
	"bool", "f16", "f32", "i32", "u32",
	"vec2", "vec3", "vec4",
	"vec2f", "vec3f", "vec4f", "vec2h", "vec3h", "vec4h",
	"vec2i", "vec3i", "vec4i", "vec2u", "vec3u", "vec4u",
	"mat2x2", "mat2x3", "mat2x4", "mat3x2", "mat3x3", "mat3x4", "mat4x2", "mat4x3", "mat4x4",
	"mat2x2f", "mat2x3f", "mat2x4f", "mat3x2f", "mat3x3f", "mat3x4f", "mat4x2f", "mat4x3f", "mat4x4f",
	"mat2x2h", "mat2x3h", "mat2x4h", "mat3x2h", "mat3x3h", "mat3x4h", "mat4x2h", "mat4x3h", "mat4x4h",
	"array", "atomic", "ptr", "binding_array",
	"sampler", "sampler_comparison",
	"texture_1d", "texture_2d", "texture_2d_array", "texture_3d", "texture_cube", "texture_cube_array",
	"texture_multisampled_2d", "texture_depth_multisampled_2d", "texture_external",
	"texture_depth_2d", "texture_depth_2d_array", "texture_depth_cube", "texture_depth_cube_array",
	"texture_storage_1d", "texture_storage_2d", "texture_storage_2d_array", "texture_storage_3d",
)

// predeclared are enumerants that appear in template lists and attributes:
// address spaces, access modes and texel formats.
var predeclared = setOf(
	"function", "private", "workgroup", "uniform", "storage", "handle",
	"read", "write", "read_write",
	"rgba8unorm", "rgba8snorm", "rgba8uint", "rgba8sint", "rgba16uint", "rgba16sint", "rgba16float",
	"r32uint", "r32sint", "r32float", "rg32uint", "rg32sint", "rg32float",
	"rgba32uint", "rgba32sint", "rgba32float", "bgra8unorm",
)

// builtinFunctions are the WGSL builtin functions.
var builtinFunctions = setOf(
	// bit reinterpretation and logical
	"bitcast", "all", "any", "select",
	// array
	"arrayLength",
	// numeric
	"abs", "acos", "acosh", "asin", "asinh", "atan", "atanh", "atan2", "ceil", "clamp",
	"cos", "cosh", "countLeadingZeros", "countOneBits", "countTrailingZeros", "cross",
	"degrees", "determinant", "distance", "dot", "dot4U8Packed", "dot4I8Packed",
	"exp", "exp2", "extractBits", "faceForward", "firstLeadingBit", "firstTrailingBit",
	"floor", "fma", "fract", "frexp", "insertBits", "inverseSqrt", "ldexp", "length",
	"log", "log2", "max", "min", "mix", "modf", "normalize", "pow", "quantizeToF16",
	"radians", "reflect", "refract", "reverseBits", "round", "saturate", "sign", "sin",
	"sinh", "smoothstep", "sqrt", "step", "tan", "tanh", "transpose", "trunc",
	// derivatives
	"dpdx", "dpdxCoarse", "dpdxFine", "dpdy", "dpdyCoarse", "dpdyFine",
	"fwidth", "fwidthCoarse", "fwidthFine",
	// textures
	"textureDimensions", "textureGather", "textureGatherCompare", "textureLoad",
	"textureNumLayers", "textureNumLevels", "textureNumSamples", "textureSample",
	"textureSampleBias", "textureSampleCompare", "textureSampleCompareLevel",
	"textureSampleGrad", "textureSampleLevel", "textureSampleBaseClampToEdge", "textureStore",
	// atomics
	"atomicLoad", "atomicStore", "atomicAdd", "atomicSub", "atomicMax", "atomicMin",
	"atomicAnd", "atomicOr", "atomicXor", "atomicExchange", "atomicCompareExchangeWeak",
	// packing
	"pack4x8snorm", "pack4x8unorm", "pack4xI8", "pack4xU8", "pack4xI8Clamp", "pack4xU8Clamp",
	"pack2x16snorm", "pack2x16unorm", "pack2x16float",
	"unpack4x8snorm", "unpack4x8unorm", "unpack4xI8", "unpack4xU8",
	"unpack2x16snorm", "unpack2x16unorm", "unpack2x16float",
	// synchronization
	"storageBarrier", "textureBarrier", "workgroupBarrier", "workgroupUniformLoad",
)

// IsKeyword reports whether name is a WGSL keyword.
func IsKeyword(name string) bool {
	return keywords[name]
}

// IsTypeName reports whether name is a predeclared WGSL type.
func IsTypeName(name string) bool {
	return typeNames[name]
}

// IsBuiltinFunction reports whether name is a WGSL builtin function.
func IsBuiltinFunction(name string) bool {
	return builtinFunctions[name]
}

// IsTypeGenerator reports whether name is a predeclared type that takes a template list.
func IsTypeGenerator(name string) bool {
	switch name {
	case "vec2", "vec3", "vec4", "array", "atomic", "ptr", "binding_array":
		return true
	}
	if !typeNames[name] {
		return false
	}
	switch {
	case strings.HasPrefix(name, "mat"):
		return len(name) == len("mat4x4")
	case strings.HasPrefix(name, "texture_depth"), name == "texture_external":
		return false
	case strings.HasPrefix(name, "texture_"):
		return true
	}
	return false
}

// IsPredeclared reports whether name is visible in every WGSL scope without a declaration:
// keywords, types, builtin functions and enumerants.
func IsPredeclared(name string) bool {
	return keywords[name] || typeNames[name] || builtinFunctions[name] || predeclared[name]
}

func setOf(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
