package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// vertexFormats maps vertex format names produced by the attribute mapper to wgpu formats.
var vertexFormats = map[string]wgpu.VertexFormat{
	"float32":   wgpu.VertexFormatFloat32,
	"float32x2": wgpu.VertexFormatFloat32x2,
	"float32x3": wgpu.VertexFormatFloat32x3,
	"float32x4": wgpu.VertexFormatFloat32x4,
	"sint32":    wgpu.VertexFormatSint32,
	"sint32x2":  wgpu.VertexFormatSint32x2,
	"sint32x3":  wgpu.VertexFormatSint32x3,
	"sint32x4":  wgpu.VertexFormatSint32x4,
	"uint32":    wgpu.VertexFormatUint32,
	"uint32x2":  wgpu.VertexFormatUint32x2,
	"uint32x3":  wgpu.VertexFormatUint32x3,
	"uint32x4":  wgpu.VertexFormatUint32x4,
	"float16x2": wgpu.VertexFormatFloat16x2,
	"float16x4": wgpu.VertexFormatFloat16x4,
}

// textureDimension holds the view dimension and multisampled flag of a sampled texture type.
type textureDimension struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// sampledTextures maps sampled and depth texture base names to their view dimension.
var sampledTextures = map[string]textureDimension{
	"texture_1d":                    {wgpu.TextureViewDimension1D, false},
	"texture_2d":                    {wgpu.TextureViewDimension2D, false},
	"texture_2d_array":              {wgpu.TextureViewDimension2DArray, false},
	"texture_3d":                    {wgpu.TextureViewDimension3D, false},
	"texture_cube":                  {wgpu.TextureViewDimensionCube, false},
	"texture_cube_array":            {wgpu.TextureViewDimensionCubeArray, false},
	"texture_multisampled_2d":       {wgpu.TextureViewDimension2D, true},
	"texture_depth_2d":              {wgpu.TextureViewDimension2D, false},
	"texture_depth_2d_array":        {wgpu.TextureViewDimension2DArray, false},
	"texture_depth_cube":            {wgpu.TextureViewDimensionCube, false},
	"texture_depth_cube_array":      {wgpu.TextureViewDimensionCubeArray, false},
	"texture_depth_multisampled_2d": {wgpu.TextureViewDimension2D, true},
}

// storageTextures maps storage texture base names to their view dimension.
var storageTextures = map[string]wgpu.TextureViewDimension{
	"texture_storage_1d":       wgpu.TextureViewDimension1D,
	"texture_storage_2d":       wgpu.TextureViewDimension2D,
	"texture_storage_2d_array": wgpu.TextureViewDimension2DArray,
	"texture_storage_3d":       wgpu.TextureViewDimension3D,
}

var sampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var storageAccess = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

// texelFormats maps the WGSL texel formats valid for storage textures to wgpu formats.
var texelFormats = map[string]wgpu.TextureFormat{
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"rgba8snorm":  wgpu.TextureFormatRGBA8Snorm,
	"rgba8uint":   wgpu.TextureFormatRGBA8Uint,
	"rgba8sint":   wgpu.TextureFormatRGBA8Sint,
	"rgba16uint":  wgpu.TextureFormatRGBA16Uint,
	"rgba16sint":  wgpu.TextureFormatRGBA16Sint,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"r32uint":     wgpu.TextureFormatR32Uint,
	"r32sint":     wgpu.TextureFormatR32Sint,
	"r32float":    wgpu.TextureFormatR32Float,
	"rg32uint":    wgpu.TextureFormatRG32Uint,
	"rg32sint":    wgpu.TextureFormatRG32Sint,
	"rg32float":   wgpu.TextureFormatRG32Float,
	"rgba32uint":  wgpu.TextureFormatRGBA32Uint,
	"rgba32sint":  wgpu.TextureFormatRGBA32Sint,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
	"bgra8unorm":  wgpu.TextureFormatBGRA8Unorm,
}
