package pipeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
	"github.com/Carmen-Shannon/oxy-hll/engine/wgsl"
	"github.com/cogentcore/webgpu/wgpu"
)

// resourceDecl is the part of a tagged or untagged declaration a layout entry needs.
type resourceDecl struct {
	binding      int
	kind         shader.ResourceKind
	typeName     string
	addressSpace string
	stages       shader.StageMask
}

// visibility converts the stages declaring a resource into a wgpu stage mask.
func visibility(mask shader.StageMask) wgpu.ShaderStage {
	var v wgpu.ShaderStage
	if mask.Has(shader.StageVertex) {
		v |= wgpu.ShaderStageVertex
	}
	if mask.Has(shader.StageFragment) {
		v |= wgpu.ShaderStageFragment
	}
	return v
}

// bindGroupLayouts builds one layout descriptor per bind group from the semantic table
// and the untagged resources of a program. Both stages were already merged into each
// entry's stage mask, so an entry shared by the vertex and fragment stage is visible
// to both. Entries are sorted by binding.
//
// Parameters:
//   - name: the program name, used for labels
//   - table: the frozen semantic binding table
//   - untagged: native declarations without a semantic
//   - resolver: resolves buffer types to their byte size
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
func bindGroupLayouts(name string, table *shader.BindingTable, untagged []shader.UntaggedResource, resolver *layoutResolver) map[int]wgpu.BindGroupLayoutDescriptor {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	if table != nil {
		for _, b := range table.Entries() {
			groups[b.Group] = append(groups[b.Group], layoutEntry(resourceDecl{
				binding:      b.Binding,
				kind:         b.Kind,
				typeName:     b.Type,
				addressSpace: b.AddressSpace,
				stages:       b.Stages,
			}, resolver))
		}
	}
	for _, u := range untagged {
		groups[u.Group] = append(groups[u.Group], layoutEntry(resourceDecl{
			binding:      u.Binding,
			kind:         u.Kind,
			typeName:     u.Type,
			addressSpace: u.AddressSpace,
			stages:       u.Stages,
		}, resolver))
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		slices.SortFunc(entries, func(a, b wgpu.BindGroupLayoutEntry) int {
			return int(a.Binding) - int(b.Binding)
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   bindGroupLabel(name, g),
			Entries: entries,
		}
	}
	return result
}

func bindGroupLabel(name string, group int) string {
	return fmt.Sprintf("%s_bind_group_%d_layout", name, group)
}

// layoutEntry creates the wgpu.BindGroupLayoutEntry of one declaration. Buffers get a
// MinBindingSize when their type resolves.
func layoutEntry(d resourceDecl, resolver *layoutResolver) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    uint32(d.binding),
		Visibility: visibility(d.stages),
	}

	switch d.kind {
	case shader.ResourceUniform:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case shader.ResourceStorage:
		if strings.Contains(d.addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		} else {
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		}
	case shader.ResourceSampler:
		if d.typeName == "sampler_comparison" {
			entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
		} else {
			entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		}
	case shader.ResourceTexture:
		textureEntry(d.typeName, &entry)
	case shader.ResourceStorageTexture:
		storageTextureEntry(d.typeName, &entry)
	}

	if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined && resolver != nil {
		if l, ok := resolver.resolve(d.typeName); ok && l.size > 0 {
			entry.Buffer.MinBindingSize = l.size
		}
	}
	return entry
}

// textureEntry fills the texture layout of a sampled or depth texture such as
// "texture_2d<f32>" or "texture_depth_2d".
func textureEntry(typeName string, entry *wgpu.BindGroupLayoutEntry) {
	base, params := splitTemplate(typeName)
	if dim, ok := sampledTextures[base]; ok {
		entry.Texture.ViewDimension = dim.viewDimension
		entry.Texture.Multisampled = dim.multisampled
	}
	if strings.HasPrefix(base, "texture_depth_") {
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		return
	}
	if len(params) > 0 {
		if st, ok := sampleTypes[params[0]]; ok {
			entry.Texture.SampleType = st
		}
	}
}

// storageTextureEntry fills the storage texture layout of a type such as
// "texture_storage_2d<rgba8unorm, write>".
func storageTextureEntry(typeName string, entry *wgpu.BindGroupLayoutEntry) {
	base, params := splitTemplate(typeName)
	if dim, ok := storageTextures[base]; ok {
		entry.StorageTexture.ViewDimension = dim
	}
	if len(params) > 0 {
		if format, ok := texelFormats[params[0]]; ok {
			entry.StorageTexture.Format = format
		}
	}
	if len(params) > 1 {
		if access, ok := storageAccess[params[1]]; ok {
			entry.StorageTexture.Access = access
		}
	}
}

// splitTemplate splits a parameterized type into its base name and template arguments.
// "texture_2d<f32>" gives ("texture_2d", ["f32"]), "sampler" gives ("sampler", nil).
func splitTemplate(typeName string) (string, []string) {
	toks := wgsl.Tokenize(typeName)
	if len(toks) == 0 {
		return "", nil
	}
	closing := wgsl.MatchTemplate(toks, 1)
	if closing < 0 {
		return toks[0].Text, nil
	}
	var params []string
	for _, part := range wgsl.SplitTopLevel(toks, 2, closing) {
		params = append(params, wgsl.Compact(toks, part[0], part[1]))
	}
	return toks[0].Text, params
}
