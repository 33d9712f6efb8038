// Package pipeline turns transpiled artifacts into the CPU-side wgpu descriptors a
// renderer needs to create shader modules, bind group layouts and a render pipeline.
// No GPU device is touched here.
package pipeline

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
	"github.com/Carmen-Shannon/oxy-hll/engine/transpiler"
	"github.com/cogentcore/webgpu/wgpu"
)

// Descriptors holds everything needed to create the GPU objects of one program.
type Descriptors struct {
	Name string

	VertexModule   *wgpu.ShaderModuleDescriptor
	FragmentModule *wgpu.ShaderModuleDescriptor
	VertexEntry    string
	FragmentEntry  string

	// BindGroupLayouts is keyed by group index.
	BindGroupLayouts map[int]wgpu.BindGroupLayoutDescriptor

	// VertexBuffers is indexed by vertex buffer slot.
	VertexBuffers []wgpu.VertexBufferLayout
}

// Groups returns the bind group indices in ascending order.
func (d *Descriptors) Groups() []int {
	return common.SortedKeys(d.BindGroupLayouts)
}

// PipelineLayouts returns the bind group layouts indexed by group, as a pipeline layout
// expects them. Gaps below the highest group are filled with empty labeled layouts.
//
// Returns:
//   - []wgpu.BindGroupLayoutDescriptor: one descriptor per group index from 0 to the highest
func (d *Descriptors) PipelineLayouts() []wgpu.BindGroupLayoutDescriptor {
	groups := d.Groups()
	if len(groups) == 0 {
		return nil
	}
	out := make([]wgpu.BindGroupLayoutDescriptor, groups[len(groups)-1]+1)
	for g := range out {
		desc, ok := d.BindGroupLayouts[g]
		if !ok {
			desc = wgpu.BindGroupLayoutDescriptor{Label: bindGroupLabel(d.Name, g)}
		}
		out[g] = desc
	}
	return out
}

// builder is the implementation of the Builder interface.
type builder struct {
	mode     VertexLayoutMode
	validate bool
	logger   *slog.Logger
}

// Builder converts artifacts into pipeline descriptors. It holds no mutable state and
// is safe for concurrent use.
type Builder interface {
	// Build creates the descriptors of one artifact.
	//
	// Parameters:
	//   - a: a successfully transpiled artifact
	//
	// Returns:
	//   - *Descriptors: the shader modules, bind group layouts and vertex buffer layouts
	//   - error: an unsupported vertex format, or ErrInvalidWGSL when validation is enabled
	Build(a *transpiler.Artifact) (*Descriptors, error)
}

var _ Builder = (*builder)(nil)

// NewBuilder creates a Builder. Without options it produces separate vertex buffers and
// skips WGSL validation.
//
// Parameters:
//   - options: functional options to configure the builder
//
// Returns:
//   - Builder: the configured builder
func NewBuilder(options ...BuilderOption) Builder {
	b := &builder{
		mode:   VertexLayoutSeparate,
		logger: slog.Default(),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

func (b *builder) Build(a *transpiler.Artifact) (*Descriptors, error) {
	if b.validate {
		if err := Validate(a); err != nil {
			return nil, err
		}
	}

	buffers, err := vertexBufferLayouts(a.Attributes, b.mode)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", a.Name, err)
	}

	structs := slices.Concat(shader.ParseStructs(a.Vertex.Source), shader.ParseStructs(a.Fragment.Source))
	resolver := newLayoutResolver(structs)

	d := &Descriptors{
		Name:             a.Name,
		VertexModule:     moduleDescriptor(a.Name, shader.StageVertex, a.Vertex.Source),
		FragmentModule:   moduleDescriptor(a.Name, shader.StageFragment, a.Fragment.Source),
		VertexEntry:      a.Vertex.Entry,
		FragmentEntry:    a.Fragment.Entry,
		BindGroupLayouts: bindGroupLayouts(a.Name, a.Bindings, a.Untagged, resolver),
		VertexBuffers:    buffers,
	}

	b.logger.Debug("pipeline descriptors built",
		slog.String("program", a.Name),
		slog.Int("bind_groups", len(d.BindGroupLayouts)),
		slog.Int("vertex_buffers", len(d.VertexBuffers)),
		slog.String("vertex_layout", b.mode.String()),
	)
	return d, nil
}

func moduleDescriptor(name string, kind shader.StageKind, source string) *wgpu.ShaderModuleDescriptor {
	return &wgpu.ShaderModuleDescriptor{
		Label: fmt.Sprintf("%s_%s_module", name, kind),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	}
}
