package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// VertexLayoutMode selects how vertex attributes are spread over vertex buffers.
type VertexLayoutMode int

const (
	// VertexLayoutSeparate binds one buffer per attribute, each starting at offset 0,
	// the way mesh accessors are usually uploaded.
	VertexLayoutSeparate VertexLayoutMode = iota

	// VertexLayoutInterleaved packs every attribute into one buffer with running offsets.
	VertexLayoutInterleaved
)

func (m VertexLayoutMode) String() string {
	if m == VertexLayoutInterleaved {
		return "interleaved"
	}
	return "separate"
}

// ParseVertexLayoutMode parses "separate" or "interleaved". The empty string selects
// VertexLayoutSeparate.
func ParseVertexLayoutMode(s string) (VertexLayoutMode, error) {
	switch s {
	case "", "separate":
		return VertexLayoutSeparate, nil
	case "interleaved":
		return VertexLayoutInterleaved, nil
	}
	return VertexLayoutSeparate, fmt.Errorf("unknown vertex layout %q, expected separate or interleaved", s)
}

// vertexBufferLayouts converts validated attribute slots into vertex buffer layouts.
// Slots arrive ordered by location, so separate buffers are indexed in location order too.
//
// Parameters:
//   - slots: the attribute slots of the artifact
//   - mode: separate or interleaved buffers
//
// Returns:
//   - []wgpu.VertexBufferLayout: the layouts, nil when there are no attributes
//   - error: a slot whose format has no wgpu equivalent
func vertexBufferLayouts(slots []shader.VertexAttributeSlot, mode VertexLayoutMode) ([]wgpu.VertexBufferLayout, error) {
	if len(slots) == 0 {
		return nil, nil
	}

	attrs := make([]wgpu.VertexAttribute, 0, len(slots))
	var offset uint64
	for _, slot := range slots {
		format, ok := vertexFormats[slot.Format]
		if !ok {
			return nil, fmt.Errorf("attribute %s at location %d: unsupported vertex format %q",
				slot.Attribute, slot.Location, slot.Format)
		}
		attr := wgpu.VertexAttribute{
			Format:         format,
			ShaderLocation: uint32(slot.Location),
		}
		if mode == VertexLayoutInterleaved {
			attr.Offset = offset
			offset += slot.Size
		}
		attrs = append(attrs, attr)
	}

	if mode == VertexLayoutInterleaved {
		return []wgpu.VertexBufferLayout{{
			ArrayStride: offset,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		}}, nil
	}

	layouts := make([]wgpu.VertexBufferLayout, len(attrs))
	for i, attr := range attrs {
		layouts[i] = wgpu.VertexBufferLayout{
			ArrayStride: slots[i].Size,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  []wgpu.VertexAttribute{attr},
		}
	}
	return layouts, nil
}
