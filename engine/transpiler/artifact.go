package transpiler

import (
	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
)

// StageOutput is one emitted stage: plain WGSL with no annotations or library calls.
type StageOutput struct {
	Entry  string `json:"entry" yaml:"entry"`
	Source string `json:"source" yaml:"source"`

	// Calls is the number of library calls inlined into the stage.
	Calls int `json:"calls_inlined" yaml:"calls_inlined"`
}

// Artifact is the output of transpiling one program. It is immutable once returned.
type Artifact struct {
	Name     string      `json:"name" yaml:"name"`
	Vertex   StageOutput `json:"vertex" yaml:"vertex"`
	Fragment StageOutput `json:"fragment" yaml:"fragment"`

	// Bindings maps semantic names to their (group, binding, kind).
	Bindings *shader.BindingTable `json:"bindings" yaml:"bindings"`

	// Untagged lists native resources that carry no semantic name.
	Untagged []shader.UntaggedResource `json:"untagged,omitempty" yaml:"untagged,omitempty"`

	// Attributes is the vertex layout ordered by ascending location.
	Attributes []shader.VertexAttributeSlot `json:"attributes" yaml:"attributes"`

	BindGroups map[string]int `json:"bind_groups,omitempty" yaml:"bind_groups,omitempty"`
}

// Stage returns the emitted stage of the given kind.
func (a *Artifact) Stage(kind shader.StageKind) StageOutput {
	if kind == shader.StageFragment {
		return a.Fragment
	}
	return a.Vertex
}

// GroupIndex resolves a bind group alias such as "VIEW_GROUP".
//
// Parameters:
//   - alias: the alias declared by the program definition
//
// Returns:
//   - int: the group index
//   - bool: false when the program declares no such alias
func (a *Artifact) GroupIndex(alias string) (int, bool) {
	g, ok := a.BindGroups[alias]
	return g, ok
}

// Calls returns the number of library calls inlined across both stages.
func (a *Artifact) Calls() int {
	return a.Vertex.Calls + a.Fragment.Calls
}
