// Package shader holds the annotated shader program model and the passes that read its
// annotations: the tag scanner, the semantic binding table and the attribute mapper.
//
// Shader source is WGSL augmented with two annotation forms:
//
//	@tag(<semantic_name>) @group(<g>) @binding(<b>) var<...> <ident>: <type>;
//	@location(<n>) @attribute=<ATTR_NAME> <field>: <type>,
//
// The base language is treated as opaque text with recognized annotation islands.
package shader

import (
	"github.com/Carmen-Shannon/oxy-hll/common"
)

// StageKind identifies one half of a render program.
type StageKind int

const (
	// StageVertex is the vertex stage. Only it may carry @attribute= tags.
	StageVertex StageKind = iota

	// StageFragment is the fragment stage.
	StageFragment
)

// Stages lists the stage kinds in the order they are processed.
var Stages = []StageKind{StageVertex, StageFragment}

func (s StageKind) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// Stage is one stage of a Program: the name of its entry function and its annotated source.
type Stage struct {
	Entry  string
	Source string
}

// Program is a named vertex and fragment stage pair, created once per shader definition
// and treated as immutable afterwards.
type Program struct {
	Name     string
	Vertex   Stage
	Fragment Stage

	// BindGroups optionally names group indices, e.g. "VIEW_GROUP" -> 0.
	BindGroups map[string]int
}

// Stage returns the stage of the given kind.
func (p *Program) Stage(kind StageKind) Stage {
	if kind == StageFragment {
		return p.Fragment
	}
	return p.Vertex
}

// Validate checks that the program carries everything a transpile needs: a name and, for
// both stages, an entry point and source text.
//
// Returns:
//   - error: a *common.Error of kind InvalidDefinition, or nil
func (p *Program) Validate() error {
	if p.Name == "" {
		return definitionError("", "program name is empty")
	}
	for _, kind := range Stages {
		st := p.Stage(kind)
		if st.Entry == "" {
			return definitionError(p.Name, "%s stage has no entry point", kind)
		}
		if st.Source == "" {
			return definitionError(p.Name, "%s stage has no code", kind)
		}
	}
	for alias, g := range p.BindGroups {
		if g < 0 {
			return definitionError(p.Name, "bind group alias %q maps to negative group %d", alias, g)
		}
	}
	return nil
}

func definitionError(program, format string, args ...any) error {
	e := common.NewError(common.ErrorKindInvalidDefinition, -1, format, args...)
	e.Program = program
	e.Stage = "definition"
	return e
}
