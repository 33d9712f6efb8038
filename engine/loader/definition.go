package loader

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
	"gopkg.in/yaml.v3"
)

// definition is the on-disk shape of a shader definition file.
type definition struct {
	Name       string                `json:"name" yaml:"name"`
	BindGroups map[string]groupIndex `json:"bind_groups" yaml:"bind_groups"`
	Vertex     stageDefinition       `json:"vertex" yaml:"vertex"`
	Fragment   stageDefinition       `json:"fragment" yaml:"fragment"`
}

type stageDefinition struct {
	Entry string `json:"entry" yaml:"entry"`
	Code  string `json:"code" yaml:"code"`
}

// groupIndex is a bind group index written either as a number or as a numeric string,
// e.g. "VIEW_GROUP": "0".
type groupIndex int

func (g *groupIndex) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return g.parse(s)
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("bind group index must be an integer or a numeric string, got %s", data)
	}
	*g = groupIndex(n)
	return nil
}

func (g *groupIndex) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: bind group index must be a scalar", value.Line)
	}
	if err := g.parse(value.Value); err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	return nil
}

func (g *groupIndex) parse(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("bind group index %q is not an integer", s)
	}
	*g = groupIndex(n)
	return nil
}

// program converts the definition into a validated Program.
//
// Returns:
//   - *shader.Program: the program, owning copies of the stage sources
//   - error: a *common.Error of kind InvalidDefinition when a required field is missing
func (d *definition) program() (*shader.Program, error) {
	p := &shader.Program{
		Name:     d.Name,
		Vertex:   shader.Stage{Entry: d.Vertex.Entry, Source: d.Vertex.Code},
		Fragment: shader.Stage{Entry: d.Fragment.Entry, Source: d.Fragment.Code},
	}
	if len(d.BindGroups) > 0 {
		p.BindGroups = make(map[string]int, len(d.BindGroups))
		for alias, g := range d.BindGroups {
			p.BindGroups[alias] = int(g)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
