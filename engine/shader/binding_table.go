package shader

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-hll/common"
)

// StageMask is the set of stages that declare a resource.
type StageMask uint8

const (
	// StageMaskVertex marks a declaration in the vertex stage.
	StageMaskVertex StageMask = 1 << iota

	// StageMaskFragment marks a declaration in the fragment stage.
	StageMaskFragment
)

// MaskOf returns the mask bit of a stage.
func MaskOf(kind StageKind) StageMask {
	if kind == StageFragment {
		return StageMaskFragment
	}
	return StageMaskVertex
}

// Has reports whether the mask includes the stage.
func (m StageMask) Has(kind StageKind) bool {
	return m&MaskOf(kind) != 0
}

func (m StageMask) String() string {
	var names []string
	for _, kind := range Stages {
		if m.Has(kind) {
			names = append(names, kind.String())
		}
	}
	return strings.Join(names, "|")
}

// MarshalText encodes the mask as "vertex", "fragment" or "vertex|fragment".
func (m StageMask) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Binding is one entry of the semantic binding table.
type Binding struct {
	Name         string       `json:"name" yaml:"name"`
	Group        int          `json:"group" yaml:"group"`
	Binding      int          `json:"binding" yaml:"binding"`
	Kind         ResourceKind `json:"kind" yaml:"kind"`
	Variable     string       `json:"variable" yaml:"variable"`
	Type         string       `json:"type" yaml:"type"`
	AddressSpace string       `json:"address_space,omitempty" yaml:"address_space,omitempty"`
	Stages       StageMask    `json:"stages" yaml:"stages"`
}

// UntaggedResource is a native @group/@binding declaration that carries no @tag and
// does not share its slot with a tagged one. It still needs a layout entry.
type UntaggedResource struct {
	Group        int          `json:"group" yaml:"group"`
	Binding      int          `json:"binding" yaml:"binding"`
	Kind         ResourceKind `json:"kind" yaml:"kind"`
	Variable     string       `json:"variable" yaml:"variable"`
	Type         string       `json:"type" yaml:"type"`
	AddressSpace string       `json:"address_space,omitempty" yaml:"address_space,omitempty"`
	Stages       StageMask    `json:"stages" yaml:"stages"`
}

type slot struct {
	group   int
	binding int
}

// BindingTableBuilder accumulates the semantic tags of both stages of one program and
// enforces that the table stays injective and functional. It is owned by a single
// transpile call and is not safe for concurrent use.
type BindingTableBuilder struct {
	byName   map[string]*Binding
	bySlot   map[slot]string
	untagged map[slot]*UntaggedResource
	frozen   bool
}

// NewBindingTableBuilder creates an empty builder.
func NewBindingTableBuilder() *BindingTableBuilder {
	return &BindingTableBuilder{
		byName:   make(map[string]*Binding),
		bySlot:   make(map[slot]string),
		untagged: make(map[slot]*UntaggedResource),
	}
}

// Insert adds one semantic tag declared in the given stage.
//
// A name already present with a different (group, binding) or resource kind is a
// BindingConflict. A (group, binding) already claimed by another name is a
// BindingCollision. Re-declaring an identical entry from the other stage merges the
// stage into its mask.
//
// Parameters:
//   - tag: a TagSemantic from Scan
//   - stage: the stage that declared it
//
// Returns:
//   - error: a *common.Error positioned at the tag marker, or nil
func (b *BindingTableBuilder) Insert(tag Tag, stage StageKind) error {
	if b.frozen {
		return common.NewError(common.ErrorKindInvariantViolation, tag.Marker.Start,
			"binding table is frozen, cannot insert %q", tag.Name)
	}
	kind := ClassifyResource(tag.Target.AddressSpace, tag.Target.Type)

	if existing, ok := b.byName[tag.Name]; ok {
		if existing.Group != tag.Group || existing.Binding != tag.Binding {
			return common.NewError(common.ErrorKindBindingConflict, tag.Marker.Start,
				"semantic %q is bound to group %d binding %d here but to group %d binding %d earlier",
				tag.Name, tag.Group, tag.Binding, existing.Group, existing.Binding)
		}
		if existing.Kind != kind {
			return common.NewError(common.ErrorKindBindingConflict, tag.Marker.Start,
				"semantic %q is a %s here but a %s earlier", tag.Name, kind, existing.Kind)
		}
		existing.Stages |= MaskOf(stage)
		return nil
	}

	s := slot{tag.Group, tag.Binding}
	if other, ok := b.bySlot[s]; ok {
		return common.NewError(common.ErrorKindBindingCollision, tag.Marker.Start,
			"group %d binding %d is claimed by both %q and %q", tag.Group, tag.Binding, other, tag.Name)
	}

	b.byName[tag.Name] = &Binding{
		Name:         tag.Name,
		Group:        tag.Group,
		Binding:      tag.Binding,
		Kind:         kind,
		Variable:     tag.Target.Name,
		Type:         tag.Target.Type,
		AddressSpace: tag.Target.AddressSpace,
		Stages:       MaskOf(stage),
	}
	b.bySlot[s] = tag.Name
	return nil
}

// AddUntagged records a native declaration without a @tag. When its slot belongs to a
// semantic entry the stage joins that entry's mask and the resource kinds must agree;
// otherwise it is kept as an untagged resource, and a later untagged declaration of the slot
// must agree on the kind too. Call it after every Insert of the program.
//
// Parameters:
//   - res: an untagged Resource from Scan
//   - stage: the stage that declared it
//
// Returns:
//   - error: a BindingConflict when the kinds disagree, or nil
func (b *BindingTableBuilder) AddUntagged(res Resource, stage StageKind) error {
	if b.frozen {
		return common.NewError(common.ErrorKindInvariantViolation, res.Offset,
			"binding table is frozen, cannot add %s", res.Variable)
	}
	s := slot{res.Group, res.Binding}
	if name, ok := b.bySlot[s]; ok {
		entry := b.byName[name]
		if entry.Kind != res.Kind {
			return common.NewError(common.ErrorKindBindingConflict, res.Offset,
				"%s at group %d binding %d is a %s but semantic %q is a %s",
				res.Variable, res.Group, res.Binding, res.Kind, name, entry.Kind)
		}
		entry.Stages |= MaskOf(stage)
		return nil
	}
	if existing, ok := b.untagged[s]; ok {
		if existing.Kind != res.Kind {
			return common.NewError(common.ErrorKindBindingConflict, res.Offset,
				"%s at group %d binding %d is a %s but %s is a %s",
				res.Variable, res.Group, res.Binding, res.Kind, existing.Variable, existing.Kind)
		}
		existing.Stages |= MaskOf(stage)
		return nil
	}
	b.untagged[s] = &UntaggedResource{
		Group:        res.Group,
		Binding:      res.Binding,
		Kind:         res.Kind,
		Variable:     res.Variable,
		Type:         res.Type,
		AddressSpace: res.AddressSpace,
		Stages:       MaskOf(stage),
	}
	return nil
}

// Freeze returns the read-only table. The builder rejects further changes afterwards.
func (b *BindingTableBuilder) Freeze() *BindingTable {
	b.frozen = true

	t := &BindingTable{
		entries: make([]Binding, 0, len(b.byName)),
		byName:  make(map[string]int, len(b.byName)),
	}
	for _, e := range b.byName {
		t.entries = append(t.entries, *e)
	}
	sort.Slice(t.entries, func(i, j int) bool {
		return slotLess(t.entries[i].Group, t.entries[i].Binding, t.entries[j].Group, t.entries[j].Binding)
	})
	for i, e := range t.entries {
		t.byName[e.Name] = i
	}

	for _, u := range b.untagged {
		t.untagged = append(t.untagged, *u)
	}
	sort.Slice(t.untagged, func(i, j int) bool {
		return slotLess(t.untagged[i].Group, t.untagged[i].Binding, t.untagged[j].Group, t.untagged[j].Binding)
	})
	return t
}

func slotLess(g1, b1, g2, b2 int) bool {
	if g1 != g2 {
		return g1 < g2
	}
	return b1 < b2
}

// BindingTable is the frozen semantic binding table of one program. Every semantic name
// maps to exactly one (group, binding, kind) and every (group, binding) to at most one
// name. It is safe for concurrent reads.
type BindingTable struct {
	entries  []Binding
	byName   map[string]int
	untagged []UntaggedResource
}

// Lookup resolves a semantic name.
func (t *BindingTable) Lookup(name string) (Binding, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Binding{}, false
	}
	return t.entries[i], true
}

// BySlot returns the semantic entry bound at (group, binding), if any.
func (t *BindingTable) BySlot(group, binding int) (Binding, bool) {
	i := sort.Search(len(t.entries), func(i int) bool {
		return !slotLess(t.entries[i].Group, t.entries[i].Binding, group, binding)
	})
	if i < len(t.entries) && t.entries[i].Group == group && t.entries[i].Binding == binding {
		return t.entries[i], true
	}
	return Binding{}, false
}

// Group returns the semantic entries of one bind group ordered by binding.
func (t *BindingTable) Group(group int) []Binding {
	var out []Binding
	for _, e := range t.entries {
		if e.Group == group {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns a copy of all semantic entries ordered by (group, binding).
func (t *BindingTable) Entries() []Binding {
	out := make([]Binding, len(t.entries))
	copy(out, t.entries)
	return out
}

// Untagged returns a copy of the untagged resources ordered by (group, binding).
func (t *BindingTable) Untagged() []UntaggedResource {
	out := make([]UntaggedResource, len(t.untagged))
	copy(out, t.untagged)
	return out
}

// Groups returns the distinct group indices used by tagged and untagged resources, ascending.
func (t *BindingTable) Groups() []int {
	seen := make(map[int]struct{})
	for _, e := range t.entries {
		seen[e.Group] = struct{}{}
	}
	for _, u := range t.untagged {
		seen[u.Group] = struct{}{}
	}
	return common.SortedKeys(seen)
}

// Len returns the number of semantic entries.
func (t *BindingTable) Len() int {
	return len(t.entries)
}

// MarshalJSON encodes the table as its ordered entry list.
func (t *BindingTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.entries)
}

// MarshalYAML encodes the table as its ordered entry list.
func (t *BindingTable) MarshalYAML() (any, error) {
	return t.entries, nil
}
