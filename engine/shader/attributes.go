package shader

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-hll/common"
)

// standardAttributes is the closed set of vertex semantics every Vocabulary starts from.
var standardAttributes = []string{
	"POSITION", "NORMAL", "TANGENT", "BITANGENT",
	"TEXCOORD_0", "TEXCOORD_1",
	"COLOR", "COLOR_0",
	"JOINTS", "JOINTS_0", "WEIGHTS", "WEIGHTS_0",
	"POSITION0", "POSITION1",
}

// Vocabulary is an immutable set of accepted @attribute= names.
type Vocabulary struct {
	names map[string]struct{}
}

// NewVocabulary creates a vocabulary holding the standard vertex semantics plus extra.
//
// Parameters:
//   - extra: additional attribute names accepted on top of the standard ones
//
// Returns:
//   - *Vocabulary: the vocabulary
func NewVocabulary(extra ...string) *Vocabulary {
	v := &Vocabulary{names: make(map[string]struct{}, len(standardAttributes)+len(extra))}
	for _, n := range standardAttributes {
		v.names[n] = struct{}{}
	}
	for _, n := range extra {
		if n != "" {
			v.names[n] = struct{}{}
		}
	}
	return v
}

// Contains reports whether name is an accepted attribute semantic.
func (v *Vocabulary) Contains(name string) bool {
	_, ok := v.names[name]
	return ok
}

// Names returns the accepted names in ascending order.
func (v *Vocabulary) Names() []string {
	return common.SortedKeys(v.names)
}

// VertexFormat is the vertex buffer format of a vertex input type.
type VertexFormat struct {
	// Name is the WebGPU vertex format name, e.g. "float32x3".
	Name string

	// Size is the byte size of one element.
	Size uint64
}

// vertexFormats maps WGSL vertex input types to their vertex buffer format.
var vertexFormats = map[string]VertexFormat{
	"f32":       {"float32", 4},
	"vec2f":     {"float32x2", 8},
	"vec2<f32>": {"float32x2", 8},
	"vec3f":     {"float32x3", 12},
	"vec3<f32>": {"float32x3", 12},
	"vec4f":     {"float32x4", 16},
	"vec4<f32>": {"float32x4", 16},
	"i32":       {"sint32", 4},
	"vec2i":     {"sint32x2", 8},
	"vec2<i32>": {"sint32x2", 8},
	"vec3i":     {"sint32x3", 12},
	"vec3<i32>": {"sint32x3", 12},
	"vec4i":     {"sint32x4", 16},
	"vec4<i32>": {"sint32x4", 16},
	"u32":       {"uint32", 4},
	"vec2u":     {"uint32x2", 8},
	"vec2<u32>": {"uint32x2", 8},
	"vec3u":     {"uint32x3", 12},
	"vec3<u32>": {"uint32x3", 12},
	"vec4u":     {"uint32x4", 16},
	"vec4<u32>": {"uint32x4", 16},
	"vec2h":     {"float16x2", 4},
	"vec2<f16>": {"float16x2", 4},
	"vec4h":     {"float16x4", 8},
	"vec4<f16>": {"float16x4", 8},
}

// LookupVertexFormat returns the vertex format of a WGSL type.
func LookupVertexFormat(typeName string) (VertexFormat, bool) {
	f, ok := vertexFormats[typeName]
	return f, ok
}

// VertexAttributeSlot is one validated vertex input.
type VertexAttributeSlot struct {
	Location  int    `json:"location" yaml:"location"`
	Attribute string `json:"attribute" yaml:"attribute"`
	Field     string `json:"field" yaml:"field"`
	Type      string `json:"type" yaml:"type"`
	Format    string `json:"format" yaml:"format"`
	Size      uint64 `json:"size" yaml:"size"`
}

// AttributeMapper validates attribute tags against a vocabulary.
type AttributeMapper struct {
	vocab *Vocabulary
}

// NewAttributeMapper creates a mapper over vocab, falling back to the standard
// vocabulary when vocab is nil.
func NewAttributeMapper(vocab *Vocabulary) *AttributeMapper {
	if vocab == nil {
		vocab = NewVocabulary()
	}
	return &AttributeMapper{vocab: vocab}
}

// Map validates the vertex stage's attribute tags and returns their slots ordered by
// ascending location. The slot count always equals the number of tags.
//
// Parameters:
//   - tags: the TagAttribute entries of the vertex stage in source order
//
// Returns:
//   - []VertexAttributeSlot: the slots ordered by location
//   - error: UnknownAttributeSemantic, DuplicateLocation, DuplicateAttribute or TypeMismatch
func (m *AttributeMapper) Map(tags []Tag) ([]VertexAttributeSlot, error) {
	slots := make([]VertexAttributeSlot, 0, len(tags))
	byLocation := make(map[int]string, len(tags))
	byAttribute := make(map[string]int, len(tags))

	for _, t := range tags {
		if t.Kind != TagAttribute {
			continue
		}
		if !m.vocab.Contains(t.Name) {
			return nil, common.NewError(common.ErrorKindUnknownAttributeSemantic, t.Marker.Start,
				"unknown attribute semantic %s on field %s", t.Name, t.Target.Name).
				WithSuggestion(common.Suggest(t.Name, m.vocab.Names()))
		}
		if other, ok := byLocation[t.Location]; ok {
			return nil, common.NewError(common.ErrorKindDuplicateLocation, t.Marker.Start,
				"location %d of %s is already used by %s", t.Location, t.Name, other)
		}
		if loc, ok := byAttribute[t.Name]; ok {
			return nil, common.NewError(common.ErrorKindDuplicateAttribute, t.Marker.Start,
				"attribute %s is already bound at location %d", t.Name, loc)
		}
		format, ok := LookupVertexFormat(t.Target.Type)
		if !ok {
			return nil, common.NewError(common.ErrorKindTypeMismatch, t.Target.Offset,
				"%s field %s has type %s, which has no vertex format", t.Name, t.Target.Name, t.Target.Type)
		}
		byLocation[t.Location] = t.Name
		byAttribute[t.Name] = t.Location
		slots = append(slots, VertexAttributeSlot{
			Location:  t.Location,
			Attribute: t.Name,
			Field:     t.Target.Name,
			Type:      t.Target.Type,
			Format:    format.Name,
			Size:      format.Size,
		})
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Location < slots[j].Location })
	return slots, nil
}
