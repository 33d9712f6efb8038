package shader

import (
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/Carmen-Shannon/oxy-hll/engine/wgsl"
)

const (
	attrTag       = "tag"
	attrAttribute = "attribute"
	attrGroup     = "group"
	attrBinding   = "binding"
	attrLocation  = "location"
	attrBuiltin   = "builtin"
)

// TagKind distinguishes the two custom annotation forms.
type TagKind int

const (
	// TagSemantic is @tag(name) on a resource declaration.
	TagSemantic TagKind = iota

	// TagAttribute is @attribute=NAME on a vertex input field.
	TagAttribute
)

func (k TagKind) String() string {
	if k == TagAttribute {
		return "attribute"
	}
	return "semantic"
}

// Span is a half-open byte range [Start, End) of stage source.
type Span struct {
	Start int
	End   int
}

// Target is the declaration an annotation run is attached to.
type Target struct {
	// Name is the variable or field name.
	Name string

	// Type is the declared type with whitespace normalized, e.g. "vec3<f32>".
	Type string

	// AddressSpace is the var template list, e.g. "uniform". Empty for fields and handle types.
	AddressSpace string

	// IsVar is true for module-scope var declarations and false for struct fields.
	IsVar bool

	// Offset is the byte offset of the declaration's first token after its attributes.
	Offset int
}

// Tag is one custom annotation found by Scan.
type Tag struct {
	Kind TagKind

	// Name is the semantic name for TagSemantic and the attribute name for TagAttribute.
	Name string

	Target Target

	// Group and Binding come from the adjacent native directives of a TagSemantic.
	Group   int
	Binding int

	// Location comes from the adjacent @location of a TagAttribute.
	Location int

	// Marker is the byte range of the annotation itself, which the emitter excises.
	Marker Span
}

// ScanResult is everything the tag scanner found in one stage, in source order.
type ScanResult struct {
	Tags      []Tag
	Resources []Resource
}

// SemanticTags returns the TagSemantic entries in source order.
func (r *ScanResult) SemanticTags() []Tag {
	return r.filter(TagSemantic)
}

// AttributeTags returns the TagAttribute entries in source order.
func (r *ScanResult) AttributeTags() []Tag {
	return r.filter(TagAttribute)
}

// Markers returns the byte ranges of every annotation marker in source order.
func (r *ScanResult) Markers() []Span {
	spans := make([]Span, len(r.Tags))
	for i, t := range r.Tags {
		spans[i] = t.Marker
	}
	return spans
}

func (r *ScanResult) filter(kind TagKind) []Tag {
	var out []Tag
	for _, t := range r.Tags {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// attribute is one "@name", "@name(args)" or "@attribute=VALUE" within an attribute run.
type attribute struct {
	name  string
	args  [][2]int
	value int
	start int
	end   int
}

// Scan finds every @tag and @attribute= annotation in one stage's source together with
// the declaration each one annotates, plus every native @group/@binding declaration.
// Comments and all other source text are skipped without interpretation.
//
// Parameters:
//   - source: the annotated stage source
//   - stage: the stage the source belongs to
//
// Returns:
//   - *ScanResult: tags and resources in source order
//   - error: a *common.Error of kind MalformedTag or TypeMismatch, with a byte offset into source
func Scan(source string, stage StageKind) (*ScanResult, error) {
	toks := wgsl.Tokenize(source)
	res := &ScanResult{}
	for i := 0; i < len(toks); {
		if !toks[i].Is("@") {
			i++
			continue
		}
		run, next, err := scanAttributeRun(toks, i)
		if err != nil {
			return nil, err
		}
		if len(run) == 0 {
			i++
			continue
		}
		if err := res.collect(toks, run, next, stage); err != nil {
			return nil, err
		}
		i = next
	}
	return res, nil
}

// scanAttributeRun reads consecutive attributes starting at the '@' at i.
// It returns the attributes and the index of the first token after the run.
func scanAttributeRun(toks []wgsl.Token, i int) ([]attribute, int, error) {
	var run []attribute
	for i < len(toks) && toks[i].Is("@") {
		if i+1 >= len(toks) || !toks[i+1].IsIdent() {
			break
		}
		a := attribute{name: toks[i+1].Text, value: -1, start: i}
		j := i + 2
		switch {
		case a.name == attrAttribute:
			if j+1 >= len(toks) || !toks[j].Is("=") || !toks[j+1].IsIdent() {
				return nil, 0, common.NewError(common.ErrorKindMalformedTag, toks[i].Start,
					"@attribute must be written as @attribute=NAME")
			}
			a.value = j + 1
			j += 2
		case j < len(toks) && toks[j].Is("("):
			closing := wgsl.MatchClose(toks, j)
			if closing < 0 {
				return nil, 0, common.NewError(common.ErrorKindMalformedTag, toks[i].Start,
					"unbalanced parentheses in @%s", a.name)
			}
			a.args = wgsl.SplitTopLevel(toks, j+1, closing)
			j = closing + 1
		case a.name == attrTag:
			return nil, 0, common.NewError(common.ErrorKindMalformedTag, toks[i].Start,
				"@tag expects a semantic name in parentheses")
		}
		a.end = j
		run = append(run, a)
		i = j
	}
	return run, i, nil
}

// collect validates one attribute run and records the tags and resources it declares.
func (r *ScanResult) collect(toks []wgsl.Token, run []attribute, next int, stage StageKind) error {
	var tag, attr, group, binding, location *attribute
	for idx := range run {
		a := &run[idx]
		var slot **attribute
		switch a.name {
		case attrTag:
			slot = &tag
		case attrAttribute:
			slot = &attr
		case attrGroup:
			slot = &group
		case attrBinding:
			slot = &binding
		case attrLocation:
			slot = &location
		default:
			continue
		}
		if *slot != nil && (a.name == attrTag || a.name == attrAttribute) {
			return common.NewError(common.ErrorKindMalformedTag, toks[a.start].Start,
				"declaration carries more than one @%s", a.name)
		}
		*slot = a
	}
	if tag == nil && attr == nil && (group == nil || binding == nil) {
		return nil
	}

	target, ok := parseTarget(toks, next)
	start := toks[run[0].start].Start

	switch {
	case tag != nil && attr != nil:
		return common.NewError(common.ErrorKindMalformedTag, toks[attr.start].Start,
			"@tag and @attribute= cannot annotate the same declaration")

	case tag != nil:
		if len(tag.args) != 1 || tag.args[0][1]-tag.args[0][0] != 1 || !toks[tag.args[0][0]].IsIdent() {
			return common.NewError(common.ErrorKindMalformedTag, toks[tag.start].Start,
				"@tag expects a single identifier")
		}
		name := toks[tag.args[0][0]].Text
		if group == nil || binding == nil {
			return common.NewError(common.ErrorKindMalformedTag, toks[tag.start].Start,
				"@tag(%s) requires both @group and @binding on the same declaration", name)
		}
		g, err := intArg(toks, group)
		if err != nil {
			return err
		}
		b, err := intArg(toks, binding)
		if err != nil {
			return err
		}
		if !ok || !target.IsVar {
			return common.NewError(common.ErrorKindMalformedTag, toks[tag.start].Start,
				"@tag(%s) must annotate a var declaration", name)
		}
		kind := ClassifyResource(target.AddressSpace, target.Type)
		if kind == ResourceUnknown {
			return common.NewError(common.ErrorKindTypeMismatch, target.Offset,
				"@tag(%s) annotates %s of type %s, which is not a bindable resource", name, target.Name, target.Type)
		}
		r.Tags = append(r.Tags, Tag{
			Kind:    TagSemantic,
			Name:    name,
			Target:  target,
			Group:   g,
			Binding: b,
			Marker:  Span{Start: toks[tag.start].Start, End: toks[tag.end-1].End},
		})
		r.Resources = append(r.Resources, Resource{
			Group:        g,
			Binding:      b,
			Variable:     target.Name,
			Type:         target.Type,
			AddressSpace: target.AddressSpace,
			Kind:         kind,
			Semantic:     name,
			Offset:       start,
		})

	case attr != nil:
		name := toks[attr.value].Text
		if stage != StageVertex {
			return common.NewError(common.ErrorKindMalformedTag, toks[attr.start].Start,
				"@attribute=%s is only valid in the vertex stage", name)
		}
		if location == nil {
			return common.NewError(common.ErrorKindMalformedTag, toks[attr.start].Start,
				"@attribute=%s requires a @location on the same field", name)
		}
		loc, err := intArg(toks, location)
		if err != nil {
			return err
		}
		if !ok || target.IsVar {
			return common.NewError(common.ErrorKindMalformedTag, toks[attr.start].Start,
				"@attribute=%s must annotate a struct field", name)
		}
		r.Tags = append(r.Tags, Tag{
			Kind:     TagAttribute,
			Name:     name,
			Target:   target,
			Location: loc,
			Marker:   Span{Start: toks[attr.start].Start, End: toks[attr.end-1].End},
		})

	default:
		if !ok || !target.IsVar {
			return nil
		}
		g, gerr := intArg(toks, group)
		b, berr := intArg(toks, binding)
		if gerr != nil || berr != nil {
			return nil
		}
		r.Resources = append(r.Resources, Resource{
			Group:        g,
			Binding:      b,
			Variable:     target.Name,
			Type:         target.Type,
			AddressSpace: target.AddressSpace,
			Kind:         ClassifyResource(target.AddressSpace, target.Type),
			Offset:       start,
		})
	}
	return nil
}

// intArg reads the single integer literal argument of a native directive such as @group(1).
func intArg(toks []wgsl.Token, a *attribute) (int, error) {
	if len(a.args) == 1 && a.args[0][1]-a.args[0][0] == 1 {
		t := toks[a.args[0][0]]
		if t.Kind == wgsl.TokenNumber {
			if v, err := strconv.ParseInt(strings.TrimRight(t.Text, "iu"), 0, 32); err == nil && v >= 0 {
				return int(v), nil
			}
		}
	}
	return 0, common.NewError(common.ErrorKindMalformedTag, toks[a.start].Start,
		"@%s expects a non-negative integer literal", a.name)
}

// parseTarget reads the declaration starting at token j: either
// "var<space> name: type" or "name: type" as found in struct bodies and parameter lists.
func parseTarget(toks []wgsl.Token, j int) (Target, bool) {
	if j >= len(toks) {
		return Target{}, false
	}

	if toks[j].Is("var") {
		t := Target{IsVar: true, Offset: toks[j].Start}
		k := j + 1
		if k < len(toks) && toks[k].Is("<") {
			end := wgsl.MatchTemplate(toks, k)
			if end < 0 {
				return Target{}, false
			}
			t.AddressSpace = wgsl.Compact(toks, k+1, end)
			k = end + 1
		}
		if k+1 >= len(toks) || !toks[k].IsIdent() || !toks[k+1].Is(":") {
			return Target{}, false
		}
		t.Name = toks[k].Text
		end := k + 2
		for end < len(toks) && !toks[end].Is(";") && !toks[end].Is("=") {
			end++
		}
		t.Type = wgsl.Compact(toks, k+2, end)
		return t, t.Type != ""
	}

	if j+1 >= len(toks) || !toks[j].IsIdent() || wgsl.IsKeyword(toks[j].Text) || !toks[j+1].Is(":") {
		return Target{}, false
	}
	end := typeEnd(toks, j+2)
	t := Target{Name: toks[j].Text, Type: wgsl.Compact(toks, j+2, end), Offset: toks[j].Start}
	return t, t.Type != ""
}

// typeEnd returns the index of the token ending a field or parameter type that starts at k.
func typeEnd(toks []wgsl.Token, k int) int {
	depth := 0
	for ; k < len(toks); k++ {
		t := toks[k]
		if t.Kind != wgsl.TokenPunct {
			continue
		}
		switch t.Text {
		case "(", "[":
			depth++
		case "<":
			if wgsl.IsTemplateOpen(toks, k) {
				depth++
			}
		case ">", "]":
			if depth > 0 {
				depth--
			}
		case ")":
			if depth == 0 {
				return k
			}
			depth--
		case ",", "}", ";", "{", "@":
			if depth == 0 {
				return k
			}
		}
	}
	return k
}
