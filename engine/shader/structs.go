package shader

import (
	"github.com/Carmen-Shannon/oxy-hll/engine/wgsl"
)

// StructField is one member of a WGSL struct.
type StructField struct {
	Name string
	Type string

	// Location is the @location index, or -1 when the field has none.
	Location int

	// Builtin is true for @builtin(...) fields.
	Builtin bool
}

// Struct is a WGSL struct declaration.
type Struct struct {
	Name   string
	Fields []StructField
	Offset int
}

// IsVertexInput reports whether the struct is a pure vertex input: at least one
// @location field and no @builtin fields. Vertex outputs mix @location with
// @builtin(position) and are excluded.
func (s Struct) IsVertexInput() bool {
	hasLocation := false
	for _, f := range s.Fields {
		if f.Builtin {
			return false
		}
		if f.Location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

// ParseStructs finds every struct declaration in source and parses its fields, including
// their @location and @builtin attributes. Annotation markers are tolerated and ignored.
//
// Parameters:
//   - source: WGSL source, annotated or not
//
// Returns:
//   - []Struct: the structs in source order
func ParseStructs(source string) []Struct {
	toks := wgsl.Tokenize(source)
	var structs []Struct
	for i := 0; i+2 < len(toks); i++ {
		if !toks[i].Is("struct") || !toks[i+1].IsIdent() || !toks[i+2].Is("{") {
			continue
		}
		closing := wgsl.MatchClose(toks, i+2)
		if closing < 0 {
			break
		}
		s := Struct{Name: toks[i+1].Text, Offset: toks[i].Start}
		for _, part := range wgsl.SplitTopLevel(toks, i+3, closing) {
			if f, ok := parseStructField(toks, part[0], part[1]); ok {
				s.Fields = append(s.Fields, f)
			}
		}
		structs = append(structs, s)
		i = closing
	}
	return structs
}

func parseStructField(toks []wgsl.Token, lo, hi int) (StructField, bool) {
	f := StructField{Location: -1}
	run, next, err := scanAttributeRun(toks[:hi], lo)
	if err != nil {
		return f, false
	}
	for idx := range run {
		switch run[idx].name {
		case attrBuiltin:
			f.Builtin = true
		case attrLocation:
			if loc, err := intArg(toks, &run[idx]); err == nil {
				f.Location = loc
			}
		}
	}
	if next+1 >= hi || !toks[next].IsIdent() || !toks[next+1].Is(":") {
		return f, false
	}
	f.Name = toks[next].Text
	f.Type = wgsl.Compact(toks, next+2, hi)
	return f, f.Type != ""
}
