package pure

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/Carmen-Shannon/oxy-hll/engine/wgsl"
)

type segmentKind uint8

const (
	// segmentText is copied verbatim.
	segmentText segmentKind = iota

	// segmentParam is a reference to a non-tuple parameter.
	segmentParam

	// segmentField is param.field on a tuple parameter.
	segmentField

	// segmentLocal is a reference to a name the body declares.
	segmentLocal
)

type segment struct {
	kind  segmentKind
	text  string
	param int
	field int
	local int
}

// template is a body fragment parameterized over parameter, field and local slots.
// Rendering always builds a fresh string, so call sites never share state.
type template []segment

// Arg is the actual argument expression of one call site parameter.
type Arg struct {
	// Text is the argument expression as written at the call site.
	Text string

	// Offset is the byte offset of the argument in the stage source.
	Offset int

	// Tuple names the tuple type when the argument is a constructor such as
	// model_view_projection_t(mdl_m, ivw_m, prj_m). Empty for any other expression.
	Tuple string

	// Fields are the constructor's positional arguments when Tuple is set.
	Fields []Arg
}

// Expansion is the inlined form of one call.
type Expansion struct {
	// Prelude holds the body statements that precede the return, with locals renamed.
	Prelude []string

	// Results holds one expression per returned value.
	Results []string
}

// Expand validates a call's arguments against the parameter list and renders a fresh copy
// of the body with every parameter reference replaced by its argument expression.
//
// Parameters:
//   - args: the call site's arguments in order
//   - locals: replacement names for body locals; missing entries keep their name
//
// Returns:
//   - Expansion: the rendered prelude statements and result expressions
//   - error: ArityMismatch for a wrong argument count, TypeMismatch for an incompatible tuple argument
func (f *Function) Expand(args []Arg, locals map[string]string) (Expansion, error) {
	if len(args) != len(f.Params) {
		return Expansion{}, common.NewError(common.ErrorKindArityMismatch, -1,
			"%s takes %d argument(s) but is called with %d", f.Name, len(f.Params), len(args))
	}
	for i, p := range f.Params {
		if err := f.checkArg(p, args[i]); err != nil {
			return Expansion{}, err
		}
	}

	names := make([]string, len(f.locals))
	for i, l := range f.locals {
		names[i] = common.Coalesce(locals[l], l)
	}

	exp := Expansion{
		Prelude: make([]string, len(f.prelude)),
		Results: make([]string, len(f.results)),
	}
	for i, t := range f.prelude {
		exp.Prelude[i] = t.render(f, args, names)
	}
	for i, t := range f.results {
		exp.Results[i] = strings.TrimSpace(t.render(f, args, names))
	}
	return exp, nil
}

func (f *Function) checkArg(p Param, a Arg) error {
	switch {
	case p.Tuple == nil && a.Tuple != "":
		return common.NewError(common.ErrorKindTypeMismatch, a.Offset,
			"parameter %s of %s is %s but receives a %s", p.Name, f.Name, p.Type, a.Tuple)
	case p.Tuple != nil && a.Tuple != "" && a.Tuple != p.Tuple.Name:
		return common.NewError(common.ErrorKindTypeMismatch, a.Offset,
			"parameter %s of %s is %s but receives a %s", p.Name, f.Name, p.Tuple.Name, a.Tuple)
	case p.Tuple != nil && a.Tuple != "" && len(a.Fields) != len(p.Tuple.Fields):
		return common.NewError(common.ErrorKindTypeMismatch, a.Offset,
			"%s has %d fields but is constructed with %d", p.Tuple.Name, len(p.Tuple.Fields), len(a.Fields))
	}
	return nil
}

func (t template) render(f *Function, args []Arg, locals []string) string {
	var sb strings.Builder
	for _, s := range t {
		switch s.kind {
		case segmentText:
			sb.WriteString(s.text)
		case segmentParam:
			sb.WriteString(operand(args[s.param].Text))
		case segmentField:
			a := args[s.param]
			if a.Tuple != "" {
				sb.WriteString(operand(a.Fields[s.field].Text))
				continue
			}
			sb.WriteString(operand(a.Text))
			sb.WriteByte('.')
			sb.WriteString(f.Params[s.param].Tuple.Fields[s.field].Name)
		case segmentLocal:
			sb.WriteString(locals[s.local])
		}
	}
	return sb.String()
}

// operand parenthesizes expr unless it is already a primary expression.
func operand(expr string) string {
	expr = strings.TrimSpace(expr)
	if wgsl.IsSimpleExpr(expr) {
		return expr
	}
	return "(" + expr + ")"
}
