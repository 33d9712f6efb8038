package transpiler

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/Carmen-Shannon/oxy-hll/engine/pure"
	"github.com/Carmen-Shannon/oxy-hll/engine/wgsl"
)

// safeBefore and safeAfter are the neighbours that let an inlined expression stand
// without parentheses.
var (
	safeBefore = map[string]bool{
		"=": true, "(": true, ",": true, "[": true, "return": true,
		"+=": true, "-=": true, "*=": true, "/=": true, "%=": true, "&=": true, "|=": true, "^=": true,
	}
	safeAfter = map[string]bool{";": true, ")": true, ",": true, "]": true}
)

// inliner rewrites the library calls of one stage source. Every statement that contains a
// call becomes a single edit against the original source, so edits never overlap and
// offsets found early stay valid. It is owned by one transpile call.
type inliner struct {
	lib    *pure.Library
	source string
	toks   []wgsl.Token

	// declared holds the functions, structs and aliases the stage declares itself.
	declared map[string]bool

	// taken holds every identifier of the stage plus the locals introduced so far.
	taken map[string]bool

	calls int
	edits []Edit
}

// inlineCalls resolves every library call in source against lib.
//
// Parameters:
//   - source: the stage source
//   - lib: the pure function registry
//
// Returns:
//   - []Edit: one replacement per rewritten statement, in source order
//   - int: the number of calls inlined
//   - error: UnknownFunction, ArityMismatch, TypeMismatch or InvalidDefinition
func inlineCalls(source string, lib *pure.Library) ([]Edit, int, error) {
	in := &inliner{
		lib:      lib,
		source:   source,
		toks:     wgsl.Tokenize(source),
		declared: make(map[string]bool),
		taken:    make(map[string]bool),
	}
	if err := in.run(); err != nil {
		return nil, 0, err
	}
	return in.edits, in.calls, nil
}

func (in *inliner) run() error {
	for i, t := range in.toks {
		if t.IsIdent() {
			in.taken[t.Text] = true
		}
		if !(t.Is("fn") || t.Is("struct") || t.Is("alias")) || i+1 >= len(in.toks) || !in.toks[i+1].IsIdent() {
			continue
		}
		name := in.toks[i+1]
		if _, ok := in.lib.Function(name.Text); ok {
			return common.NewError(common.ErrorKindInvalidDefinition, name.Start,
				"%s %s shadows the library function of the same name", t.Text, name.Text)
		}
		in.declared[name.Text] = true
	}

	depth, braces, start := 0, 0, 0
	for i, t := range in.toks {
		if t.Kind != wgsl.TokenPunct {
			continue
		}
		switch t.Text {
		case "(", "[":
			depth++
		case ")", "]":
			depth--
		case "{", "}":
			if err := in.statement(start, i, -1, braces); err != nil {
				return err
			}
			if t.Is("{") {
				braces++
			} else {
				braces--
			}
			start, depth = i+1, 0
		case ";":
			if depth == 0 {
				if err := in.statement(start, i, i, braces); err != nil {
					return err
				}
				start = i + 1
			}
		}
	}
	return in.statement(start, len(in.toks), -1, braces)
}

// statement rewrites the statement [lo, hi), terminated by the ';' at semi or by a brace
// when semi is -1. Locals of inlined bodies are hoisted in front of it.
func (in *inliner) statement(lo, hi, semi, braces int) error {
	if lo >= hi {
		return nil
	}
	var (
		prelude []string
		body    string
		err     error
		start   = in.toks[lo].Start
		end     = in.toks[hi-1].End
		sep     = in.separator(start)
	)

	if open, closing, call, ok := in.destructuring(lo, hi); ok && semi >= 0 {
		body, err = in.destructure(lo, open, closing, call, &prelude, sep)
		end = in.toks[semi].End
	} else if semi >= 0 && in.isLibraryCall(lo) && wgsl.MatchClose(in.toks, lo+1) == hi-1 {
		body, err = in.discard(lo, hi-1, &prelude)
		end = in.toks[semi].End
	} else {
		var changed bool
		body, changed, err = in.render(lo, hi, &prelude)
		if err == nil && !changed {
			return nil
		}
	}
	if err != nil {
		return err
	}

	if len(prelude) > 0 {
		switch first := in.toks[lo]; {
		case braces == 0:
			return common.NewError(common.ErrorKindInvalidDefinition, start,
				"library functions that declare locals cannot be called at module scope")
		case first.Is("else") || first.Is("for") || first.Is("while"):
			return common.NewError(common.ErrorKindInvalidDefinition, start,
				"locals of an inlined call cannot be hoisted out of a %s header", first.Text)
		}
	}

	lines := prelude
	if body != "" {
		lines = append(lines, body)
	}
	in.edits = append(in.edits, Edit{Start: start, End: end, Text: strings.Join(lines, sep)})
	return nil
}

// destructuring matches "let (a, b) = f(...)", "var (a, b) = f(...)" and
// "(x, y) = f(...)" where f is a library function spanning the rest of the statement.
func (in *inliner) destructuring(lo, hi int) (open, closing, call int, ok bool) {
	open = lo
	if in.toks[lo].Is("let") || in.toks[lo].Is("var") {
		open = lo + 1
	}
	if open >= hi || !in.toks[open].Is("(") {
		return 0, 0, 0, false
	}
	closing = wgsl.MatchClose(in.toks, open)
	if closing < 0 || closing+2 >= hi || !in.toks[closing+1].Is("=") {
		return 0, 0, 0, false
	}
	call = closing + 2
	if !in.isLibraryCall(call) || wgsl.MatchClose(in.toks, call+1) != hi-1 {
		return 0, 0, 0, false
	}
	return open, closing, call, true
}

// destructure expands a multi-target statement into one declaration or assignment per
// returned value.
func (in *inliner) destructure(lo, open, closing, call int, prelude *[]string, sep string) (string, error) {
	fn, _ := in.lib.Function(in.toks[call].Text)
	targets := wgsl.SplitTopLevel(in.toks, open+1, closing)
	if len(targets) != fn.Arity() {
		return "", common.NewError(common.ErrorKindArityMismatch, in.toks[call].Start,
			"%s returns %d value(s) but %d target(s) receive them", fn.Name, fn.Arity(), len(targets))
	}

	names := make([]string, len(targets))
	for k, t := range targets {
		text, _, err := in.render(t[0], t[1], prelude)
		if err != nil {
			return "", err
		}
		names[k] = text
	}
	exp, err := in.expand(call, wgsl.MatchClose(in.toks, call+1), fn, prelude)
	if err != nil {
		return "", err
	}

	decl := ""
	if open > lo {
		decl = in.toks[lo].Text + " "
	}
	lines := make([]string, len(names))
	for k, name := range names {
		lines[k] = decl + name + " = " + exp.Results[k] + ";"
	}
	return strings.Join(lines, sep), nil
}

// discard expands a call used as a statement of its own. Only functions without results
// may be called that way, and they leave nothing but their hoisted locals behind.
func (in *inliner) discard(call, closing int, prelude *[]string) (string, error) {
	fn, _ := in.lib.Function(in.toks[call].Text)
	if fn.Arity() != 0 {
		return "", common.NewError(common.ErrorKindArityMismatch, in.toks[call].Start,
			"%s returns %d value(s) but the call discards them", fn.Name, fn.Arity())
	}
	_, err := in.expand(call, closing, fn, prelude)
	return "", err
}

// render returns the text of [lo, hi) with every library call in expression position
// replaced by its single result. Calls to anything else are checked but left alone.
func (in *inliner) render(lo, hi int, prelude *[]string) (string, bool, error) {
	if lo >= hi {
		return "", false, nil
	}
	var sb strings.Builder
	changed := false
	cursor := in.toks[lo].Start
	for i := lo; i < hi; i++ {
		if !in.isCallName(i) {
			continue
		}
		closing := wgsl.MatchClose(in.toks, i+1)
		if closing < 0 || closing >= hi {
			return "", false, common.NewError(common.ErrorKindInvalidDefinition, in.toks[i].Start,
				"unbalanced argument list of %s", in.toks[i].Text)
		}
		fn, ok := in.lib.Function(in.toks[i].Text)
		if !ok {
			if err := in.checkCallee(i); err != nil {
				return "", false, err
			}
			continue
		}

		switch fn.Arity() {
		case 1:
		case 0:
			return "", false, common.NewError(common.ErrorKindArityMismatch, in.toks[i].Start,
				"%s returns nothing and cannot be used as a value", fn.Name)
		default:
			return "", false, common.NewError(common.ErrorKindArityMismatch, in.toks[i].Start,
				"%s returns %d values; bind them with let (a, b, ...) = %s(...)", fn.Name, fn.Arity(), fn.Name)
		}
		exp, err := in.expand(i, closing, fn, prelude)
		if err != nil {
			return "", false, err
		}
		result := exp.Results[0]
		if in.needsParens(lo, i, closing, hi) && !wgsl.IsSimpleExpr(result) {
			result = "(" + result + ")"
		}
		sb.WriteString(in.source[cursor:in.toks[i].Start])
		sb.WriteString(result)
		cursor = in.toks[closing].End
		i = closing
		changed = true
	}
	sb.WriteString(in.source[cursor:in.toks[hi-1].End])
	return sb.String(), changed, nil
}

// expand inlines the call whose name is at token i and whose argument list closes at
// closing. Locals of the body are renamed when they would collide and hoisted into prelude.
func (in *inliner) expand(i, closing int, fn *pure.Function, prelude *[]string) (pure.Expansion, error) {
	index := in.calls
	in.calls++

	args, err := in.arguments(i+1, closing, prelude)
	if err != nil {
		return pure.Expansion{}, err
	}
	exp, err := fn.Expand(args, in.renames(fn, index))
	if err != nil {
		if e, ok := common.AsError(err); ok && e.Offset < 0 {
			e.Offset = in.toks[i].Start
		}
		return pure.Expansion{}, err
	}
	*prelude = append(*prelude, exp.Prelude...)
	return exp, nil
}

// arguments splits the argument list between open and closing. A whole argument that
// constructs a library tuple becomes a tuple Arg whose fields are resolved positionally.
func (in *inliner) arguments(open, closing int, prelude *[]string) ([]pure.Arg, error) {
	parts := wgsl.SplitTopLevel(in.toks, open+1, closing)
	args := make([]pure.Arg, 0, len(parts))
	for _, part := range parts {
		lo, hi := part[0], part[1]
		arg := pure.Arg{Offset: in.toks[lo].Start}

		if in.isTupleConstructor(lo, hi) {
			arg.Tuple = in.toks[lo].Text
			arg.Text = wgsl.Text(in.source, in.toks, lo, hi)
			for _, field := range wgsl.SplitTopLevel(in.toks, lo+2, hi-1) {
				text, _, err := in.render(field[0], field[1], prelude)
				if err != nil {
					return nil, err
				}
				arg.Fields = append(arg.Fields, pure.Arg{Text: text, Offset: in.toks[field[0]].Start})
			}
			args = append(args, arg)
			continue
		}

		text, _, err := in.render(lo, hi, prelude)
		if err != nil {
			return nil, err
		}
		arg.Text = text
		args = append(args, arg)
	}
	return args, nil
}

// renames picks a name for every local of fn that is free in the stage, suffixing the
// call index when the plain name is taken.
func (in *inliner) renames(fn *pure.Function, index int) map[string]string {
	locals := fn.Locals()
	if len(locals) == 0 {
		return nil
	}
	out := make(map[string]string, len(locals))
	for _, l := range locals {
		name := l
		for n := 0; in.taken[name]; n++ {
			if n == 0 {
				name = fmt.Sprintf("%s_%d", l, index)
			} else {
				name = fmt.Sprintf("%s_%d_%d", l, index, n)
			}
		}
		in.taken[name] = true
		out[l] = name
	}
	return out
}

// checkCallee accepts calls of WGSL builtins, constructors and stage declarations.
func (in *inliner) checkCallee(i int) error {
	name := in.toks[i].Text
	if in.declared[name] || wgsl.IsPredeclared(name) {
		return nil
	}
	if _, ok := in.lib.Tuple(name); ok {
		return common.NewError(common.ErrorKindTypeMismatch, in.toks[i].Start,
			"tuple %s can only be constructed as an argument of a library function", name)
	}
	candidates := append(in.lib.FunctionNames(), common.SortedKeys(in.declared)...)
	return common.NewError(common.ErrorKindUnknownFunction, in.toks[i].Start,
		"unknown function %s", name).WithSuggestion(common.Suggest(name, candidates))
}

func (in *inliner) isCallName(i int) bool {
	t := in.toks[i]
	if !t.IsIdent() || wgsl.IsKeyword(t.Text) || i+1 >= len(in.toks) || !in.toks[i+1].Is("(") {
		return false
	}
	if i > 0 {
		prev := in.toks[i-1]
		if prev.Is(".") || prev.Is("@") || prev.Is("fn") {
			return false
		}
	}
	return true
}

func (in *inliner) isLibraryCall(i int) bool {
	if !in.isCallName(i) {
		return false
	}
	_, ok := in.lib.Function(in.toks[i].Text)
	return ok
}

func (in *inliner) isTupleConstructor(lo, hi int) bool {
	if hi-lo < 3 || !in.isCallName(lo) || in.declared[in.toks[lo].Text] {
		return false
	}
	if _, ok := in.lib.Tuple(in.toks[lo].Text); !ok {
		return false
	}
	return wgsl.MatchClose(in.toks, lo+1) == hi-1
}

// needsParens reports whether the call [i, closing] sits between neighbours that could
// bind tighter than an arbitrary expression.
func (in *inliner) needsParens(lo, i, closing, hi int) bool {
	before := i == lo || safeBefore[in.toks[i-1].Text]
	after := closing+1 >= hi || safeAfter[in.toks[closing+1].Text]
	return !before || !after
}

// separator returns what goes between hoisted statements: a newline plus the statement's
// indentation when it starts its line, a space otherwise.
func (in *inliner) separator(offset int) string {
	lineStart := strings.LastIndexByte(in.source[:offset], '\n') + 1
	indent := in.source[lineStart:offset]
	if strings.TrimLeft(indent, " \t") != "" {
		return " "
	}
	return "\n" + indent
}
