package pure

import (
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/Carmen-Shannon/oxy-hll/engine/wgsl"
)

// parser registers the declarations of one library source. Structs and constants are
// registered in a first pass so that functions may reference them regardless of order.
type parser struct {
	lib     *Library
	src     Source
	toks    []wgsl.Token
	fnNames map[string]bool
}

func parseSource(lib *Library, src Source) error {
	p := &parser{lib: lib, src: src, toks: wgsl.Tokenize(src.Text), fnNames: make(map[string]bool)}

	var fnStarts []int
	for i := 0; i < len(p.toks); {
		t := p.toks[i]
		var (
			next int
			err  error
		)
		switch {
		case t.Is(";"):
			next = i + 1
		case t.Is("struct"):
			next, err = p.parseTuple(i)
		case t.Is("const"):
			next, err = p.parseConst(i)
		case t.Is("fn"):
			fnStarts = append(fnStarts, i)
			next, err = p.skipFunction(i)
		default:
			err = p.errorf(common.ErrorKindInvalidDefinition, t.Start, "unexpected %q at library scope", t.Text)
		}
		if err != nil {
			return err
		}
		i = next
	}

	for _, i := range fnStarts {
		fn, err := p.parseFunction(i)
		if err != nil {
			return err
		}
		p.lib.functions[fn.Name] = fn
		p.lib.functionOrder = append(p.lib.functionOrder, fn.Name)
	}
	return nil
}

func (p *parser) errorf(kind common.ErrorKind, offset int, format string, args ...any) error {
	return libraryError(p.src, kind, offset, format, args...)
}

// declare checks that a library-scope name is new.
func (p *parser) declare(tok wgsl.Token) error {
	name := tok.Text
	_, tuple := p.lib.tuples[name]
	_, fn := p.lib.functions[name]
	_, constant := p.lib.constants[name]
	switch {
	case wgsl.IsPredeclared(name):
		return p.errorf(common.ErrorKindInvalidDefinition, tok.Start, "%s is a predeclared WGSL name", name)
	case tuple || fn || constant || p.fnNames[name]:
		return p.errorf(common.ErrorKindInvalidDefinition, tok.Start, "%s is already defined", name)
	}
	return nil
}

// parseTuple registers "struct NAME { field: type, ... }" starting at i.
func (p *parser) parseTuple(i int) (int, error) {
	if i+2 >= len(p.toks) || !p.toks[i+1].IsIdent() || !p.toks[i+2].Is("{") {
		return 0, p.errorf(common.ErrorKindInvalidDefinition, p.toks[i].Start, "malformed struct declaration")
	}
	nameTok := p.toks[i+1]
	if err := p.declare(nameTok); err != nil {
		return 0, err
	}
	closing := wgsl.MatchClose(p.toks, i+2)
	if closing < 0 {
		return 0, p.errorf(common.ErrorKindInvalidDefinition, p.toks[i+2].Start, "unterminated struct %s", nameTok.Text)
	}

	tuple := &TupleType{Name: nameTok.Text}
	for _, part := range wgsl.SplitTopLevel(p.toks, i+3, closing) {
		lo, hi := part[0], part[1]
		if hi-lo < 3 || !p.toks[lo].IsIdent() || !p.toks[lo+1].Is(":") {
			return 0, p.errorf(common.ErrorKindInvalidDefinition, p.toks[lo].Start,
				"tuple %s fields must be written as name: type", tuple.Name)
		}
		field := Field{Name: p.toks[lo].Text, Type: wgsl.Compact(p.toks, lo+2, hi)}
		if tuple.FieldIndex(field.Name) >= 0 {
			return 0, p.errorf(common.ErrorKindInvalidDefinition, p.toks[lo].Start,
				"tuple %s declares field %s twice", tuple.Name, field.Name)
		}
		tuple.Fields = append(tuple.Fields, field)
	}
	if len(tuple.Fields) == 0 {
		return 0, p.errorf(common.ErrorKindInvalidDefinition, nameTok.Start, "tuple %s has no fields", tuple.Name)
	}

	p.lib.tuples[tuple.Name] = tuple
	p.lib.tupleOrder = append(p.lib.tupleOrder, tuple.Name)
	return closing + 1, nil
}

// parseConst registers "const NAME [: type] = expr;" starting at i. References to the
// constant inside function bodies are replaced by its value.
func (p *parser) parseConst(i int) (int, error) {
	if i+1 >= len(p.toks) || !p.toks[i+1].IsIdent() {
		return 0, p.errorf(common.ErrorKindInvalidDefinition, p.toks[i].Start, "malformed const declaration")
	}
	nameTok := p.toks[i+1]
	if err := p.declare(nameTok); err != nil {
		return 0, err
	}
	eq, end := -1, i+2
	for ; end < len(p.toks) && !p.toks[end].Is(";"); end++ {
		if eq < 0 && p.toks[end].Is("=") {
			eq = end
		}
	}
	if eq < 0 || eq+1 >= end || end >= len(p.toks) {
		return 0, p.errorf(common.ErrorKindInvalidDefinition, nameTok.Start, "const %s needs a value and a trailing ';'", nameTok.Text)
	}
	for j := eq + 1; j < end; j++ {
		t := p.toks[j]
		if !t.IsIdent() || p.toks[j-1].Is(".") {
			continue
		}
		if _, ok := p.lib.constants[t.Text]; !ok && !wgsl.IsPredeclared(t.Text) {
			return 0, p.errorf(common.ErrorKindTypeMismatch, t.Start, "unresolved identifier %s in const %s", t.Text, nameTok.Text)
		}
	}
	p.lib.constants[nameTok.Text] = operand(p.substituteConstants(eq+1, end))
	return end + 1, nil
}

// substituteConstants renders the token range [lo, hi) with earlier constants replaced
// by their values.
func (p *parser) substituteConstants(lo, hi int) string {
	var sb strings.Builder
	cursor := p.toks[lo].Start
	for j := lo; j < hi; j++ {
		t := p.toks[j]
		if !t.IsIdent() || p.toks[j-1].Is(".") {
			continue
		}
		if v, ok := p.lib.constants[t.Text]; ok {
			sb.WriteString(p.src.Text[cursor:t.Start])
			sb.WriteString(v)
			cursor = t.End
		}
	}
	sb.WriteString(p.src.Text[cursor:p.toks[hi-1].End])
	return sb.String()
}

// skipFunction records a function name and returns the index after its body.
func (p *parser) skipFunction(i int) (int, error) {
	if i+1 >= len(p.toks) || !p.toks[i+1].IsIdent() {
		return 0, p.errorf(common.ErrorKindInvalidDefinition, p.toks[i].Start, "malformed fn declaration")
	}
	if err := p.declare(p.toks[i+1]); err != nil {
		return 0, err
	}
	p.fnNames[p.toks[i+1].Text] = true
	open := i + 2
	for open < len(p.toks) && !p.toks[open].Is("{") {
		open++
	}
	closing := wgsl.MatchClose(p.toks, open)
	if closing < 0 {
		return 0, p.errorf(common.ErrorKindInvalidDefinition, p.toks[i].Start, "fn %s has no balanced body", p.toks[i+1].Text)
	}
	return closing + 1, nil
}

// parseFunction parses "fn NAME(params) [-> results] { body }" starting at i.
func (p *parser) parseFunction(i int) (*Function, error) {
	nameTok := p.toks[i+1]
	fn := &Function{Name: nameTok.Text, Offset: p.toks[i].Start, Source: p.src.Name}

	if i+2 >= len(p.toks) || !p.toks[i+2].Is("(") {
		return nil, p.errorf(common.ErrorKindInvalidDefinition, nameTok.Start, "fn %s has no parameter list", fn.Name)
	}
	paramsEnd := wgsl.MatchClose(p.toks, i+2)
	if paramsEnd < 0 {
		return nil, p.errorf(common.ErrorKindInvalidDefinition, nameTok.Start, "fn %s has an unbalanced parameter list", fn.Name)
	}
	for _, part := range wgsl.SplitTopLevel(p.toks, i+3, paramsEnd) {
		lo, hi := part[0], part[1]
		if hi-lo < 3 || !p.toks[lo].IsIdent() || !p.toks[lo+1].Is(":") {
			return nil, p.errorf(common.ErrorKindInvalidDefinition, p.toks[lo].Start,
				"parameters of %s must be written as name: type", fn.Name)
		}
		param := Param{Name: p.toks[lo].Text, Type: wgsl.Compact(p.toks, lo+2, hi)}
		if fn.paramIndex(param.Name) >= 0 {
			return nil, p.errorf(common.ErrorKindInvalidDefinition, p.toks[lo].Start,
				"%s declares parameter %s twice", fn.Name, param.Name)
		}
		param.Tuple = p.lib.tuples[param.Type]
		fn.Params = append(fn.Params, param)
	}

	k := paramsEnd + 1
	if k < len(p.toks) && p.toks[k].Is("->") {
		k++
		if k < len(p.toks) && p.toks[k].Is("(") {
			resultsEnd := wgsl.MatchClose(p.toks, k)
			if resultsEnd < 0 {
				return nil, p.errorf(common.ErrorKindInvalidDefinition, p.toks[k].Start, "fn %s has an unbalanced result list", fn.Name)
			}
			for _, part := range wgsl.SplitTopLevel(p.toks, k+1, resultsEnd) {
				fn.Results = append(fn.Results, wgsl.Compact(p.toks, part[0], part[1]))
			}
			k = resultsEnd + 1
		} else {
			start := k
			for k < len(p.toks) && !p.toks[k].Is("{") {
				k++
			}
			fn.Results = append(fn.Results, wgsl.Compact(p.toks, start, k))
		}
		for _, r := range fn.Results {
			if _, ok := p.lib.tuples[r]; ok || r == "" {
				return nil, p.errorf(common.ErrorKindTypeMismatch, p.toks[paramsEnd].End,
					"fn %s cannot return %q; results must be plain WGSL types", fn.Name, r)
			}
		}
	}
	if k >= len(p.toks) || !p.toks[k].Is("{") {
		return nil, p.errorf(common.ErrorKindInvalidDefinition, nameTok.Start, "fn %s has no body", fn.Name)
	}
	bodyEnd := wgsl.MatchClose(p.toks, k)

	if err := p.parseBody(fn, k+1, bodyEnd); err != nil {
		return nil, err
	}
	return fn, nil
}

func (f *Function) paramIndex(name string) int {
	for i, p := range f.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// parseBody splits the body [lo, hi) into prelude statements and a final return, collects
// declared locals and builds the templates.
func (p *parser) parseBody(fn *Function, lo, hi int) error {
	if err := p.collectLocals(fn, lo, hi); err != nil {
		return err
	}

	stmts := splitStatements(p.toks, lo, hi)
	ret := -1
	for idx, st := range stmts {
		if p.toks[st[0]].Is("return") {
			ret = idx
		}
	}
	for j := lo; j < hi; j++ {
		if p.toks[j].Is("return") && (ret < 0 || j != stmts[ret][0]) {
			return p.errorf(common.ErrorKindTypeMismatch, p.toks[j].Start,
				"%s may only return once, as its final statement", fn.Name)
		}
	}

	preludeEnd := len(stmts)
	switch {
	case fn.Arity() == 0 && ret >= 0:
		return p.errorf(common.ErrorKindTypeMismatch, p.toks[stmts[ret][0]].Start,
			"%s declares no result but returns", fn.Name)
	case fn.Arity() > 0 && (ret < 0 || ret != len(stmts)-1):
		return p.errorf(common.ErrorKindTypeMismatch, fn.Offset,
			"%s declares %d result(s) and must end in a return", fn.Name, fn.Arity())
	case fn.Arity() > 0:
		preludeEnd = ret
	}

	for _, st := range stmts[:preludeEnd] {
		t, err := p.build(fn, st[0], st[1])
		if err != nil {
			return err
		}
		fn.prelude = append(fn.prelude, t)
	}
	if fn.Arity() == 0 {
		return nil
	}

	st := stmts[ret]
	elo, ehi := st[0]+1, st[1]
	if p.toks[ehi-1].Is(";") {
		ehi--
	}
	if elo >= ehi {
		return p.errorf(common.ErrorKindTypeMismatch, p.toks[st[0]].Start, "%s returns nothing", fn.Name)
	}
	parts := [][2]int{{elo, ehi}}
	if p.toks[elo].Is("(") && wgsl.MatchClose(p.toks, elo) == ehi-1 {
		if inner := wgsl.SplitTopLevel(p.toks, elo+1, ehi-1); len(inner) > 1 || fn.Arity() > 1 {
			parts = inner
		}
	}
	if len(parts) != fn.Arity() {
		return p.errorf(common.ErrorKindTypeMismatch, p.toks[st[0]].Start,
			"%s returns %d value(s) but declares %d", fn.Name, len(parts), fn.Arity())
	}
	for _, part := range parts {
		t, err := p.build(fn, part[0], part[1])
		if err != nil {
			return err
		}
		fn.results = append(fn.results, t)
	}
	return nil
}

// collectLocals records every let, var and const name the body declares.
func (p *parser) collectLocals(fn *Function, lo, hi int) error {
	for j := lo; j < hi; j++ {
		t := p.toks[j]
		if !(t.Is("let") || t.Is("var") || t.Is("const")) || (j > lo && p.toks[j-1].Is(".")) {
			continue
		}
		k := j + 1
		if t.Is("var") && k < hi && p.toks[k].Is("<") {
			end := wgsl.MatchTemplate(p.toks, k)
			if end < 0 {
				return p.errorf(common.ErrorKindInvalidDefinition, p.toks[k].Start, "malformed var declaration in %s", fn.Name)
			}
			k = end + 1
		}
		if k >= hi || !p.toks[k].IsIdent() {
			return p.errorf(common.ErrorKindInvalidDefinition, t.Start, "malformed %s declaration in %s", t.Text, fn.Name)
		}
		name := p.toks[k].Text
		if fn.paramIndex(name) >= 0 {
			return p.errorf(common.ErrorKindTypeMismatch, p.toks[k].Start, "local %s shadows a parameter of %s", name, fn.Name)
		}
		if !slices.Contains(fn.locals, name) {
			fn.locals = append(fn.locals, name)
		}
	}
	return nil
}

// build turns the token range [lo, hi) into a template, resolving every free identifier
// against the parameters, locals, library constants and WGSL's predeclared names.
func (p *parser) build(fn *Function, lo, hi int) (template, error) {
	var t template
	cursor := p.toks[lo].Start
	flush := func(upTo int) {
		if upTo > cursor {
			t = append(t, segment{kind: segmentText, text: p.src.Text[cursor:upTo]})
		}
	}

	for i := lo; i < hi; i++ {
		tok := p.toks[i]
		if !tok.IsIdent() || (i > 0 && (p.toks[i-1].Is(".") || p.toks[i-1].Is("@"))) {
			continue
		}
		name := tok.Text

		if pi := fn.paramIndex(name); pi >= 0 {
			param := fn.Params[pi]
			flush(tok.Start)
			if param.Tuple == nil {
				t = append(t, segment{kind: segmentParam, param: pi})
				cursor = tok.End
				continue
			}
			if i+2 >= hi || !p.toks[i+1].Is(".") || !p.toks[i+2].IsIdent() {
				return nil, p.errorf(common.ErrorKindTypeMismatch, tok.Start,
					"tuple parameter %s of %s must be accessed through a field", name, fn.Name)
			}
			fieldTok := p.toks[i+2]
			fi := param.Tuple.FieldIndex(fieldTok.Text)
			if fi < 0 {
				names := make([]string, len(param.Tuple.Fields))
				for n, f := range param.Tuple.Fields {
					names[n] = f.Name
				}
				return nil, libraryError(p.src, common.ErrorKindTypeMismatch, fieldTok.Start,
					"%s has no field %s", param.Tuple.Name, fieldTok.Text).WithSuggestion(common.Suggest(fieldTok.Text, names))
			}
			t = append(t, segment{kind: segmentField, param: pi, field: fi})
			cursor = fieldTok.End
			i += 2
			continue
		}

		if li := slices.Index(fn.locals, name); li >= 0 {
			flush(tok.Start)
			t = append(t, segment{kind: segmentLocal, local: li})
			cursor = tok.End
			continue
		}

		if value, ok := p.lib.constants[name]; ok {
			flush(tok.Start)
			t = append(t, segment{kind: segmentText, text: value})
			cursor = tok.End
			continue
		}

		if _, ok := p.lib.functions[name]; ok || p.fnNames[name] {
			return nil, p.errorf(common.ErrorKindTypeMismatch, tok.Start,
				"%s calls library function %s; library functions cannot call each other", fn.Name, name)
		}
		if wgsl.IsPredeclared(name) {
			continue
		}

		scope := make([]string, 0, len(fn.Params)+len(fn.locals))
		for _, prm := range fn.Params {
			scope = append(scope, prm.Name)
		}
		scope = append(scope, fn.locals...)
		return nil, libraryError(p.src, common.ErrorKindTypeMismatch, tok.Start,
			"unresolved identifier %s in %s", name, fn.Name).WithSuggestion(common.Suggest(name, scope))
	}
	flush(p.toks[hi-1].End)
	return t, nil
}

// splitStatements splits [lo, hi) into statements ending at a top-level ';' or at the '}'
// closing a top-level block that is not followed by else.
func splitStatements(toks []wgsl.Token, lo, hi int) [][2]int {
	var out [][2]int
	depth := 0
	start := lo
	for i := lo; i < hi; i++ {
		t := toks[i]
		if t.Kind != wgsl.TokenPunct {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]":
			depth--
		case "}":
			depth--
			if depth == 0 && !(i+1 < hi && toks[i+1].Is("else")) {
				out = append(out, [2]int{start, i + 1})
				start = i + 1
			}
		case ";":
			if depth == 0 {
				out = append(out, [2]int{start, i + 1})
				start = i + 1
			}
		}
	}
	if start < hi {
		out = append(out, [2]int{start, hi})
	}
	return out
}
