package wgsl

import "strings"

var closers = map[string]string{"(": ")", "[": "]", "{": "}"}

// MatchClose returns the index of the token closing the bracket at open, or -1 if the
// bracket is unbalanced. Only (), [] and {} are tracked; template lists are opaque.
//
// Parameters:
//   - toks: the token stream
//   - open: the index of an opening "(", "[" or "{"
//
// Returns:
//   - int: the index of the matching closer, or -1
func MatchClose(toks []Token, open int) int {
	if open < 0 || open >= len(toks) || toks[open].Kind != TokenPunct {
		return -1
	}
	if _, ok := closers[toks[open].Text]; !ok {
		return -1
	}
	var stack []string
	for i := open; i < len(toks); i++ {
		t := toks[i]
		if t.Kind != TokenPunct {
			continue
		}
		if c, ok := closers[t.Text]; ok {
			stack = append(stack, c)
			continue
		}
		switch t.Text {
		case ")", "]", "}":
			if len(stack) == 0 || stack[len(stack)-1] != t.Text {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// MatchTemplate returns the index of the '>' closing the template list opened at open,
// or -1 when toks[open] does not start a template list.
func MatchTemplate(toks []Token, open int) int {
	if !IsTemplateOpen(toks, open) {
		return -1
	}
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].Text {
		case "<":
			if toks[i].Kind == TokenPunct && (i == open || IsTemplateOpen(toks, i)) {
				depth++
			}
		case ">":
			if toks[i].Kind == TokenPunct {
				depth--
				if depth == 0 {
					return i
				}
			}
		case ";", "{", "}", "=":
			return -1
		}
	}
	return -1
}

// IsTemplateOpen reports whether the '<' at i opens a template list, i.e. it directly
// follows a type generator such as vec3, array or texture_2d, or the var keyword.
func IsTemplateOpen(toks []Token, i int) bool {
	if i <= 0 || i >= len(toks) || !toks[i].Is("<") {
		return false
	}
	prev := toks[i-1]
	return prev.IsIdent() && (prev.Text == "var" || IsTypeGenerator(prev.Text))
}

// SplitTopLevel splits the token range [lo, hi) at commas that are not nested inside
// brackets or template lists. A trailing comma does not produce an empty part.
//
// Parameters:
//   - toks: the token stream
//   - lo: the first token index of the range
//   - hi: one past the last token index of the range
//
// Returns:
//   - [][2]int: half-open token index ranges of each part
func SplitTopLevel(toks []Token, lo, hi int) [][2]int {
	var parts [][2]int
	depth := 0
	start := lo
	for i := lo; i < hi; i++ {
		t := toks[i]
		if t.Kind != TokenPunct {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case "<":
			if IsTemplateOpen(toks, i) {
				depth++
			}
		case ">":
			if depth > 0 && inTemplate(toks, lo, i) {
				depth--
			}
		case ",":
			if depth == 0 {
				parts = append(parts, [2]int{start, i})
				start = i + 1
			}
		}
	}
	if start < hi {
		parts = append(parts, [2]int{start, hi})
	}
	return parts
}

// inTemplate reports whether the '>' at i closes a template list opened after lo.
func inTemplate(toks []Token, lo, i int) bool {
	open := 0
	for j := lo; j < i; j++ {
		if toks[j].Is("<") && IsTemplateOpen(toks, j) {
			open++
		} else if toks[j].Is(">") && open > 0 {
			open--
		}
	}
	return open > 0
}

// Text returns the source text spanned by the token range [lo, hi), or "" for an empty range.
func Text(source string, toks []Token, lo, hi int) string {
	if lo >= hi {
		return ""
	}
	return source[toks[lo].Start:toks[hi-1].End]
}

// Compact returns the tokens of the range [lo, hi) joined without trivia, with single
// spaces between adjacent word tokens and after commas. It is used to normalize type names such as
// "vec3 < f32 >" to "vec3<f32>".
func Compact(toks []Token, lo, hi int) string {
	var sb strings.Builder
	for i := lo; i < hi; i++ {
		if i > lo && ((toks[i].Kind != TokenPunct && toks[i-1].Kind != TokenPunct) || toks[i-1].Is(",")) {
			sb.WriteByte(' ')
		}
		sb.WriteString(toks[i].Text)
	}
	return sb.String()
}

// IsSimple reports whether the token range [lo, hi) is a primary expression that can be
// spliced next to any operator without parentheses: an identifier, literal or
// parenthesized group followed only by member accesses, indexing and calls.
func IsSimple(toks []Token, lo, hi int) bool {
	if lo >= hi {
		return false
	}
	i := lo
	switch {
	case toks[i].Kind == TokenNumber:
		i++
	case toks[i].IsIdent():
		i++
		if i < hi && IsTemplateOpen(toks, i) {
			end := MatchTemplate(toks, i)
			if end < 0 || end >= hi {
				return false
			}
			i = end + 1
		}
	case toks[i].Is("("):
		end := MatchClose(toks, i)
		if end < 0 || end >= hi {
			return false
		}
		i = end + 1
	default:
		return false
	}
	for i < hi {
		switch {
		case toks[i].Is(".") && i+1 < hi && toks[i+1].IsIdent():
			i += 2
		case toks[i].Is("[") || toks[i].Is("("):
			end := MatchClose(toks, i)
			if end < 0 || end >= hi {
				return false
			}
			i = end + 1
		default:
			return false
		}
	}
	return true
}

// IsSimpleExpr tokenizes text and reports whether it is a primary expression as defined by IsSimple.
func IsSimpleExpr(text string) bool {
	toks := Tokenize(text)
	return IsSimple(toks, 0, len(toks))
}
