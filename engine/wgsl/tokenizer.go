package wgsl

import (
	"unicode"
	"unicode/utf8"
)

// multiCharOps lists the operators the tokenizer keeps as one token. The template
// delimiters '<' and '>' are never merged with each other so that nested template
// lists such as array<vec4<f32>> close one level per token.
var multiCharOps = []string{
	"->", "==", "!=", "<=", ">=", "&&", "||", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
}

// Tokenize splits WGSL source into tokens, skipping whitespace, line comments and
// nested block comments. It never fails: unknown bytes become single-byte punctuation
// and an unterminated block comment swallows the rest of the input.
//
// Parameters:
//   - source: the WGSL text to tokenize
//
// Returns:
//   - []Token: the tokens in source order
func Tokenize(source string) []Token {
	toks := make([]Token, 0, len(source)/4)
	pos := 0
	for {
		pos = skipTrivia(source, pos)
		if pos >= len(source) {
			return toks
		}

		start := pos
		ch := source[pos]
		switch {
		case isIdentStart(source, pos):
			pos = scanIdent(source, pos)
			toks = append(toks, Token{Kind: TokenIdent, Start: start, End: pos, Text: source[start:pos]})
		case isDigit(ch) || (ch == '.' && pos+1 < len(source) && isDigit(source[pos+1])):
			pos = scanNumber(source, pos)
			toks = append(toks, Token{Kind: TokenNumber, Start: start, End: pos, Text: source[start:pos]})
		default:
			pos = scanPunct(source, pos)
			toks = append(toks, Token{Kind: TokenPunct, Start: start, End: pos, Text: source[start:pos]})
		}
	}
}

// Comments returns the byte ranges [start, end) of every line comment and outermost
// block comment in source. A line comment ends before its newline.
func Comments(source string) [][2]int {
	var spans [][2]int
	pos := 0
	for pos < len(source) {
		if end := skipComment(source, pos); end > pos {
			spans = append(spans, [2]int{pos, end})
			pos = end
			continue
		}
		pos++
	}
	return spans
}

// skipTrivia advances past whitespace and comments starting at pos.
func skipTrivia(source string, pos int) int {
	for pos < len(source) {
		ch := source[pos]
		if ch == ' ' || ch == '\n' || ch == '\t' || ch == '\r' || ch == '\v' || ch == '\f' {
			pos++
			continue
		}
		end := skipComment(source, pos)
		if end == pos {
			return pos
		}
		pos = end
	}
	return pos
}

// skipComment returns the end of the comment starting at pos, or pos when none starts there.
func skipComment(source string, pos int) int {
	if pos+1 >= len(source) || source[pos] != '/' {
		return pos
	}
	switch source[pos+1] {
	case '/':
		for pos < len(source) && source[pos] != '\n' {
			pos++
		}
	case '*':
		pos += 2
		depth := 1
		for pos < len(source) && depth > 0 {
			if pos+1 < len(source) && source[pos] == '/' && source[pos+1] == '*' {
				depth++
				pos += 2
			} else if pos+1 < len(source) && source[pos] == '*' && source[pos+1] == '/' {
				depth--
				pos += 2
			} else {
				pos++
			}
		}
	}
	return pos
}

func scanIdent(source string, pos int) int {
	for pos < len(source) {
		ch := source[pos]
		if ch < utf8.RuneSelf {
			if ch == '_' || isDigit(ch) || (ch|0x20 >= 'a' && ch|0x20 <= 'z') {
				pos++
				continue
			}
			return pos
		}
		r, size := utf8.DecodeRuneInString(source[pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r) {
			return pos
		}
		pos += size
	}
	return pos
}

func scanNumber(source string, pos int) int {
	if pos+1 < len(source) && source[pos] == '0' && (source[pos+1] == 'x' || source[pos+1] == 'X') {
		pos += 2
		for pos < len(source) && (isHexDigit(source[pos]) || source[pos] == '.') {
			pos++
		}
		if pos < len(source) && (source[pos] == 'p' || source[pos] == 'P') {
			pos = scanExponent(source, pos+1)
		}
		return scanSuffix(source, pos)
	}

	for pos < len(source) && isDigit(source[pos]) {
		pos++
	}
	if pos < len(source) && source[pos] == '.' {
		pos++
		for pos < len(source) && isDigit(source[pos]) {
			pos++
		}
	}
	if pos < len(source) && (source[pos] == 'e' || source[pos] == 'E') {
		pos = scanExponent(source, pos+1)
	}
	return scanSuffix(source, pos)
}

func scanExponent(source string, pos int) int {
	if pos < len(source) && (source[pos] == '+' || source[pos] == '-') {
		pos++
	}
	for pos < len(source) && isDigit(source[pos]) {
		pos++
	}
	return pos
}

func scanSuffix(source string, pos int) int {
	if pos < len(source) {
		switch source[pos] {
		case 'i', 'u', 'f', 'h':
			return pos + 1
		}
	}
	return pos
}

func scanPunct(source string, pos int) int {
	for _, op := range multiCharOps {
		if len(source)-pos >= len(op) && source[pos:pos+len(op)] == op {
			return pos + len(op)
		}
	}
	_, size := utf8.DecodeRuneInString(source[pos:])
	return pos + size
}

func isIdentStart(source string, pos int) bool {
	ch := source[pos]
	if ch < utf8.RuneSelf {
		return ch == '_' || (ch|0x20 >= 'a' && ch|0x20 <= 'z')
	}
	r, _ := utf8.DecodeRuneInString(source[pos:])
	return unicode.IsLetter(r)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch|0x20 >= 'a' && ch|0x20 <= 'f')
}
