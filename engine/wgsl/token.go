// Package wgsl provides the comment-tolerant WGSL tokenizer shared by the tag scanner,
// the pure-function library parser and the call inliner. It does not model the WGSL
// grammar: it only produces identifiers, numbers and punctuation with their byte offsets,
// so that custom annotation islands can be found inside otherwise opaque shader text.
package wgsl

// TokenKind identifies the lexical class of a Token.
type TokenKind uint8

const (
	// TokenIdent is an identifier or keyword.
	TokenIdent TokenKind = iota

	// TokenNumber is an integer or float literal including any suffix.
	TokenNumber

	// TokenPunct is an operator or delimiter.
	TokenPunct
)

func (k TokenKind) String() string {
	switch k {
	case TokenIdent:
		return "identifier"
	case TokenNumber:
		return "number"
	case TokenPunct:
		return "punct"
	default:
		return "unknown"
	}
}

// Token is a single lexical token. Start and End are byte offsets into the tokenized
// source with End exclusive, so source[Start:End] == Text.
type Token struct {
	Kind  TokenKind
	Start int
	End   int
	Text  string
}

// Is reports whether the token is punctuation or an identifier with exactly the given text.
func (t Token) Is(text string) bool {
	return t.Kind != TokenNumber && t.Text == text
}

// IsIdent reports whether the token is an identifier.
func (t Token) IsIdent() bool {
	return t.Kind == TokenIdent
}
