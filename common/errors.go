package common

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a transpile failure. Every kind is a deterministic validation
// failure over static input, so callers never retry; they report and move on to the
// next program.
type ErrorKind int

const (
	// ErrorKindMalformedTag reports an annotation missing its required adjacent native directive.
	ErrorKindMalformedTag ErrorKind = iota + 1

	// ErrorKindBindingConflict reports one semantic name declared with inconsistent location or kind.
	ErrorKindBindingConflict

	// ErrorKindBindingCollision reports one physical (group, binding) claimed by two semantic names.
	ErrorKindBindingCollision

	// ErrorKindUnknownAttributeSemantic reports an @attribute= name outside the vocabulary.
	ErrorKindUnknownAttributeSemantic

	// ErrorKindDuplicateLocation reports two vertex inputs sharing one @location.
	ErrorKindDuplicateLocation

	// ErrorKindDuplicateAttribute reports two vertex inputs tagged with the same attribute semantic.
	ErrorKindDuplicateAttribute

	// ErrorKindUnknownFunction reports a call to a name that is neither a library function,
	// a builtin, nor declared in the stage.
	ErrorKindUnknownFunction

	// ErrorKindArityMismatch reports a call site whose argument or result count does not match.
	ErrorKindArityMismatch

	// ErrorKindTypeMismatch reports an argument, declared type or library body that does not
	// fit what is expected of it.
	ErrorKindTypeMismatch

	// ErrorKindInvalidDefinition reports a structurally invalid shader definition, stage or library source.
	ErrorKindInvalidDefinition

	// ErrorKindInvariantViolation reports an internal inconsistency caught while emitting.
	ErrorKindInvariantViolation
)

var (
	ErrMalformedTag             = errors.New("malformed tag")
	ErrBindingConflict          = errors.New("binding conflict")
	ErrBindingCollision         = errors.New("binding collision")
	ErrUnknownAttributeSemantic = errors.New("unknown attribute semantic")
	ErrDuplicateLocation        = errors.New("duplicate location")
	ErrDuplicateAttribute       = errors.New("duplicate attribute")
	ErrUnknownFunction          = errors.New("unknown function")
	ErrArityMismatch            = errors.New("arity mismatch")
	ErrTypeMismatch             = errors.New("type mismatch")
	ErrInvalidDefinition        = errors.New("invalid definition")
	ErrInvariantViolation       = errors.New("invariant violation")
)

var errorKindNames = map[ErrorKind]string{
	ErrorKindMalformedTag:             "MalformedTag",
	ErrorKindBindingConflict:          "BindingConflict",
	ErrorKindBindingCollision:         "BindingCollision",
	ErrorKindUnknownAttributeSemantic: "UnknownAttributeSemantic",
	ErrorKindDuplicateLocation:        "DuplicateLocation",
	ErrorKindDuplicateAttribute:       "DuplicateAttribute",
	ErrorKindUnknownFunction:          "UnknownFunction",
	ErrorKindArityMismatch:            "ArityMismatch",
	ErrorKindTypeMismatch:             "TypeMismatch",
	ErrorKindInvalidDefinition:        "InvalidDefinition",
	ErrorKindInvariantViolation:       "InvariantViolation",
}

var errorKindSentinels = map[ErrorKind]error{
	ErrorKindMalformedTag:             ErrMalformedTag,
	ErrorKindBindingConflict:          ErrBindingConflict,
	ErrorKindBindingCollision:         ErrBindingCollision,
	ErrorKindUnknownAttributeSemantic: ErrUnknownAttributeSemantic,
	ErrorKindDuplicateLocation:        ErrDuplicateLocation,
	ErrorKindDuplicateAttribute:       ErrDuplicateAttribute,
	ErrorKindUnknownFunction:          ErrUnknownFunction,
	ErrorKindArityMismatch:            ErrArityMismatch,
	ErrorKindTypeMismatch:             ErrTypeMismatch,
	ErrorKindInvalidDefinition:        ErrInvalidDefinition,
	ErrorKindInvariantViolation:       ErrInvariantViolation,
}

// String returns the taxonomy name of the kind, e.g. "BindingCollision".
func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Sentinel returns the exported sentinel error matching the kind, or nil for an unknown kind.
func (k ErrorKind) Sentinel() error {
	return errorKindSentinels[k]
}

// Error is the typed failure returned by every stage of the transpiler. Lower layers only
// know the byte offset inside the text they were handed; the transpiler stamps the program,
// the stage and the derived line and column before the error reaches the caller.
type Error struct {
	// Kind is the taxonomy entry of the failure.
	Kind ErrorKind

	// Program is the name of the shader program being transpiled, empty for library errors.
	Program string

	// Stage is "vertex", "fragment", "library" or "definition".
	Stage string

	// Offset is the byte offset of the offending text within the stage source.
	Offset int

	// Line and Column are 1-based and derived from Offset. Zero when no source was attached.
	Line   int
	Column int

	// Message describes the failure without location information.
	Message string

	// Suggestion is an optional close match for a misspelled name.
	Suggestion string
}

// NewError creates an Error of the given kind at a byte offset.
//
// Parameters:
//   - kind: the taxonomy entry of the failure
//   - offset: the byte offset of the offending text, or -1 when there is none
//   - format: a fmt format string for the message
//   - args: the format arguments
//
// Returns:
//   - *Error: the new error, not yet stamped with a program or stage
func NewError(kind ErrorKind, offset int, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Offset:  offset,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithSuggestion returns the error with its suggestion set. An empty suggestion is a no-op.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// At returns a copy of the error stamped with the program and stage names, with Line and
// Column derived from Offset within source. An already stamped field is left untouched so
// that errors raised against library source keep pointing there.
//
// Parameters:
//   - program: the program name
//   - stage: the stage name
//   - source: the text Offset refers to
//
// Returns:
//   - *Error: the stamped copy
func (e *Error) At(program, stage, source string) *Error {
	c := *e
	if c.Program == "" {
		c.Program = program
	}
	if c.Stage == "" {
		c.Stage = stage
		if c.Offset >= 0 {
			c.Line, c.Column = Locate(source, c.Offset)
		}
	}
	return &c
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Program != "" {
		sb.WriteString(e.Program)
	}
	if e.Stage != "" {
		if sb.Len() > 0 {
			sb.WriteByte('/')
		}
		sb.WriteString(e.Stage)
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, ":%d:%d", e.Line, e.Column)
	} else if e.Offset >= 0 && sb.Len() > 0 {
		fmt.Fprintf(&sb, "@%d", e.Offset)
	}
	if sb.Len() > 0 {
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.String())
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Suggestion != "" {
		fmt.Fprintf(&sb, " (did you mean %q?)", e.Suggestion)
	}
	return sb.String()
}

// Unwrap returns the kind's sentinel so errors.Is(err, common.ErrBindingCollision) works.
func (e *Error) Unwrap() error {
	return e.Kind.Sentinel()
}

// AsError extracts the *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Locate converts a byte offset within source to a 1-based line and byte column.
// Offsets past the end of source are clamped to the end.
//
// Parameters:
//   - source: the text the offset refers to
//   - offset: the byte offset
//
// Returns:
//   - int: the 1-based line
//   - int: the 1-based column
func Locate(source string, offset int) (int, int) {
	if offset < 0 {
		return 0, 0
	}
	if offset > len(source) {
		offset = len(source)
	}
	head := source[:offset]
	line := strings.Count(head, "\n") + 1
	col := offset - (strings.LastIndexByte(head, '\n') + 1) + 1
	return line, col
}
