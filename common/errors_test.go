package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorUnwrapsToSentinel(t *testing.T) {
	cases := []struct {
		kind     ErrorKind
		sentinel error
	}{
		{ErrorKindMalformedTag, ErrMalformedTag},
		{ErrorKindBindingConflict, ErrBindingConflict},
		{ErrorKindBindingCollision, ErrBindingCollision},
		{ErrorKindUnknownAttributeSemantic, ErrUnknownAttributeSemantic},
		{ErrorKindDuplicateLocation, ErrDuplicateLocation},
		{ErrorKindDuplicateAttribute, ErrDuplicateAttribute},
		{ErrorKindUnknownFunction, ErrUnknownFunction},
		{ErrorKindArityMismatch, ErrArityMismatch},
		{ErrorKindTypeMismatch, ErrTypeMismatch},
		{ErrorKindInvalidDefinition, ErrInvalidDefinition},
		{ErrorKindInvariantViolation, ErrInvariantViolation},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", NewError(tc.kind, 3, "boom"))
			assert.ErrorIs(t, err, tc.sentinel)

			e, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.kind, e.Kind)
		})
	}
}

func TestErrorAtStampsLocation(t *testing.T) {
	src := "fn a() {}\n  @tag(x) var y: f32;\n"
	base := NewError(ErrorKindMalformedTag, 12, "@tag(x) needs @group and @binding")

	e := base.At("debug_pnu", "vertex", src)
	assert.Equal(t, "debug_pnu", e.Program)
	assert.Equal(t, "vertex", e.Stage)
	assert.Equal(t, 2, e.Line)
	assert.Equal(t, 3, e.Column)
	assert.Equal(t, "debug_pnu/vertex:2:3: MalformedTag: @tag(x) needs @group and @binding", e.Error())

	assert.Empty(t, base.Program, "At must not mutate the receiver")

	again := e.At("other", "fragment", "")
	assert.Equal(t, "debug_pnu", again.Program)
	assert.Equal(t, 2, again.Line)
}

func TestErrorMessageWithSuggestion(t *testing.T) {
	e := NewError(ErrorKindUnknownAttributeSemantic, -1, "unknown attribute %s", "NORMLA").WithSuggestion("NORMAL")
	assert.Equal(t, `UnknownAttributeSemantic: unknown attribute NORMLA (did you mean "NORMAL"?)`, e.Error())
}

func TestLocate(t *testing.T) {
	cases := []struct {
		name      string
		src       string
		offset    int
		line, col int
	}{
		{"start", "abc", 0, 1, 1},
		{"same line", "abc", 2, 1, 3},
		{"after newline", "ab\ncd", 3, 2, 1},
		{"clamped", "ab\ncd", 99, 2, 3},
		{"negative", "ab", -1, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line, col := Locate(tc.src, tc.offset)
			assert.Equal(t, tc.line, line)
			assert.Equal(t, tc.col, col)
		})
	}
}

func TestUnknownKindString(t *testing.T) {
	assert.Equal(t, "ErrorKind(99)", ErrorKind(99).String())
	assert.Nil(t, ErrorKind(99).Sentinel())
	assert.False(t, errors.Is(NewError(ErrorKind(99), 0, "x"), ErrMalformedTag))
}
