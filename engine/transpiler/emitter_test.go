package transpiler

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmit(t *testing.T) {
	cases := []struct {
		name   string
		source string
		edits  []Edit
		want   string
	}{
		{
			name:   "no edits",
			source: "var a: f32;\n",
			want:   "var a: f32;\n",
		},
		{
			name:   "removal takes trailing spaces",
			source: "@tag(x) @group(0) @binding(0) var<uniform> m: mat4x4f;",
			edits:  []Edit{{Start: 0, End: 7}},
			want:   "@group(0) @binding(0) var<uniform> m: mat4x4f;",
		},
		{
			name:   "removal inside a line",
			source: "    @location(0) @attribute=POSITION  pos: vec3f,\n",
			edits:  []Edit{{Start: 17, End: 36}},
			want:   "    @location(0) pos: vec3f,\n",
		},
		{
			name:   "blank line goes entirely",
			source: "{\n    @tag(x)\n    @group(0) @binding(0) var t: texture_2d<f32>;\n}",
			edits:  []Edit{{Start: 6, End: 13}},
			want:   "{\n    @group(0) @binding(0) var t: texture_2d<f32>;\n}",
		},
		{
			name:   "blank line with CRLF",
			source: "@tag(x)\r\nvar a: f32;",
			edits:  []Edit{{Start: 0, End: 7}},
			want:   "var a: f32;",
		},
		{
			name:   "blank last line",
			source: "a;\n  b;",
			edits:  []Edit{{Start: 5, End: 7}},
			want:   "a;\n",
		},
		{
			name:   "edits apply by original offsets",
			source: "x = f(a); y = g(b);",
			edits:  []Edit{{Start: 14, End: 18, Text: "bb * 2.0"}, {Start: 4, End: 8, Text: "a + 1.0"}},
			want:   "x = a + 1.0; y = bb * 2.0;",
		},
		{
			name:   "inserts at one offset keep their order",
			source: "x;",
			edits:  []Edit{{Start: 0, End: 0, Text: "a "}, {Start: 0, End: 0, Text: "b "}, {Start: 0, End: 1, Text: "c"}},
			want:   "a b c;",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Emit(tc.source, tc.edits)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestEmitInvariantViolations(t *testing.T) {
	cases := []struct {
		name   string
		source string
		edits  []Edit
	}{
		{"overlap", "abcdef", []Edit{{Start: 0, End: 3, Text: "x"}, {Start: 2, End: 4, Text: "y"}}},
		{"out of range", "abc", []Edit{{Start: 1, End: 9, Text: "x"}}},
		{"inverted", "abc", []Edit{{Start: 2, End: 1, Text: "x"}}},
		{"tag left behind", "@tag(x) @group(0) @binding(0) var<uniform> m: mat4x4f;", nil},
		{"attribute left behind", "struct a { @location(0) @attribute=POSITION p: vec3f };", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Emit(tc.source, tc.edits)
			assert.ErrorIs(t, err, common.ErrInvariantViolation)
		})
	}
}

func TestEmitStripsAnnotationsInComments(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "line comment",
			src:  "// bound via @tag(x) here\nvar<private> a: f32;",
			want: "// bound via here\nvar<private> a: f32;",
		},
		{
			name: "block comment",
			src:  "/* @attribute=POSITION */ var<private> a: f32;",
			want: "/* */ var<private> a: f32;",
		},
		{
			name: "unclosed tag",
			src:  "var<private> a: f32; // see @tag(",
			want: "var<private> a: f32; // see ",
		},
		{
			name: "plain comment",
			src:  "// mark fields with the attribute tag\nvar<private> a: f32;",
			want: "// mark fields with the attribute tag\nvar<private> a: f32;",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Emit(tc.src, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
			assert.NotContains(t, out, "@tag(")
			assert.NotContains(t, out, "@attribute=")
		})
	}
}
