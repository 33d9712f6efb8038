package transpiler

import (
	"regexp"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
	"github.com/Carmen-Shannon/oxy-hll/engine/wgsl"
)

// Edit replaces the byte range [Start, End) of a stage source with Text. An empty range
// inserts; an empty Text removes.
type Edit struct {
	Start int
	End   int
	Text  string
}

// commentMarker matches an annotation written inside a comment, including an unclosed @tag(.
var commentMarker = regexp.MustCompile(`@tag\s*\(([^)\n]*\))?[ \t]?|@attribute\s*=[A-Za-z0-9_]*[ \t]?`)

func (e Edit) isRemoval() bool {
	return e.Text == "" && e.End > e.Start
}

// markerEdits turns annotation markers into removals.
func markerEdits(markers []shader.Span) []Edit {
	edits := make([]Edit, len(markers))
	for i, m := range markers {
		edits[i] = Edit{Start: m.Start, End: m.End}
	}
	return edits
}

// Emit applies edits to source in a single pass and returns the new text. Edits are
// addressed against the original source, so applying one never shifts another. Edits at
// the same offset keep their relative order.
//
// A removal also takes the horizontal whitespace after it, and when that leaves its line
// blank the whole line goes. Annotation markers inside comments are dropped from the
// result while the rest of the comment stays.
//
// Parameters:
//   - source: the original stage source
//   - edits: the replacements, in any order
//
// Returns:
//   - string: the edited source
//   - error: InvariantViolation when edits overlap, fall outside the source or leave an annotation behind
func Emit(source string, edits []Edit) (string, error) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	slices.SortStableFunc(sorted, func(a, b Edit) int {
		return a.Start - b.Start
	})

	var sb strings.Builder
	sb.Grow(len(source))
	cursor := 0
	for _, e := range sorted {
		if e.Start < 0 || e.End > len(source) || e.Start > e.End {
			return "", common.NewError(common.ErrorKindInvariantViolation, e.Start,
				"edit [%d, %d) is outside the %d byte source", e.Start, e.End, len(source))
		}
		if e.isRemoval() {
			e = widenRemoval(source, e)
		}
		if e.Start < cursor {
			return "", common.NewError(common.ErrorKindInvariantViolation, e.Start,
				"edit [%d, %d) overlaps an earlier edit ending at %d", e.Start, e.End, cursor)
		}
		sb.WriteString(source[cursor:e.Start])
		sb.WriteString(e.Text)
		cursor = e.End
	}
	sb.WriteString(source[cursor:])

	out := stripCommentMarkers(sb.String())
	if err := checkResidue(out); err != nil {
		return "", err
	}
	return out, nil
}

// widenRemoval extends a removal over its trailing horizontal whitespace and, when
// nothing else is left on the line, over the whole line.
func widenRemoval(source string, e Edit) Edit {
	end := e.End
	for end < len(source) && isHorizontalSpace(source[end]) {
		end++
	}
	lineStart := strings.LastIndexByte(source[:e.Start], '\n') + 1
	if strings.TrimLeft(source[lineStart:e.Start], " \t") != "" {
		return Edit{Start: e.Start, End: end}
	}
	switch {
	case end == len(source):
		return Edit{Start: lineStart, End: end}
	case source[end] == '\n':
		return Edit{Start: lineStart, End: end + 1}
	case source[end] == '\r' && end+1 < len(source) && source[end+1] == '\n':
		return Edit{Start: lineStart, End: end + 2}
	}
	return Edit{Start: e.Start, End: end}
}

func isHorizontalSpace(ch byte) bool {
	return ch == ' ' || ch == '\t'
}

// stripCommentMarkers removes annotation markers from the comments of source.
func stripCommentMarkers(source string) string {
	spans := wgsl.Comments(source)
	var sb strings.Builder
	sb.Grow(len(source))
	cursor := 0
	for _, s := range spans {
		comment := source[s[0]:s[1]]
		if !commentMarker.MatchString(comment) {
			continue
		}
		sb.WriteString(source[cursor:s[0]])
		sb.WriteString(commentMarker.ReplaceAllString(comment, ""))
		cursor = s[1]
	}
	if cursor == 0 {
		return source
	}
	sb.WriteString(source[cursor:])
	return sb.String()
}

// checkResidue fails when emitted source still carries an annotation marker, in code or
// in a comment.
func checkResidue(out string) error {
	for _, s := range wgsl.Comments(out) {
		if loc := commentMarker.FindStringIndex(out[s[0]:s[1]]); loc != nil {
			return common.NewError(common.ErrorKindInvariantViolation, -1,
				"emitted comment still carries an annotation at byte %d", s[0]+loc[0])
		}
	}
	toks := wgsl.Tokenize(out)
	for i := 0; i+2 < len(toks); i++ {
		if !toks[i].Is("@") {
			continue
		}
		if (toks[i+1].Is("tag") && toks[i+2].Is("(")) || (toks[i+1].Is("attribute") && toks[i+2].Is("=")) {
			return common.NewError(common.ErrorKindInvariantViolation, -1,
				"emitted source still carries @%s at byte %d", toks[i+1].Text, toks[i].Start)
		}
	}
	return nil
}
