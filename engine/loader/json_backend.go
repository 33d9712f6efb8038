package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
)

// jsonLoaderBackend reads definitions written as relaxed JSON: shader code may span
// several lines inside a string literal and // line comments may appear between values.
type jsonLoaderBackend struct{}

var _ loaderBackend = jsonLoaderBackend{}

func (b jsonLoaderBackend) Load(path string) (*shader.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return b.decode(data)
}

func (b jsonLoaderBackend) LoadReader(r io.Reader) (*shader.Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return b.decode(data)
}

func (jsonLoaderBackend) decode(data []byte) (*shader.Program, error) {
	strict, anchors := relaxJSON(data)

	dec := json.NewDecoder(bytes.NewReader(strict))
	dec.DisallowUnknownFields()
	var def definition
	if err := dec.Decode(&def); err != nil {
		return nil, syntaxError(data, anchors, err)
	}
	return def.program()
}

// syntaxError converts a decoder error into an InvalidDefinition error positioned in the
// original file.
func syntaxError(raw []byte, anchors []anchor, err error) error {
	offset := -1
	var se *json.SyntaxError
	var te *json.UnmarshalTypeError
	switch {
	case errors.As(err, &se):
		offset = rawOffset(anchors, int(se.Offset))
	case errors.As(err, &te):
		offset = rawOffset(anchors, int(te.Offset))
	}
	e := common.NewError(common.ErrorKindInvalidDefinition, offset, "%v", err)
	return e.At("", "definition", string(raw))
}

// anchor pairs an offset in the relaxed output with the offset of the same byte in the
// original input. Offsets between two anchors shift by the same amount.
type anchor struct {
	out int
	raw int
}

// relaxJSON rewrites relaxed JSON into strict JSON. Raw control characters inside string
// literals become escape sequences and // comments outside strings are dropped. It
// returns the anchors needed to map decoder offsets back to the input.
//
// Parameters:
//   - data: the file contents
//
// Returns:
//   - []byte: strict JSON
//   - []anchor: offset anchors, ordered by out
func relaxJSON(data []byte) ([]byte, []anchor) {
	var out bytes.Buffer
	out.Grow(len(data) + len(data)/8)
	anchors := []anchor{{0, 0}}
	mark := func(raw int) {
		anchors = append(anchors, anchor{out.Len(), raw})
	}

	inString, escaped := false, false
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case inString && escaped:
			escaped = false
			out.WriteByte(c)
		case inString && c == '\\':
			escaped = true
			out.WriteByte(c)
		case inString && c == '"':
			inString = false
			out.WriteByte(c)
		case inString && c < 0x20:
			switch c {
			case '\n':
				out.WriteString(`\n`)
			case '\r':
				out.WriteString(`\r`)
			case '\t':
				out.WriteString(`\t`)
			default:
				fmt.Fprintf(&out, `\u%04x`, c)
			}
			mark(i + 1)
		case inString:
			out.WriteByte(c)
		case c == '"':
			inString = true
			out.WriteByte(c)
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
			mark(i)
			if i < len(data) {
				out.WriteByte('\n')
			}
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes(), anchors
}

// rawOffset maps an offset in relaxed output back to the original input.
func rawOffset(anchors []anchor, out int) int {
	i := sort.Search(len(anchors), func(i int) bool { return anchors[i].out > out }) - 1
	if i < 0 {
		return out
	}
	return anchors[i].raw + out - anchors[i].out
}
