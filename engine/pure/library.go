// Package pure is the registry of pure functions that shader source may call. Functions
// operate on tuple types (small named aggregates such as a model-view-projection stack)
// and scalars, and are inlined into the calling stage by the transpiler, so the registry
// only stores parsed body templates and never emits WGSL of its own.
package pure

import (
	_ "embed"
	"sync"

	"github.com/Carmen-Shannon/oxy-hll/common"
)

// defaultLibrarySource is the built-in library, parsed once on first use.
//
//go:embed assets/pure.wgsl
var defaultLibrarySource string

// Source is one library file: a name used in error locations and its text.
type Source struct {
	Name string
	Text string
}

// DefaultSource returns the embedded built-in library source.
func DefaultSource() Source {
	return Source{Name: "pure.wgsl", Text: defaultLibrarySource}
}

// Field is one named member of a TupleType.
type Field struct {
	Name string
	Type string
}

// TupleType is a named aggregate of named, typed fields.
type TupleType struct {
	Name   string
	Fields []Field
}

// FieldIndex returns the position of a field, or -1.
func (t *TupleType) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Param is one formal parameter of a Function.
type Param struct {
	Name string
	Type string

	// Tuple is the parameter's tuple type, nil for scalar, vector and matrix parameters.
	Tuple *TupleType
}

// Function is a registered pure function.
type Function struct {
	Name    string
	Params  []Param
	Results []string

	// Offset is the byte offset of the declaration within its library source.
	Offset int
	Source string

	locals  []string
	prelude []template
	results []template
}

// Arity returns the number of values the function returns.
func (f *Function) Arity() int {
	return len(f.Results)
}

// Locals returns the names the function body declares with let, var or const.
func (f *Function) Locals() []string {
	out := make([]string, len(f.locals))
	copy(out, f.locals)
	return out
}

// Library is an immutable registry of tuple types and functions. It is built once before
// any transpilation and is safe for concurrent reads without locking.
type Library struct {
	tuples    map[string]*TupleType
	functions map[string]*Function
	constants map[string]string

	tupleOrder    []string
	functionOrder []string
}

// NewLibrary parses the given sources, in order, into one registry. Names must be unique
// across all sources.
//
// Parameters:
//   - sources: the library files to register
//
// Returns:
//   - *Library: the registry
//   - error: a *common.Error located in the offending source
func NewLibrary(sources ...Source) (*Library, error) {
	lib := &Library{
		tuples:    make(map[string]*TupleType),
		functions: make(map[string]*Function),
		constants: make(map[string]string),
	}
	for _, src := range sources {
		if err := parseSource(lib, src); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

var defaultLibrary = sync.OnceValues(func() (*Library, error) {
	return NewLibrary(DefaultSource())
})

// Default returns the registry built from the embedded library.
func Default() (*Library, error) {
	return defaultLibrary()
}

// Function looks up a function by name.
func (l *Library) Function(name string) (*Function, bool) {
	f, ok := l.functions[name]
	return f, ok
}

// Tuple looks up a tuple type by name.
func (l *Library) Tuple(name string) (*TupleType, bool) {
	t, ok := l.tuples[name]
	return t, ok
}

// FunctionNames returns the function names in registration order.
func (l *Library) FunctionNames() []string {
	out := make([]string, len(l.functionOrder))
	copy(out, l.functionOrder)
	return out
}

// TupleNames returns the tuple type names in registration order.
func (l *Library) TupleNames() []string {
	out := make([]string, len(l.tupleOrder))
	copy(out, l.tupleOrder)
	return out
}

// libraryError builds an error located in a library source.
func libraryError(src Source, kind common.ErrorKind, offset int, format string, args ...any) *common.Error {
	e := common.NewError(kind, offset, format, args...)
	e.Stage = "library:" + src.Name
	e.Line, e.Column = common.Locate(src.Text, offset)
	return e
}
