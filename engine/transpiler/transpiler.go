// Package transpiler lowers annotated shader programs to plain WGSL. It ties the tag
// scanner, the semantic binding table, the attribute mapper and the pure function
// library together, inlines every library call and emits an Artifact per program.
package transpiler

import (
	"context"
	"log/slog"
	"maps"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/Carmen-Shannon/oxy-hll/engine/profiler"
	"github.com/Carmen-Shannon/oxy-hll/engine/pure"
	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
	"github.com/Carmen-Shannon/oxy-hll/engine/wgsl"
)

// transpiler is the implementation of the Transpiler interface.
type transpiler struct {
	lib      *pure.Library
	vocab    *shader.Vocabulary
	mapper   *shader.AttributeMapper
	logger   *slog.Logger
	profiler *profiler.Profiler

	workers  int
	poolOnce sync.Once
	pool     worker.DynamicWorkerPool
}

// Transpiler turns annotated shader programs into artifacts. It holds only read-only
// state after construction, so one instance may serve concurrent callers.
type Transpiler interface {
	// Transpile runs every pass over one program. On failure no partial artifact is
	// returned.
	//
	// Parameters:
	//   - prog: the program to transpile
	//
	// Returns:
	//   - *Artifact: the emitted stages, binding table and vertex layout
	//   - error: a *common.Error stamped with the program, stage and source position
	Transpile(prog *shader.Program) (*Artifact, error)

	// TranspileAll transpiles independent programs in parallel on the worker pool.
	// Results keep the order of progs, and one program's failure does not affect the
	// others. Programs not yet started when ctx is cancelled fail with ctx.Err().
	//
	// Parameters:
	//   - ctx: cancels programs that have not started
	//   - progs: the programs to transpile
	//
	// Returns:
	//   - []Result: one result per program, in input order
	TranspileAll(ctx context.Context, progs []*shader.Program) []Result

	// Library returns the pure function registry calls are resolved against.
	Library() *pure.Library

	// Vocabulary returns the vertex attribute vocabulary.
	Vocabulary() *shader.Vocabulary

	// Close stops the worker pool, if one was started.
	Close()
}

var _ Transpiler = (*transpiler)(nil)

// NewTranspiler creates a Transpiler. Without options it resolves calls against the
// embedded default library and validates attributes against the standard vocabulary.
//
// Parameters:
//   - options: functional options to configure the transpiler
//
// Returns:
//   - Transpiler: the configured transpiler
//   - error: the default library failed to parse
func NewTranspiler(options ...TranspilerBuilderOption) (Transpiler, error) {
	t := &transpiler{
		logger:  slog.Default(),
		workers: max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(t)
	}

	if t.lib == nil {
		lib, err := pure.Default()
		if err != nil {
			return nil, err
		}
		t.lib = lib
	}
	if t.vocab == nil {
		t.vocab = shader.NewVocabulary()
	}
	t.mapper = shader.NewAttributeMapper(t.vocab)
	return t, nil
}

func (t *transpiler) Library() *pure.Library {
	return t.lib
}

func (t *transpiler) Vocabulary() *shader.Vocabulary {
	return t.vocab
}

func (t *transpiler) Transpile(prog *shader.Program) (*Artifact, error) {
	a, err := t.transpile(prog)
	if t.profiler != nil {
		calls := 0
		if a != nil {
			calls = a.Calls()
		}
		t.profiler.Record(calls, err)
	}
	return a, err
}

// stageState is the per-stage intermediate state of one transpile call.
type stageState struct {
	kind   shader.StageKind
	stage  shader.Stage
	scan   *shader.ScanResult
	output StageOutput
}

func (t *transpiler) transpile(prog *shader.Program) (*Artifact, error) {
	if err := prog.Validate(); err != nil {
		return nil, err
	}

	stages := make([]*stageState, len(shader.Stages))
	for i, kind := range shader.Stages {
		st := &stageState{kind: kind, stage: prog.Stage(kind)}
		if !declaresFunction(st.stage.Source, st.stage.Entry) {
			return nil, t.fail(prog, st, common.NewError(common.ErrorKindInvalidDefinition, -1,
				"entry point %s is not declared", st.stage.Entry))
		}
		scan, err := shader.Scan(st.stage.Source, kind)
		if err != nil {
			return nil, t.fail(prog, st, err)
		}
		st.scan = scan
		stages[i] = st
	}

	builder := shader.NewBindingTableBuilder()
	for _, st := range stages {
		for _, tag := range st.scan.SemanticTags() {
			if err := builder.Insert(tag, st.kind); err != nil {
				return nil, t.fail(prog, st, err)
			}
		}
	}
	for _, st := range stages {
		for _, res := range st.scan.Resources {
			if res.Semantic != "" {
				continue
			}
			if err := builder.AddUntagged(res, st.kind); err != nil {
				return nil, t.fail(prog, st, err)
			}
		}
	}
	table := builder.Freeze()

	vertex := stages[0]
	attributes, err := t.mapper.Map(vertex.scan.AttributeTags())
	if err != nil {
		return nil, t.fail(prog, vertex, err)
	}

	for _, st := range stages {
		edits, calls, err := inlineCalls(st.stage.Source, t.lib)
		if err != nil {
			return nil, t.fail(prog, st, err)
		}
		source, err := Emit(st.stage.Source, append(markerEdits(st.scan.Markers()), edits...))
		if err != nil {
			return nil, t.fail(prog, st, err)
		}
		st.output = StageOutput{Entry: st.stage.Entry, Source: source, Calls: calls}

		t.logger.Debug("stage transpiled",
			slog.String("program", prog.Name),
			slog.String("stage", st.kind.String()),
			slog.Int("tags", len(st.scan.Tags)),
			slog.Int("calls_inlined", calls),
		)
	}

	a := &Artifact{
		Name:       prog.Name,
		Vertex:     stages[0].output,
		Fragment:   stages[1].output,
		Bindings:   table,
		Untagged:   table.Untagged(),
		Attributes: attributes,
	}
	if len(prog.BindGroups) > 0 {
		a.BindGroups = maps.Clone(prog.BindGroups)
	}
	return a, nil
}

// fail stamps err with the program and stage it was raised in.
func (t *transpiler) fail(prog *shader.Program, st *stageState, err error) error {
	e, ok := common.AsError(err)
	if !ok {
		return err
	}
	stamped := e.At(prog.Name, st.kind.String(), st.stage.Source)
	t.logger.Debug("transpile failed",
		slog.String("program", prog.Name),
		slog.String("stage", st.kind.String()),
		slog.String("kind", stamped.Kind.String()),
		slog.Int("offset", stamped.Offset),
	)
	return stamped
}

// declaresFunction reports whether source declares fn name.
func declaresFunction(source, name string) bool {
	toks := wgsl.Tokenize(source)
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].Is("fn") && toks[i+1].Is(name) {
			return true
		}
	}
	return false
}
