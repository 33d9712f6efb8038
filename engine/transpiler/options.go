package transpiler

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-hll/engine/profiler"
	"github.com/Carmen-Shannon/oxy-hll/engine/pure"
	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
)

// TranspilerBuilderOption is a functional option for configuring a Transpiler via NewTranspiler.
type TranspilerBuilderOption func(*transpiler)

// WithLibrary is an option builder that sets the pure function registry calls resolve against.
//
// Parameters:
//   - lib: the registry, typically built once at startup with pure.NewLibrary
//
// Returns:
//   - TranspilerBuilderOption: a function that applies the library option to a transpiler
func WithLibrary(lib *pure.Library) TranspilerBuilderOption {
	return func(t *transpiler) {
		t.lib = lib
	}
}

// WithVocabulary is an option builder that sets the vertex attribute vocabulary.
//
// Parameters:
//   - vocab: the vocabulary, typically shader.NewVocabulary with project specific names
//
// Returns:
//   - TranspilerBuilderOption: a function that applies the vocabulary option to a transpiler
func WithVocabulary(vocab *shader.Vocabulary) TranspilerBuilderOption {
	return func(t *transpiler) {
		t.vocab = vocab
	}
}

// WithLogger is an option builder that sets the structured logger.
//
// Parameters:
//   - logger: the logger, nil keeps slog.Default()
//
// Returns:
//   - TranspilerBuilderOption: a function that applies the logger option to a transpiler
func WithLogger(logger *slog.Logger) TranspilerBuilderOption {
	return func(t *transpiler) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithWorkers is an option builder that sets the parallelism of TranspileAll.
//
// Parameters:
//   - n: the maximum number of concurrent programs, values below 1 are raised to 1
//
// Returns:
//   - TranspilerBuilderOption: a function that applies the workers option to a transpiler
func WithWorkers(n int) TranspilerBuilderOption {
	return func(t *transpiler) {
		t.workers = max(n, 1)
	}
}

// WithProfiler is an option builder that records every transpiled program in p.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - TranspilerBuilderOption: a function that applies the profiler option to a transpiler
func WithProfiler(p *profiler.Profiler) TranspilerBuilderOption {
	return func(t *transpiler) {
		t.profiler = p
	}
}
