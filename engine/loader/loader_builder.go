package loader

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithLogger is an option builder that sets the structured logger used by the Loader.
//
// Parameters:
//   - logger: the logger, nil keeps slog.Default()
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithProgram is an option builder that pre-populates the program cache.
//
// Parameters:
//   - key: the cache key for the program
//   - program: the program to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the program option to a loader
func WithProgram(key string, program *shader.Program) LoaderBuilderOption {
	return func(l *loader) {
		l.programCache[key] = program
	}
}
