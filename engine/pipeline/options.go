package pipeline

import "log/slog"

// BuilderOption is a functional option for configuring a Builder via NewBuilder.
type BuilderOption func(*builder)

// WithVertexLayout is an option builder that selects separate or interleaved vertex buffers.
//
// Parameters:
//   - mode: the vertex buffer arrangement
//
// Returns:
//   - BuilderOption: a function that applies the vertex layout option to a builder
func WithVertexLayout(mode VertexLayoutMode) BuilderOption {
	return func(b *builder) {
		b.mode = mode
	}
}

// WithValidation is an option builder that compiles emitted stages before building.
//
// Parameters:
//   - enabled: whether Build runs Validate first
//
// Returns:
//   - BuilderOption: a function that applies the validation option to a builder
func WithValidation(enabled bool) BuilderOption {
	return func(b *builder) {
		b.validate = enabled
	}
}

// WithLogger is an option builder that sets the structured logger.
//
// Parameters:
//   - logger: the logger, nil keeps slog.Default()
//
// Returns:
//   - BuilderOption: a function that applies the logger option to a builder
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}
