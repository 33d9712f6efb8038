package pipeline

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
	"github.com/Carmen-Shannon/oxy-hll/engine/transpiler"
	"github.com/gogpu/naga"
)

// ErrInvalidWGSL is returned when emitted stage source does not compile.
var ErrInvalidWGSL = errors.New("emitted WGSL is invalid")

// Validate compiles both emitted stages of an artifact to IR and runs the IR validator
// over them. It catches inlining results a GPU driver would reject before any device
// is involved.
//
// Parameters:
//   - a: the artifact to check
//
// Returns:
//   - error: ErrInvalidWGSL wrapping the first failing stage's diagnostics, or nil
func Validate(a *transpiler.Artifact) error {
	for _, kind := range shader.Stages {
		if err := validateStage(a.Stage(kind).Source); err != nil {
			return fmt.Errorf("%w: %s %s stage: %w", ErrInvalidWGSL, a.Name, kind, err)
		}
	}
	return nil
}

func validateStage(source string) error {
	ast, err := naga.Parse(source)
	if err != nil {
		return err
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return err
	}
	issues, err := naga.Validate(module)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		return nil
	}
	errs := make([]error, len(issues))
	for i := range issues {
		errs[i] = issues[i]
	}
	return errors.Join(errs...)
}
