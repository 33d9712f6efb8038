package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
)

// loaderBackend defines the generic interface for reading shader definitions.
// Concrete implementations (jsonLoaderBackend, yamlLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load reads and decodes the definition at path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *shader.Program: the validated program
	//   - error: a read error, or a *common.Error of kind InvalidDefinition
	Load(path string) (*shader.Program, error)

	// LoadReader decodes a definition from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing the definition
	//
	// Returns:
	//   - *shader.Program: the validated program
	//   - error: a read error, or a *common.Error of kind InvalidDefinition
	LoadReader(r io.Reader) (*shader.Program, error)
}
