package loader

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
	"gopkg.in/yaml.v3"
)

// yamlLoaderBackend reads definitions written in YAML, where stage code is usually a
// literal block scalar.
type yamlLoaderBackend struct{}

var _ loaderBackend = yamlLoaderBackend{}

func (b yamlLoaderBackend) Load(path string) (*shader.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return b.decode(data)
}

func (b yamlLoaderBackend) LoadReader(r io.Reader) (*shader.Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return b.decode(data)
}

func (yamlLoaderBackend) decode(data []byte) (*shader.Program, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var def definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, common.NewError(common.ErrorKindInvalidDefinition, -1, "definition is empty").
				At("", "definition", "")
		}
		return nil, common.NewError(common.ErrorKindInvalidDefinition, -1, "%v", err).
			At("", "definition", "")
	}
	return def.program()
}
