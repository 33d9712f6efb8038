// Package loader reads shader definition files into programs. A definition names a
// program, optionally aliases its bind groups and carries the entry point and code of
// its vertex and fragment stage. JSON and YAML files are supported.
package loader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
)

// LoaderBackendType identifies the definition file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeJSON selects the relaxed JSON backend.
	BackendTypeJSON LoaderBackendType = iota

	// BackendTypeYAML selects the YAML backend.
	BackendTypeYAML
)

// ErrUnsupportedFormat is returned for files whose extension selects no backend.
var ErrUnsupportedFormat = errors.New("unsupported definition format")

// extensions maps file extensions to backends. ".rs" definition files hold relaxed JSON.
var extensions = map[string]LoaderBackendType{
	".json": BackendTypeJSON,
	".rs":   BackendTypeJSON,
	".yaml": BackendTypeYAML,
	".yml":  BackendTypeYAML,
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	logger       *slog.Logger
	programCache map[string]*shader.Program
	backends     map[LoaderBackendType]loaderBackend
}

// Loader defines the public-facing interface for loading and caching shader definitions.
// It selects a backend by file extension and keeps every loaded program keyed by path.
// Safe for concurrent use.
type Loader interface {
	// Load reads a definition file and caches the result.
	// If the path is already cached, the cached program is returned.
	//
	// Parameters:
	//   - path: the file path to the definition
	//
	// Returns:
	//   - *shader.Program: the loaded program
	//   - error: ErrUnsupportedFormat, a read error, or an InvalidDefinition *common.Error
	Load(path string) (*shader.Program, error)

	// LoadAll loads every path in order and stops at the first failure.
	//
	// Parameters:
	//   - paths: the definition files
	//
	// Returns:
	//   - []*shader.Program: the loaded programs in the order of paths
	//   - error: the first failure, naming its path
	LoadAll(paths []string) ([]*shader.Program, error)

	// LoadReader reads a definition from a stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded program
	//   - r: the reader providing the definition
	//   - backendType: the format of the stream
	//
	// Returns:
	//   - *shader.Program: the loaded program
	//   - error: a read error or an InvalidDefinition *common.Error
	LoadReader(name string, r io.Reader, backendType LoaderBackendType) (*shader.Program, error)

	// Get retrieves a cached program by key. Returns nil if not found.
	//
	// Parameters:
	//   - key: the path or name the program was loaded under
	//
	// Returns:
	//   - *shader.Program: the cached program or nil
	Get(key string) *shader.Program

	// Programs returns a copy of the program cache.
	//
	// Returns:
	//   - map[string]*shader.Program: all cached programs keyed by path or name
	Programs() map[string]*shader.Program

	// Evict drops a cached program so the next Load reads the file again.
	//
	// Parameters:
	//   - key: the path or name to drop
	Evict(key string)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with both backends registered and the options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:           sync.RWMutex{},
		logger:       slog.Default(),
		programCache: make(map[string]*shader.Program),
		backends: map[LoaderBackendType]loaderBackend{
			BackendTypeJSON: jsonLoaderBackend{},
			BackendTypeYAML: yamlLoaderBackend{},
		},
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*shader.Program, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	p, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.store(path, p)
	return p, nil
}

func (l *loader) LoadAll(paths []string) ([]*shader.Program, error) {
	progs := make([]*shader.Program, 0, len(paths))
	for _, path := range paths {
		p, err := l.Load(path)
		if err != nil {
			return nil, err
		}
		progs = append(progs, p)
	}
	return progs, nil
}

func (l *loader) LoadReader(name string, r io.Reader, backendType LoaderBackendType) (*shader.Program, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	backend, ok := l.backends[backendType]
	if !ok {
		return nil, fmt.Errorf("%w: backend %d", ErrUnsupportedFormat, backendType)
	}

	p, err := backend.LoadReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	l.store(name, p)
	return p, nil
}

func (l *loader) Get(key string) *shader.Program {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.programCache[key]
}

func (l *loader) Programs() map[string]*shader.Program {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.programCache)
}

func (l *loader) Evict(key string) {
	l.mu.Lock()
	delete(l.programCache, key)
	l.mu.Unlock()
}

func (l *loader) store(key string, p *shader.Program) {
	l.mu.Lock()
	l.programCache[key] = p
	l.mu.Unlock()

	l.logger.Debug("definition loaded",
		slog.String("key", key),
		slog.String("program", p.Name),
		slog.Int("bind_group_aliases", len(p.BindGroups)),
	)
}

// resolveBackend selects the backend for a path by its file extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if backendType, ok := extensions[ext]; ok {
		return l.backends[backendType], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// IsDefinitionFile reports whether path has an extension a Loader can read.
func IsDefinitionFile(path string) bool {
	_, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
