// Package config handles loading transpiler configuration from TOML files.
//
// Configuration is read from a file named oxyhll.toml or .oxyhll.toml, searched for in
// the current directory and its parents. Every field is optional.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileNames are the names searched for config files, in order of preference.
var FileNames = []string{
	"oxyhll.toml",
	".oxyhll.toml",
}

// Config is the configuration file structure.
type Config struct {
	// Workers is the number of programs transpiled in parallel.
	Workers int `toml:"workers"`

	// OutputFormat is "json" or "yaml".
	OutputFormat string `toml:"output_format"`

	// VertexLayout is "separate" or "interleaved".
	VertexLayout string `toml:"vertex_layout"`

	// Validate compiles emitted WGSL before writing artifacts.
	Validate bool `toml:"validate"`

	// ExtraAttributes are vertex attribute semantics added to the standard vocabulary.
	ExtraAttributes []string `toml:"extra_attributes"`

	// Libraries are pure function library files loaded after the built-in library.
	// Relative paths are resolved against the directory of the config file.
	Libraries []string `toml:"libraries"`

	// LogLevel is a slog level name: debug, info, warn or error.
	LogLevel string `toml:"log_level"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Workers:      max(runtime.NumCPU()-1, 1),
		OutputFormat: "json",
		VertexLayout: "separate",
		LogLevel:     "info",
	}
}

// Load searches for a config file starting from startDir and walking up to the root.
// When no file exists the defaults are returned with an empty Path.
//
// Parameters:
//   - startDir: the directory to start searching from
//
// Returns:
//   - *Config: the loaded or default configuration
//   - error: a read, decode or validation error of the file that was found
func Load(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return LoadFile(path)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// LoadFile loads configuration from a specific file. Fields missing from the file keep
// their defaults and unknown keys are rejected.
//
// Parameters:
//   - path: the TOML file
//
// Returns:
//   - *Config: the configuration
//   - error: a read, decode or validation error naming the file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var sme *toml.StrictMissingError
		if errors.As(err, &sme) {
			keys := make([]string, len(sme.Errors))
			for i := range sme.Errors {
				keys[i] = strings.Join(sme.Errors[i].Key(), ".")
			}
			return nil, fmt.Errorf("%s: unknown keys %s", path, strings.Join(keys, ", "))
		}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, col := de.Position()
			return nil, fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path

	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Check validates the enumerated fields.
func (c *Config) Check() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	switch c.OutputFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("output_format must be json or yaml, got %q", c.OutputFormat)
	}
	switch c.VertexLayout {
	case "separate", "interleaved":
	default:
		return fmt.Errorf("vertex_layout must be separate or interleaved, got %q", c.VertexLayout)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// LibraryPaths returns Libraries with relative paths resolved against the directory of
// the config file, or left untouched when the config did not come from a file.
func (c *Config) LibraryPaths() []string {
	paths := make([]string, len(c.Libraries))
	for i, lib := range c.Libraries {
		if c.Path != "" && !filepath.IsAbs(lib) {
			lib = filepath.Join(filepath.Dir(c.Path), lib)
		}
		paths[i] = lib
	}
	return paths
}

// Encode writes the configuration as TOML, e.g. to print the effective settings.
func (c *Config) Encode() (string, error) {
	var sb strings.Builder
	enc := toml.NewEncoder(&sb)
	if err := enc.Encode(c); err != nil {
		return "", err
	}
	return sb.String(), nil
}
