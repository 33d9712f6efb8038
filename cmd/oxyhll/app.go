package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-hll/config"
	"github.com/Carmen-Shannon/oxy-hll/engine/loader"
	"github.com/Carmen-Shannon/oxy-hll/engine/pipeline"
	"github.com/Carmen-Shannon/oxy-hll/engine/profiler"
	"github.com/Carmen-Shannon/oxy-hll/engine/pure"
	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
	"github.com/Carmen-Shannon/oxy-hll/engine/transpiler"
	"gopkg.in/yaml.v3"
)

// app wires the loader, the transpiler and the pipeline builder for one CLI invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	loader     loader.Loader
	transpiler transpiler.Transpiler
	builder    pipeline.Builder
	report     *reporter

	outDir  string
	stdout  io.Writer
	written int
}

func newApp(cfg *config.Config, outDir string, stdout, stderr io.Writer) (*app, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	lib, err := loadLibrary(cfg.LibraryPaths())
	if err != nil {
		return nil, err
	}

	mode, err := pipeline.ParseVertexLayoutMode(cfg.VertexLayout)
	if err != nil {
		return nil, err
	}

	t, err := transpiler.NewTranspiler(
		transpiler.WithLibrary(lib),
		transpiler.WithVocabulary(shader.NewVocabulary(cfg.ExtraAttributes...)),
		transpiler.WithLogger(logger),
		transpiler.WithWorkers(cfg.Workers),
		transpiler.WithProfiler(profiler.NewProfiler(logger, 0)),
	)
	if err != nil {
		return nil, err
	}

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			t.Close()
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		loader:     loader.NewLoader(loader.WithLogger(logger)),
		transpiler: t,
		builder: pipeline.NewBuilder(
			pipeline.WithVertexLayout(mode),
			pipeline.WithValidation(cfg.Validate),
			pipeline.WithLogger(logger),
		),
		report: newReporter(stderr),
		outDir: outDir,
		stdout: stdout,
	}, nil
}

func (a *app) close() {
	a.transpiler.Close()
}

// loadLibrary builds the pure function registry from the embedded library followed by
// the given files.
func loadLibrary(paths []string) (*pure.Library, error) {
	sources := []pure.Source{pure.DefaultSource()}
	for _, path := range paths {
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading library: %w", err)
		}
		sources = append(sources, pure.Source{Name: path, Text: string(text)})
	}
	return pure.NewLibrary(sources...)
}

// runOnce loads, transpiles, checks and writes every path and reports each outcome.
//
// Parameters:
//   - ctx: cancels the remaining programs of the batch
//   - paths: the definition files
//
// Returns:
//   - int: the number of paths that produced no artifact
func (a *app) runOnce(ctx context.Context, paths []string) int {
	failed := 0
	progs := make([]*shader.Program, 0, len(paths))
	origins := make([]string, 0, len(paths))
	names := make(map[string]string, len(paths))
	for _, path := range paths {
		p, err := a.loader.Load(path)
		if err != nil {
			a.report.failure(path, err)
			failed++
			continue
		}
		if prev, ok := names[p.Name]; ok {
			a.report.failure(path, fmt.Errorf("program %q is also defined in %s", p.Name, prev))
			failed++
			continue
		}
		names[p.Name] = path
		progs = append(progs, p)
		origins = append(origins, path)
	}

	for i, res := range a.transpiler.TranspileAll(ctx, progs) {
		path := origins[i]
		if res.Err != nil {
			a.report.failure(path, res.Err)
			failed++
			continue
		}
		if _, err := a.builder.Build(res.Artifact); err != nil {
			a.report.failure(path, err)
			failed++
			continue
		}
		dest, err := a.write(res.Artifact)
		if err != nil {
			a.report.failure(path, err)
			failed++
			continue
		}
		a.report.success(path, dest, res.Artifact)
	}
	return failed
}

// write stores the artifact in the output directory, or appends it to stdout.
// Returns the written file, empty for stdout.
func (a *app) write(art *transpiler.Artifact) (string, error) {
	data, err := encodeArtifact(art, a.cfg.OutputFormat)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", art.Name, err)
	}

	if a.outDir == "" {
		if a.written > 0 && a.cfg.OutputFormat == "yaml" {
			data = append([]byte("---\n"), data...)
		}
		if _, err := a.stdout.Write(data); err != nil {
			return "", err
		}
		a.written++
		return "", nil
	}

	dest := filepath.Join(a.outDir, art.Name+"."+a.cfg.OutputFormat)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", err
	}
	a.written++
	return dest, nil
}

// encodeArtifact serializes an artifact as indented JSON or YAML.
func encodeArtifact(art *transpiler.Artifact, format string) ([]byte, error) {
	switch format {
	case "yaml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(art); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "json":
		data, err := json.MarshalIndent(art, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// collectDefinitions expands the command line arguments into definition files. A
// directory contributes every definition file below it, skipping exclude. Returns the
// sorted files and the sorted directories to watch.
func collectDefinitions(args []string, exclude string) ([]string, []string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	if exclude != "" {
		exclude = filepath.Clean(exclude)
	}

	var paths, dirs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, nil, err
		}
		if !info.IsDir() {
			paths = append(paths, filepath.Clean(arg))
			dirs = append(dirs, filepath.Dir(filepath.Clean(arg)))
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == exclude || (path != filepath.Clean(arg) && strings.HasPrefix(d.Name(), ".")) {
					return filepath.SkipDir
				}
				dirs = append(dirs, path)
				return nil
			}
			if loader.IsDefinitionFile(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}

	slices.Sort(paths)
	slices.Sort(dirs)
	return slices.Compact(paths), slices.Compact(dirs), nil
}
