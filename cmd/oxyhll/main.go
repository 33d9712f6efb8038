// Command oxyhll transpiles annotated shader definitions into plain WGSL artifacts.
//
// Usage:
//
//	oxyhll [options] [definition files or directories]
//
// With no arguments the current directory is scanned for .json, .rs, .yaml and .yml
// definition files. Each program is written as <name>.json or <name>.yaml to the output
// directory, or to stdout when -o is not given.
//
// Config file:
//
//	oxyhll looks for oxyhll.toml or .oxyhll.toml in the current directory and its
//	parents. Config file options are overridden by CLI flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/Carmen-Shannon/oxy-hll/config"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flags holds the parsed command line. Only flags that were set override the config.
type flags struct {
	configFile   string
	noConfig     bool
	output       string
	format       string
	vertexLayout string
	validate     bool
	workers      int
	logLevel     string
	watch        bool
	printConfig  bool
	showVersion  bool

	set  map[string]bool
	args []string
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{set: make(map[string]bool)}
	fs := flag.NewFlagSet("oxyhll", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.configFile, "config", "", "Use specific config `file`")
	fs.BoolVar(&f.noConfig, "no-config", false, "Ignore config files")
	fs.StringVar(&f.output, "o", "", "Write artifacts to `dir` (default: stdout)")
	fs.StringVar(&f.format, "format", "", "Artifact format: json or yaml")
	fs.StringVar(&f.vertexLayout, "vertex-layout", "", "Vertex buffer layout: separate or interleaved")
	fs.BoolVar(&f.validate, "validate", false, "Validate emitted WGSL with naga")
	fs.IntVar(&f.workers, "workers", 0, "Number of programs transpiled in parallel")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.BoolVar(&f.watch, "watch", false, "Re-transpile definitions when they change")
	fs.BoolVar(&f.printConfig, "print-config", false, "Print the effective config and exit")
	fs.BoolVar(&f.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "oxyhll - WGSL shader transpiler v%s\n\n", version)
		fmt.Fprintf(stderr, "Usage: oxyhll [options] [definition files or directories]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nConfig file:\n")
		fmt.Fprintf(stderr, "  Searches for oxyhll.toml or .oxyhll.toml in current and parent directories.\n")
		fmt.Fprintf(stderr, "  CLI flags override config file settings.\n")
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  oxyhll shaders/ -o build/shaders\n")
		fmt.Fprintf(stderr, "  oxyhll -format yaml debug_pnu.rs\n")
		fmt.Fprintf(stderr, "  oxyhll -watch -validate shaders/ -o build/shaders\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) {
		f.set[fl.Name] = true
	})
	f.args = fs.Args()
	return f, nil
}

// loadConfig reads the config file selected by the flags and applies the flag overrides.
func (f *flags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case f.noConfig:
		cfg = config.Default()
	case f.configFile != "":
		cfg, err = config.LoadFile(f.configFile)
	default:
		var wd string
		wd, err = os.Getwd()
		if err == nil {
			cfg, err = config.Load(wd)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if f.set["format"] {
		cfg.OutputFormat = f.format
	}
	if f.set["vertex-layout"] {
		cfg.VertexLayout = f.vertexLayout
	}
	if f.set["validate"] {
		cfg.Validate = f.validate
	}
	if f.set["workers"] {
		cfg.Workers = f.workers
	}
	if f.set["log-level"] {
		cfg.LogLevel = f.logLevel
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if f.showVersion {
		fmt.Fprintf(stdout, "oxyhll v%s\n", version)
		return nil
	}

	cfg, err := f.loadConfig()
	if err != nil {
		return err
	}

	if f.printConfig {
		text, err := cfg.Encode()
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, text)
		return nil
	}

	paths, dirs, err := collectDefinitions(f.args, f.output)
	if err != nil {
		return err
	}
	if len(paths) == 0 && !f.watch {
		return fmt.Errorf("no definition files found")
	}

	a, err := newApp(cfg, f.output, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.close()

	failed := a.runOnce(ctx, paths)
	if f.watch {
		return a.watch(ctx, dirs)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d programs failed", failed, len(paths))
	}
	return nil
}
