package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/Carmen-Shannon/oxy-hll/engine/transpiler"
	"github.com/muesli/termenv"
)

// reporter prints one line per definition to the diagnostics stream. Colors are only
// used when the stream is a terminal that supports them.
type reporter struct {
	mu  sync.Mutex
	out *termenv.Output
}

func newReporter(w io.Writer, opts ...termenv.OutputOption) *reporter {
	return &reporter{out: termenv.NewOutput(w, opts...)}
}

func (r *reporter) success(path, dest string, art *transpiler.Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := r.out.String("ok").Foreground(r.out.Color("2")).Bold()
	target := dest
	if target == "" {
		target = "stdout"
	}
	fmt.Fprintf(r.out, "%s   %s -> %s (%d bindings, %d attributes, %d calls inlined)\n",
		status, path, target, art.Bindings.Len(), len(art.Attributes), art.Calls())
}

func (r *reporter) failure(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := r.out.String("FAIL").Foreground(r.out.Color("1")).Bold()
	e, ok := common.AsError(err)
	if !ok {
		fmt.Fprintf(r.out, "%s %s: %v\n", status, path, err)
		return
	}

	loc := path
	switch {
	case e.Line > 0:
		loc = fmt.Sprintf("%s: %s:%d:%d", path, e.Stage, e.Line, e.Column)
	case e.Stage != "":
		loc = fmt.Sprintf("%s: %s", path, e.Stage)
	}
	kind := r.out.String(e.Kind.String()).Foreground(r.out.Color("3"))
	fmt.Fprintf(r.out, "%s %s: %s: %s\n", status, loc, kind, e.Message)
	if e.Suggestion != "" {
		hint := r.out.String(fmt.Sprintf("did you mean %q?", e.Suggestion)).Faint()
		fmt.Fprintf(r.out, "     %s\n", hint)
	}
}
