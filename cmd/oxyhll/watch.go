package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/oxy-hll/common"
	"github.com/Carmen-Shannon/oxy-hll/engine/loader"
	"github.com/fsnotify/fsnotify"
)

// watchDebounce collects the burst of events an editor produces for one save.
const watchDebounce = 100 * time.Millisecond

// watch re-transpiles definition files below dirs whenever they are written, until ctx
// is canceled.
//
// Parameters:
//   - ctx: stops the watch loop
//   - dirs: the directories to watch, non-recursively
//
// Returns:
//   - error: a failure to set up the watcher
func (a *app) watch(ctx context.Context, dirs []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	a.logger.Info("watching for changes", slog.Int("directories", len(dirs)))

	pending := make(map[string]struct{})
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !a.relevant(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				pending[event.Name] = struct{}{}
				timer.Reset(watchDebounce)
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				a.loader.Evict(event.Name)
				delete(pending, event.Name)
				a.logger.Info("definition removed", slog.String("path", event.Name))
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", slog.Any("error", err))

		case <-timer.C:
			paths := common.SortedKeys(pending)
			clear(pending)
			for _, path := range paths {
				a.loader.Evict(path)
			}
			if failed := a.runOnce(ctx, paths); failed > 0 {
				a.logger.Warn("rebuild finished with failures",
					slog.Int("failed", failed),
					slog.Int("programs", len(paths)),
				)
			}
		}
	}
}

// relevant reports whether a changed file is a definition outside the output directory.
func (a *app) relevant(path string) bool {
	if !loader.IsDefinitionFile(path) {
		return false
	}
	if a.outDir != "" && filepath.Clean(filepath.Dir(path)) == filepath.Clean(a.outDir) {
		return false
	}
	return true
}
