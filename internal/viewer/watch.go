package viewer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for a burst of writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Watch inspects args[0] once, then again every time the file is written or
// recreated, until ctx is done. Inspections never overlap. onRun, when set,
// receives each Outcome.
func (in *Inspector) Watch(ctx context.Context, args []string, debounce time.Duration, onRun func(Outcome)) error {
	report := func(o Outcome) {
		if onRun != nil {
			onRun(o)
		}
	}

	report(in.Run(ctx, args))
	if len(args) < 1 {
		return nil
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files instead of writing them, so watch the
	// parent directory and filter on the name.
	target := filepath.Clean(args[0])
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", target, err)
	}

	logger := in.logger()
	logger.Info("watching for changes", "path", target)

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			settle = time.After(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "error", err)
		case <-settle:
			settle = nil
			logger.Debug("change detected, inspecting again", "path", target)
			report(in.Run(ctx, args))
		}
	}
}
