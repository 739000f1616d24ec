package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-runs a job when export files change in the watched
// directories. Bursts of events are collapsed into one run after a quiet
// period.
type Watcher struct {
	log     *zap.Logger
	dirs    []string
	quiet   time.Duration
	trigger func(context.Context)
}

// NewWatcher returns a Watcher over dirs calling trigger after quiet.
func NewWatcher(log *zap.Logger, quiet time.Duration, trigger func(context.Context), dirs ...string) *Watcher {
	return &Watcher{log: log, dirs: dirs, quiet: quiet, trigger: trigger}
}

// Start watches in a goroutine until ctx is cancelled. Directories that
// cannot be watched are logged and skipped.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	watched := 0
	for _, dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			w.log.Warn("Cannot watch input directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		watched++
	}
	if watched == 0 {
		fw.Close()
		return fmt.Errorf("none of %v could be watched", w.dirs)
	}

	w.log.Info("Starting input watcher...", zap.Strings("dirs", w.dirs), zap.Duration("quiet", w.quiet))
	go w.loop(ctx, fw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer fw.Close()

	timer := time.NewTimer(w.quiet)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			w.log.Debug("Input changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(w.quiet)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Error("File watcher error", zap.Error(err))
		case <-timer.C:
			w.trigger(ctx)
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(ev.Name), ".csv") || strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}
