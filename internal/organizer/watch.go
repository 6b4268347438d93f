package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/scanner"
)

// Watch starts an fsnotify watcher on every monitored folder (not their
// subdirectories) and runs a pass once events have been quiet for the
// debounce interval. Bursts of events, including those caused by the pass
// itself, coalesce into one pass.
func (o *Organizer) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("organizer: watcher: %w", err)
	}
	defer w.Close()

	watched := 0
	for _, dir := range o.scanner.Folders() {
		if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
			o.logger.Warn("watcher: folder unavailable", slog.String("folder", dir))
			continue
		}
		if err := w.Add(dir); err != nil {
			o.logger.Warn("watcher: add failed", slog.String("folder", dir), slog.String("error", err.Error()))
			continue
		}
		watched++
		o.logger.Info("watcher: watching", slog.String("folder", dir))
	}
	if watched == 0 {
		return fmt.Errorf("organizer: no monitor folder could be watched")
	}

	var (
		passTimer *time.Timer
		passCh    <-chan time.Time
	)
	schedulePass := func() {
		if passTimer == nil {
			passTimer = time.NewTimer(o.debounce)
			passCh = passTimer.C
		} else {
			passTimer.Reset(o.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if passTimer != nil {
				passTimer.Stop()
			}
			o.logger.Info("watcher: stopped")
			return nil

		case <-passCh:
			if busy := o.runLogged(ctx); busy {
				schedulePass()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if scanner.Ignored(filepath.Base(ev.Name)) || ev.Op == fsnotify.Chmod {
				continue
			}
			o.logger.Debug("watcher: event", slog.String("op", ev.Op.String()), slog.String("path", ev.Name))
			schedulePass()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			o.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
