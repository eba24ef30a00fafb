package bundler

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval is how long Watch waits for a burst of events to settle.
const DebounceInterval = 200 * time.Millisecond

// ChangeFunc receives the paths, relative to the watched root, that changed
// in one burst.
type ChangeFunc func(paths []string)

// Watch watches root and every directory below it until ctx is cancelled,
// calling onChange once per burst of events. Directories created while
// watching are added automatically. When root is a file, its parent
// directory is watched and only events for root itself are reported, with
// paths relative to that parent.
func Watch(ctx context.Context, root string, logger *slog.Logger, onChange ChangeFunc) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	base, only := root, ""
	if info.IsDir() {
		if err := addDirsRecursive(w, root); err != nil {
			return err
		}
	} else {
		base, only = filepath.Dir(root), root
		if err := w.Add(base); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var timerCh <-chan time.Time
	pending := map[string]struct{}{}

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(DebounceInterval)
			timerCh = timer.C
		} else {
			timer.Reset(DebounceInterval)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = map[string]struct{}{}
			logger.Debug("watcher: change burst", slog.Int("paths", len(paths)))
			onChange(paths)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Chmod != 0 && ev.Op&^fsnotify.Chmod == 0 {
				continue
			}
			if only != "" && filepath.Clean(ev.Name) != only {
				continue
			}
			if only == "" && ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
				}
			}
			pending[relative(base, ev.Name)] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
