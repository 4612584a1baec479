package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig controls directory watching.
type WatchConfig struct {
	Root        string        // directory to watch, recursive
	InitialScan bool          // emit PDFs already present under Root
	Debounce    time.Duration // coalesce rapid write/rename bursts per path
}

// Watch emits the path of every PDF created or modified under cfg.Root until
// ctx is cancelled. Writes are debounced per path so a file being copied in
// is emitted once, after it settles. Watcher errors are reported on the error
// channel; both channels close when the watch stops.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	addTree := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if isHidden(path) && path != root {
					return filepath.SkipDir
				}
				return w.Add(path)
			}
			return nil
		})
	}
	if err := addTree(cfg.Root); err != nil {
		_ = w.Close()
		return nil, nil, err
	}

	paths := make(chan string, 64)
	errs := make(chan error, 1)

	var initial []string
	if cfg.InitialScan {
		if initial, err = ScanDirectory(cfg.Root); err != nil {
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(paths)
		defer close(errs)
		defer w.Close()

		for _, p := range initial {
			select {
			case paths <- p:
			case <-ctx.Done():
				return
			}
		}

		// One timer per path keeps a slow copy from being emitted mid-write.
		// Expired timers hand their path back through due so that only this
		// goroutine ever sends on paths; a timer firing after shutdown must
		// not touch a closed channel.
		timers := map[string]*time.Timer{}
		due := make(chan string, 64)
		defer func() {
			for _, t := range timers {
				t.Stop()
			}
		}()

		emit := func(p string) {
			select {
			case paths <- p:
			case <-ctx.Done():
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case p := <-due:
				delete(timers, p)
				emit(p)
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Create != 0 {
					// A new subdirectory needs its own watch. Add is a no-op
					// failure for plain files.
					if err := addTree(e.Name); err != nil {
						logger.Debug("ingest.watch.add_skipped", "path", e.Name, "error", err)
					}
				}
				if !isAllowed(e.Name) || isHidden(e.Name) {
					continue
				}
				if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if cfg.Debounce <= 0 {
					emit(e.Name)
					continue
				}
				if t, ok := timers[e.Name]; ok {
					t.Stop()
				}
				p := e.Name
				timers[p] = time.AfterFunc(cfg.Debounce, func() {
					select {
					case due <- p:
					case <-ctx.Done():
					}
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "error", err)
				select {
				case errs <- err:
				default:
				}
			}
		}
	}()

	return paths, errs, nil
}
