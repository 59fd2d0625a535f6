package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/dataset-generator/constants"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // emit files already present under the roots
	SkipHidden  bool          // ignore dot files and dot directories
	Debounce    time.Duration // coalesce write bursts per path
	Exclude     []string      // directories never watched, e.g. the output folder
	Logger      *slog.Logger
}

// StartWatcher emits the path of every supported file created or rewritten
// under cfg.Roots. A path is emitted once its events have been quiet for
// cfg.Debounce. Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watch.start.failed", "error", "no roots provided")
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("watch.start.failed", "error", err)
		return nil, nil, err
	}

	skip := newSkipper(cfg.SkipHidden, cfg.Exclude)
	var initial []string
	for _, root := range cfg.Roots {
		files, err := addTree(w, root, skip)
		if err != nil {
			logger.Error("watch.add_root.failed", "root", root, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
		if cfg.InitialScan {
			initial = append(initial, files...)
		}
	}
	logger.Info("watch.start", "roots", cfg.Roots, "debounce", cfg.Debounce, "initial", len(initial))

	evCh := make(chan string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watch.close.failed", "error", err)
			}
		}()

		emit := func(path string) bool {
			select {
			case evCh <- path:
				logger.Debug("watch.emit", "path", path)
				return true
			case <-ctx.Done():
				return false
			}
		}

		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		// last event time per path; flushed from this goroutine only
		pending := map[string]time.Time{}
		tick := time.NewTicker(tickInterval(cfg.Debounce))
		defer tick.Stop()

		flush := func(now time.Time) bool {
			for p, seen := range pending {
				if now.Sub(seen) < cfg.Debounce {
					continue
				}
				delete(pending, p)
				if !emit(p) {
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				logger.Info("watch.stop")
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if skip(e.Name) {
					continue
				}
				if e.Has(fsnotify.Create) && isDir(e.Name) {
					files, err := addTree(w, e.Name, skip)
					if err != nil {
						logger.Warn("watch.add_dir.failed", "path", e.Name, "error", err)
					}
					now := time.Now()
					for _, f := range files {
						pending[f] = now
					}
					continue
				}
				if !constants.IsAllowedExt(filepath.Ext(e.Name)) {
					continue
				}
				if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename) {
					pending[e.Name] = time.Now()
					if cfg.Debounce <= 0 && !flush(time.Now()) {
						return
					}
				}
			case now := <-tick.C:
				if !flush(now) {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// addTree watches root and every directory below it, returning the supported
// files already present.
func addTree(w *fsnotify.Watcher, root string, skip func(string) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path != root && skip(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if constants.IsAllowedExt(filepath.Ext(path)) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// newSkipper reports paths that must not be watched or emitted.
func newSkipper(skipHidden bool, exclude []string) func(string) bool {
	abs := make([]string, 0, len(exclude))
	for _, e := range exclude {
		if a, err := filepath.Abs(e); err == nil {
			abs = append(abs, a)
		}
	}
	return func(path string) bool {
		if skipHidden && IsHidden(path) {
			return true
		}
		p, err := filepath.Abs(path)
		if err != nil {
			return false
		}
		for _, e := range abs {
			if p == e || strings.HasPrefix(p, e+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func tickInterval(debounce time.Duration) time.Duration {
	if debounce <= 0 {
		return time.Second
	}
	if d := debounce / 4; d > 10*time.Millisecond {
		return d
	}
	return 10 * time.Millisecond
}
