package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SyncFromLocal copies the whole local library directory into the library
// root, overwriting remote files of the same name. With pruneLocal, local
// subdirectories are removed afterwards, leaving only top-level files.
func (s *Service) SyncFromLocal(ctx context.Context, pruneLocal bool) (CopyStats, error) {
	if s.opts.LibraryDir == "" {
		return CopyStats{}, errors.New("library: no local library directory configured")
	}

	stats, err := s.CopyTree(ctx, s.opts.LibraryDir, "", CopyOptions{CreateRoot: false, Replace: true})
	if err != nil {
		return stats, err
	}

	if pruneLocal {
		if err := s.pruneLocalDirs(); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func (s *Service) pruneLocalDirs() error {
	entries, err := os.ReadDir(s.opts.LibraryDir)
	if err != nil {
		return fmt.Errorf("library: listing %s: %w", s.opts.LibraryDir, err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		dir := filepath.Join(s.opts.LibraryDir, e.Name())
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("library: removing %s: %w", dir, err)
		}

		s.logger.Info("removed local directory", slog.String("path", dir))
	}

	return nil
}

// WatchLocal watches the local library directory and runs SyncFromLocal
// once the tree has been quiet for debounce. onSync, if non-nil, receives
// the result of every run. Returns nil when ctx is canceled.
func (s *Service) WatchLocal(ctx context.Context, debounce time.Duration, onSync func(CopyStats, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("library: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := s.watchTree(watcher, s.opts.LibraryDir); err != nil {
		return err
	}

	s.logger.Info("watching local library",
		slog.String("dir", s.opts.LibraryDir),
		slog.Duration("debounce", debounce),
	)

	timer := time.NewTimer(debounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !s.relevant(ev) {
				continue
			}

			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := s.watchTree(watcher, ev.Name); err != nil {
						s.logger.Warn("watching new directory failed",
							slog.String("path", ev.Name),
							slog.String("error", err.Error()),
						)
					}
				}
			}

			s.logger.Debug("local change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			s.logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-timer.C:
			stats, err := s.SyncFromLocal(ctx, false)
			if err != nil {
				s.logger.Error("sync after local change failed", slog.String("error", err.Error()))
			}

			if onSync != nil {
				onSync(stats, err)
			}
		}
	}
}

// relevant filters out chmod-only events and ignored paths.
func (s *Service) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}

	rel, err := filepath.Rel(s.opts.LibraryDir, ev.Name)
	if err != nil {
		return true
	}

	return !s.ignored(filepath.ToSlash(rel))
}

// watchTree adds root and every directory below it to the watcher.
func (s *Service) watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("library: walking %s: %w", p, err)
		}

		if !d.IsDir() {
			return nil
		}

		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("library: watching %s: %w", p, err)
		}

		return nil
	})
}
