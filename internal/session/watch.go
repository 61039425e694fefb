package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"go-expanded-storage/internal/storage"
	"go-expanded-storage/pkg/fsutils"
)

// DefaultDebounce is how long Watch waits for file events to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watch reloads the session whenever files under the packs directory change,
// until ctx is done. Saved overlays and hidden files do not trigger a reload.
// onReload, if set, is called after every reload.
func (s *Session) Watch(ctx context.Context, debounce time.Duration, onReload func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := s.watchTree(watcher); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignored(event.Name) {
				continue
			}
			s.logger.Debug("Content pack changed", "path", event.Name, "op", event.Op.String())
			if event.Op.Has(fsnotify.Create) && fsutils.DirExists(event.Name) {
				_ = watcher.Add(event.Name)
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("File watcher error", "error", err)
		case <-timer.C:
			_, err := s.Reload()
			if err != nil {
				s.logger.Error("Failed to reload content packs", "error", err)
			}
			if werr := s.watchTree(watcher); werr != nil {
				s.logger.Warn("Failed to watch content packs", "error", werr)
			}
			if onReload != nil {
				onReload(err)
			}
		}
	}
}

// watchTree adds the packs directory and every pack directory to watcher.
func (s *Session) watchTree(watcher *fsnotify.Watcher) error {
	root := s.cfg.PacksDir
	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	dirs, err := fsutils.ListDirs(root)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := watcher.Add(filepath.Join(root, dir)); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	return nil
}

func ignored(path string) bool {
	base := filepath.Base(path)
	return base == storage.ConfigFileName || strings.HasPrefix(base, ".")
}
