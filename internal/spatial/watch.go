package spatial

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch rebuilds the snapshot whenever a source export changes. Events
// are debounced because exports are written as several files in
// sequence. Blocks until ctx is cancelled.
func (m *Manager) Watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	paths := m.source.SourcePaths()
	if len(paths) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	// Exports land in one directory. Watching the directory instead of
	// the files survives replace-by-rename updates.
	dir := filepath.Dir(paths[0])
	if err := watcher.Add(dir); err != nil {
		return err
	}

	wanted := make(map[string]bool, len(paths))
	for _, p := range paths {
		wanted[filepath.Base(p)] = true
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !wanted[filepath.Base(ev.Name)] {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			m.logger.Debug("source export changed",
				zap.String("file", ev.Name),
				zap.String("op", ev.Op.String()),
			)
			pending = time.After(debounce)

		case <-pending:
			pending = nil
			m.logger.Info("source exports changed, rebuilding snapshot")
			if _, err := m.Rebuild(ctx); err != nil {
				m.logger.Error("snapshot rebuild failed, keeping previous snapshot", zap.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("export watcher error", zap.Error(err))
		}
	}
}
