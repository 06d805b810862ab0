package persona

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounce = 200 * time.Millisecond

// Watch reloads the store whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file are
// picked up.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return err
	}
	s.log.Info("watching persona", zap.String("path", s.path))

	target := filepath.Clean(s.path)
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if pending == nil {
				pending = time.After(debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("persona watcher error", zap.Error(err))

		case <-pending:
			pending = nil
			if err := s.Reload(); err != nil {
				s.log.Warn("persona reload failed, keeping previous", zap.Error(err))
				continue
			}
			s.log.Info("persona reloaded", zap.String("name", s.Persona().Name))
		}
	}
}
