package synonyms

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Path     string        // catalog file to follow
	Debounce time.Duration // coalesce editor write/rename bursts
}

// Watch reloads the store whenever the catalog file changes, until ctx is done.
// The parent directory is watched so that atomic rename-into-place saves are seen.
// The returned channel reports reload errors and is closed when watching stops.
func (s *Store) Watch(ctx context.Context, cfg WatchConfig) (<-chan error, error) {
	if cfg.Path == "" {
		return nil, errors.New("no catalog path provided")
	}
	target, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, err
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		s.logger.Error("failed to watch catalog directory", "path", target, "error", err)
		_ = w.Close()
		return nil, err
	}

	errCh := make(chan error, 1)
	report := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}
	reloadCh := make(chan struct{}, 1)

	go func() {
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				s.logger.Warn("failed to close watcher", "error", err)
			}
		}()

		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		trigger := func() {
			select {
			case reloadCh <- struct{}{}:
			default:
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(e.Name) != target || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if cfg.Debounce > 0 {
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(cfg.Debounce, trigger)
				} else {
					trigger()
				}
			case <-reloadCh:
				s.logger.Info("catalog file changed", "path", target)
				if err := s.Reload(ctx); err != nil {
					report(err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Error("watcher error", "error", err)
				report(err)
			}
		}
	}()

	return errCh, nil
}
