package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk. The parent
// directory is watched so editors that replace the file by rename are seen.
type Watcher struct {
	path     string
	onChange func(*LoadResult)
	log      *zap.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// Watch starts watching path. onChange receives every successfully loaded
// configuration; a file that fails to load is logged and the previous
// configuration stays in effect.
func Watch(ctx context.Context, path string, log *zap.Logger, onChange func(*LoadResult)) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{
		path:     abs,
		onChange: onChange,
		log:      log.Named("config"),
		watcher:  fw,
		done:     make(chan struct{}),
	}
	go w.run(ctx)
	return w, nil
}

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	// Fires only after the first relevant event.
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(reloadDebounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watch error", zap.Error(err))

		case <-debounce.C:
			res, err := LoadFromPath(w.path)
			if err != nil {
				w.log.Warn("config reload failed, keeping previous config", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.log.Info("config reloaded", zap.String("path", w.path))
			w.onChange(res)
		}
	}
}
