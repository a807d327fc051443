package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher calls onChange once a file has been quiet for the debounce
// period after a write. The parent directory is watched so that editors
// replacing the file are noticed too.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func() error
}

func NewWatcher(path string, debounce time.Duration, onChange func() error) *Watcher {
	return &Watcher{path: filepath.Clean(path), debounce: debounce, onChange: onChange}
}

// Run blocks until ctx is cancelled or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("error watching %s: %w", w.path, err)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			errMessage := fmt.Errorf("watch error: %w", err)
			logger.Error(errMessage.Error())
		case <-timer.C:
			message := fmt.Sprintf("%s changed, rendering", w.path)
			logger.Info(message, "watch")
			if err := w.onChange(); err != nil {
				logger.Error(err.Error())
			}
		}
	}
}
