// Package watcher reports content changes of the store file, including
// edits made by other processes.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notable/internal/checksum"
)

const debounce = 200 * time.Millisecond

// Watch observes the directory holding path and calls onChange after the
// file's content digest changes. Bursts of events are debounced, and events
// that leave the content unchanged are ignored. It blocks until ctx is done.
//
// The directory is watched rather than the file because atomic saves replace
// the file's inode on every write.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	last := digest(abs)
	logger.Info("watcher: started", slog.String("path", abs))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
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
			cur := digest(abs)
			if cur == last {
				continue
			}
			last = cur
			logger.Debug("watcher: store changed", slog.String("checksum", cur))
			if onChange != nil {
				onChange()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// digest returns the file checksum, or "" when it cannot be read.
func digest(path string) string {
	sum, err := checksum.File(path)
	if err != nil {
		return ""
	}
	return sum
}
