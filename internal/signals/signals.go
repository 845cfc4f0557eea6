// Package signals lets another process stop a run by dropping a file into
// the project's .surge/signals directory.
package signals

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// KillFile is the signal file that stops the active run.
const KillFile = "kill"

// ErrKilled is the cancellation cause when a kill file appears.
var ErrKilled = errors.New("kill signal received")

// Dir returns the signals directory of a project.
func Dir(projectDir string) string {
	return filepath.Join(projectDir, ".surge", "signals")
}

// Watcher cancels a context when the kill file is created or written.
type Watcher struct {
	dir    string
	logger zerolog.Logger

	watcher *fsnotify.Watcher
	cancel  context.CancelCauseFunc
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// Watch starts watching dir and returns a context derived from parent that
// is canceled with ErrKilled on a kill signal. A kill file left over from a
// previous run is removed first. If fsnotify is unavailable the watcher
// falls back to polling every pollInterval.
func Watch(parent context.Context, dir string, logger zerolog.Logger) (context.Context, *Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, err
	}
	if err := os.Remove(filepath.Join(dir, KillFile)); err != nil && !os.IsNotExist(err) {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancelCause(parent)
	w := &Watcher{
		dir:    dir,
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	fw, err := fsnotify.NewWatcher()
	if err == nil {
		if err = fw.Add(dir); err != nil {
			fw.Close()
		}
	}
	if err != nil {
		logger.Debug().Err(err).Msg("fsnotify unavailable, polling for signals")
		w.wg.Add(1)
		go w.poll(cancel)
		return ctx, w, nil
	}

	w.watcher = fw
	w.wg.Add(1)
	go w.watch(cancel)
	return ctx, w, nil
}

const pollInterval = 500 * time.Millisecond

func (w *Watcher) watch(cancel context.CancelCauseFunc) {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != KillFile {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.logger.Warn().Str("path", event.Name).Msg("kill signal received")
				cancel(ErrKilled)
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Debug().Err(err).Msg("signal watcher error")
		}
	}
}

func (w *Watcher) poll(cancel context.CancelCauseFunc) {
	defer w.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if w.Killed() {
				w.logger.Warn().Msg("kill signal received")
				cancel(ErrKilled)
				return
			}
		}
	}
}

// Killed reports whether the kill file currently exists.
func (w *Watcher) Killed() bool {
	_, err := os.Stat(filepath.Join(w.dir, KillFile))
	return err == nil
}

// Close stops the watcher and releases its context. It is safe to call more
// than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.watcher != nil {
			err = w.watcher.Close()
		}
		w.wg.Wait()
		w.cancel(context.Canceled)
	})
	return err
}

// SendKill writes the kill file into dir.
func SendKill(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, KillFile), []byte(time.Now().Format(time.RFC3339)), 0644)
}
