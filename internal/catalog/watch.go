package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SynonymWatcher reloads a synonyms file into a Mapper when it changes.
// A file that fails to parse is logged and the previous table stays active.
type SynonymWatcher struct {
	path    string
	mapper  *Mapper
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	settle  time.Duration

	mu    sync.Mutex
	timer *time.Timer

	done chan struct{}
	wg   sync.WaitGroup

	// onReload is called after every reload attempt.
	onReload func(error)
}

// NewSynonymWatcher watches path. The parent directory is watched so
// editors that replace the file by rename are handled.
func NewSynonymWatcher(path string, mapper *Mapper, logger *slog.Logger) (*SynonymWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	return &SynonymWatcher{
		path:    path,
		mapper:  mapper,
		logger:  logger,
		watcher: watcher,
		settle:  100 * time.Millisecond,
		done:    make(chan struct{}),
	}, nil
}

// Start processes file events until ctx is done or Stop is called.
func (w *SynonymWatcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.processEvents(ctx)
}

// Stop ends watching and waits for the event loop to exit.
func (w *SynonymWatcher) Stop() error {
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}
	err := w.watcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}

func (w *SynonymWatcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("synonyms watcher error", "error", err)
		}
	}
}

// scheduleReload waits for writes to settle before reading the file.
func (w *SynonymWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.settle, w.reload)
}

func (w *SynonymWatcher) reload() {
	syn, err := LoadSynonyms(w.path)
	if err != nil {
		w.logger.Warn("keeping previous tag synonyms", "path", w.path, "error", err)
	} else {
		w.mapper.SetSynonyms(syn)
		w.logger.Info("reloaded tag synonyms", "path", w.path, "aliases", syn.Len())
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}
