package ingest

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DropWatcher watches a drop folder and reports files that land in it. Each
// file path is debounced individually so a file still being written is only
// reported once it has settled.
type DropWatcher struct {
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	onFile   func(path string)
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	stopCh chan struct{}
}

// NewDropWatcher creates a drop-folder watcher. onFile is called with the
// path of each settled file.
func NewDropWatcher(logger zerolog.Logger, onFile func(path string)) (*DropWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dw := &DropWatcher{
		watcher:  watcher,
		logger:   logger,
		onFile:   onFile,
		debounce: 500 * time.Millisecond,
		timers:   make(map[string]*time.Timer),
		stopCh:   make(chan struct{}),
	}

	go dw.run()

	return dw, nil
}

// Watch starts watching a directory.
func (dw *DropWatcher) Watch(path string) error {
	return dw.watcher.Add(path)
}

// Stop stops the watcher.
func (dw *DropWatcher) Stop() error {
	close(dw.stopCh)
	return dw.watcher.Close()
}

func (dw *DropWatcher) run() {
	for {
		select {
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}

			// Skip hidden and partial files.
			base := filepath.Base(event.Name)
			if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".part") {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				dw.logger.Debug().
					Str("file", base).
					Str("op", event.Op.String()).
					Msg("Drop folder change detected")

				dw.scheduleFile(event.Name)
			}

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			dw.logger.Error().Err(err).Msg("Drop watcher error")

		case <-dw.stopCh:
			return
		}
	}
}

// scheduleFile debounces per path so repeated writes reset the timer.
func (dw *DropWatcher) scheduleFile(path string) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if timer, ok := dw.timers[path]; ok {
		timer.Stop()
	}

	dw.timers[path] = time.AfterFunc(dw.debounce, func() {
		dw.mu.Lock()
		delete(dw.timers, path)
		dw.mu.Unlock()

		dw.logger.Debug().Str("file", filepath.Base(path)).Msg("File settled in drop folder")
		dw.onFile(path)
	})
}
