package watcher

import (
	"errors"
	"fmt"
	"hotfolder/internal/logger"
	"hotfolder/internal/metrics"
	"hotfolder/internal/model"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

var (
	ErrInvalidRoot       = errors.New("invalid watch root")
	ErrWatcherTerminated = errors.New("watcher terminated unexpectedly")
	ErrEventsLost        = errors.New("creation events lost to queue overflow")
)

const defaultBufferSize = 100

// Watcher delivers one TransferEvent for every non-directory entry created
// under its root. Directory creations are never delivered.
type Watcher struct {
	fw         *fsnotify.Watcher
	root       string
	recursive  bool
	bufSize    int
	onOverflow func()

	eventCh  chan model.TransferEvent
	doneCh   chan struct{}
	exitedCh chan struct{}
	stopOnce sync.Once
	err      error
}

type Option func(*Watcher)

func WithBufferSize(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.bufSize = n
		}
	}
}

// WithOverflowFunc registers fn to run on the watcher goroutine whenever the
// kernel event queue overflowed and creation events were lost.
func WithOverflowFunc(fn func()) Option {
	return func(w *Watcher) {
		w.onOverflow = fn
	}
}

// Start begins monitoring root in the background.
func Start(root string, recursive bool, opts ...Option) (*Watcher, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidRoot)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, absRoot)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fw:        fw,
		root:      absRoot,
		recursive: recursive,
		bufSize:   defaultBufferSize,
		doneCh:    make(chan struct{}),
		exitedCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.eventCh = make(chan model.TransferEvent, w.bufSize)

	if recursive {
		_, err = w.addRecursive(absRoot, false)
	} else {
		err = fw.Add(absRoot)
	}
	if err != nil {
		_ = fw.Close()
		return nil, err
	}

	go w.run()

	logger.Log.Info("watcher started",
		zap.String("root", absRoot),
		zap.Bool("recursive", recursive))
	return w, nil
}

// addRecursive watches dir and every directory below it. With collect set it
// also returns the files it walked past.
func (w *Watcher) addRecursive(dir string, collect bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if collect && errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}

		if !d.IsDir() {
			if collect {
				files = append(files, path)
			}
			return nil
		}

		if err := w.fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		logger.Log.Debug("watching directory",
			zap.String("path", path))
		return nil
	})

	return files, err
}

func (w *Watcher) run() {
	defer func() {
		_ = w.fw.Close()
		close(w.eventCh)
		close(w.exitedCh)
	}()

	for {
		select {
		case <-w.doneCh:
			logger.Log.Info("watcher stopping",
				zap.String("root", w.root))
			return

		case fsEvent, ok := <-w.fw.Events:
			if !ok {
				w.terminate(fmt.Errorf("%w: event stream closed", ErrWatcherTerminated))
				return
			}

			if fsEvent.Name == w.root && (fsEvent.Has(fsnotify.Remove) || fsEvent.Has(fsnotify.Rename)) {
				w.terminate(fmt.Errorf("%w: watched root %s was removed", ErrWatcherTerminated, w.root))
				return
			}

			if !fsEvent.Has(fsnotify.Create) {
				continue
			}

			for _, path := range w.created(fsEvent.Name) {
				if !w.emit(path) {
					return
				}
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				w.terminate(fmt.Errorf("%w: error stream closed", ErrWatcherTerminated))
				return
			}

			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.overflowed()
				continue
			}

			logger.Log.Error("watcher error",
				zap.Error(err))
		}
	}
}

// terminate records err unless the watcher is being stopped.
func (w *Watcher) terminate(err error) {
	select {
	case <-w.doneCh:
		return
	default:
	}

	w.err = err
	metrics.RecordWatcherFault()
	logger.Log.Error("watcher terminated",
		zap.String("root", w.root),
		zap.Error(err))
}

func (w *Watcher) overflowed() {
	metrics.RecordOverflow()
	logger.Log.Warn("watcher queue overflowed, creation events were lost",
		zap.String("root", w.root))

	if w.onOverflow != nil {
		w.onOverflow()
	}
}

// created returns the file paths to deliver for one creation event.
func (w *Watcher) created(path string) []string {
	info, err := os.Lstat(path)
	if err != nil {
		// gone already; the handler reports it
		return []string{path}
	}

	if !info.IsDir() {
		return []string{path}
	}

	if !w.recursive {
		return nil
	}

	// files may land in the new directory before its watch is in place
	files, err := w.addRecursive(path, true)
	if err != nil {
		logger.Log.Warn("failed to watch new directory",
			zap.String("path", path),
			zap.Error(err))
	} else {
		logger.Log.Debug("added new directory to watch",
			zap.String("path", path))
	}

	return files
}

func (w *Watcher) emit(path string) bool {
	event := model.TransferEvent{
		Path:       path,
		ObservedAt: time.Now(),
	}

	select {
	case w.eventCh <- event:
		metrics.RecordEvent()
		return true
	case <-w.doneCh:
		return false
	}
}

func (w *Watcher) Events() <-chan model.TransferEvent {
	return w.eventCh
}

// Done is closed once the background goroutine has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.exitedCh
}

// Err reports why the watcher terminated. It is nil while running and after
// Stop.
func (w *Watcher) Err() error {
	select {
	case <-w.exitedCh:
		return w.err
	default:
		return nil
	}
}

func (w *Watcher) Root() string {
	return w.root
}

// Stop ends monitoring and waits for the background goroutine to exit.
// Calling it more than once is a no-op.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.doneCh)
	})
	<-w.exitedCh
}
