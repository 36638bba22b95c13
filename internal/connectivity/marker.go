package connectivity

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// MarkerWatcher watches the offline marker file.
//
// When the marker appears the monitor is set unreachable immediately.
// When it disappears nothing changes until the next probe; OnChange lets
// the caller kick a prober so that happens right away.
type MarkerWatcher struct {
	path    string
	monitor *Monitor
	log     *log.Entry

	// OnChange, if set, is called with the marker's new presence.
	OnChange func(present bool)

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewMarkerWatcher creates a watcher for the marker at path.
// The watcher must be started with Start before it reacts to changes.
func NewMarkerWatcher(path string, monitor *Monitor, logger *log.Logger) (*MarkerWatcher, error) {
	if monitor == nil {
		return nil, fmt.Errorf("monitor cannot be nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &MarkerWatcher{
		path:    filepath.Clean(path),
		monitor: monitor,
		log:     logger.WithField("component", "marker"),
		watcher: w,
		done:    make(chan struct{}),
	}, nil
}

// Start watches the marker's directory. If the marker already exists the
// monitor is set unreachable before Start returns.
func (mw *MarkerWatcher) Start() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	if mw.running {
		return fmt.Errorf("marker watcher already running")
	}

	dir := filepath.Dir(mw.path)
	if err := mw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	if MarkerPresent(mw.path) {
		mw.monitor.Set(false)
	}

	mw.running = true
	mw.wg.Add(1)
	go mw.processEvents()
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (mw *MarkerWatcher) Stop() error {
	mw.mu.Lock()
	if !mw.running {
		mw.mu.Unlock()
		return mw.watcher.Close()
	}
	mw.running = false
	mw.mu.Unlock()

	close(mw.done)
	if err := mw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	mw.wg.Wait()
	return nil
}

// IsRunning returns true if the watcher is currently running.
func (mw *MarkerWatcher) IsRunning() bool {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.running
}

func (mw *MarkerWatcher) processEvents() {
	defer mw.wg.Done()

	for {
		select {
		case <-mw.done:
			return

		case event, ok := <-mw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != mw.path {
				continue
			}
			switch {
			case event.Has(fsnotify.Create):
				mw.log.Info("offline marker created, forcing offline")
				mw.monitor.Set(false)
				mw.notify(true)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				mw.log.Info("offline marker removed")
				mw.notify(false)
			}

		case err, ok := <-mw.watcher.Errors:
			if !ok {
				return
			}
			mw.log.WithError(err).Warn("marker watcher error")
		}
	}
}

func (mw *MarkerWatcher) notify(present bool) {
	if mw.OnChange != nil {
		mw.OnChange(present)
	}
}
