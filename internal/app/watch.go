package app

import (
	"os"
	"time"
)

// FileWatcher polls a file's modification time and size and calls a callback
// each time either changes. main uses it to rerun a job when its file is
// edited.
type FileWatcher struct {
	path          string
	modTime       time.Time
	size          int64
	checkInterval time.Duration
	stopCh        chan struct{}
	done          chan struct{}
	onChange      func()
}

// NewFileWatcher creates a watcher for path. Returns nil if the file cannot
// be stat'ed.
func NewFileWatcher(path string, checkInterval time.Duration) *FileWatcher {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	return &FileWatcher{
		path:          path,
		modTime:       info.ModTime(),
		size:          info.Size(),
		checkInterval: checkInterval,
	}
}

// OnChange sets the callback. It runs on the watcher goroutine.
func (w *FileWatcher) OnChange(callback func()) {
	w.onChange = callback
}

// Start begins watching in a background goroutine.
func (w *FileWatcher) Start() {
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.watchLoop()
}

// Stop stops the watcher goroutine and waits for it to exit. No callback runs
// after Stop returns.
func (w *FileWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.done
	w.stopCh = nil
}

// Path returns the watched file.
func (w *FileWatcher) Path() string { return w.path }

func (w *FileWatcher) watchLoop() {
	defer close(w.done)
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.checkForUpdate() && w.onChange != nil {
				w.onChange()
			}
		}
	}
}

// checkForUpdate reports whether the file changed since the last check and
// moves the baseline forward.
func (w *FileWatcher) checkForUpdate() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	if info.ModTime().Equal(w.modTime) && info.Size() == w.size {
		return false
	}
	w.modTime = info.ModTime()
	w.size = info.Size()
	return true
}
