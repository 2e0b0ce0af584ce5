package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tagsortd/internal/log"

	"github.com/fsnotify/fsnotify"
)

// FileModification represents a file event detected by the watcher
type FileModification struct {
	Path      string
	Info      os.FileInfo
	Timestamp time.Time
	Op        fsnotify.Op
}

// Filter decides from the entry name whether an event is worth a wake-up.
type Filter func(name string) bool

// Watcher monitors source directories with fsnotify and reports files that
// may be ready to organize. It only shortens the wait between checks; the
// scheduler still scans on its own interval.
type Watcher struct {
	// Directories being watched
	directories []string

	// Channel to receive file modifications
	fileModChan chan FileModification

	// Channel to signal stop
	stopChan chan struct{}

	// Signals the event loop has exited
	done chan struct{}

	// fsnotify watcher instance
	fsWatcher *fsnotify.Watcher

	filter Filter

	// Lock for running state and the directories list
	mutex sync.RWMutex

	// Whether the watcher is running
	running bool
}

// NewWatcher creates a new directory watcher using fsnotify. A nil filter
// passes every file.
func NewWatcher(filter Filter) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}

	return &Watcher{
		directories: []string{},
		fileModChan: make(chan FileModification, 1),
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
		fsWatcher:   fsWatcher,
		filter:      filter,
	}, nil
}

// AddDirectory adds a directory to watch using fsnotify
func (w *Watcher) AddDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("error accessing directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to add directory %s to watcher: %w", dir, err)
	}

	w.mutex.Lock()
	found := false
	for _, existingDir := range w.directories {
		if existingDir == dir {
			found = true
			break
		}
	}
	if !found {
		w.directories = append(w.directories, dir)
	}
	w.mutex.Unlock()
	log.LogWithFields(log.F("directory", dir)).Debug("Watching directory")
	return nil
}

// FileChannel returns the channel that delivers file modification events.
// It holds at most one pending event: a second event before the first is
// consumed would cause the same wake-up and is dropped.
func (w *Watcher) FileChannel() <-chan FileModification {
	return w.fileModChan
}

// Start begins the file watching process using fsnotify
func (w *Watcher) Start() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.running {
		return fmt.Errorf("watcher already running")
	}
	w.running = true

	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.LogWithFields(log.F("error", err)).Warn("fsnotify watcher error")

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	// A finished download usually shows up as a create (rename into place)
	// or a final write.
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if !w.filter(filepath.Base(event.Name)) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		if !os.IsNotExist(err) {
			log.LogWithFields(log.F("file", event.Name), log.F("error", err)).Warn("Error stating file")
		}
		return
	}
	if info.IsDir() {
		return
	}

	mod := FileModification{
		Path:      event.Name,
		Info:      info,
		Timestamp: time.Now(),
		Op:        event.Op,
	}
	select {
	case w.fileModChan <- mod:
	default:
	}
}

// Stop halts the file watching process and closes the event channel.
func (w *Watcher) Stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.running {
		return
	}

	close(w.stopChan)
	if err := w.fsWatcher.Close(); err != nil {
		log.LogWithFields(log.F("error", err)).Warn("Error closing fsnotify watcher")
	}
	<-w.done

	w.running = false
	close(w.fileModChan)
}

// IsRunning returns whether the watcher is currently active
func (w *Watcher) IsRunning() bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.running
}

// GetDirectories returns the list of directories being watched
func (w *Watcher) GetDirectories() []string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	dirsCopy := make([]string, len(w.directories))
	copy(dirsCopy, w.directories)
	return dirsCopy
}
