package fixture

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/neboloop/extharness/internal/logging"
)

const debounce = 100 * time.Millisecond

// Watcher reports writes to files in the fixture directory. Bursts of events
// (editors often write several times) are folded into one notification.
type Watcher struct {
	fs      *fsnotify.Watcher
	changes chan string
	once    sync.Once
	done    chan struct{}
}

// Watch starts watching root.
func Watch(root string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	w := &Watcher{
		fs:      fw,
		changes: make(chan string, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes delivers the base name of the last changed file of each burst.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) loop() {
	log := logging.Component("fixture-watch")

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
	)
	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = filepath.Base(ev.Name)
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			select {
			case w.changes <- pending:
			default:
				// a notification is already queued; the reader reloads anyway
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error", "error", err)
		}
	}
}
