package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const DefaultDebounce = 2 * time.Second

// Watcher observes a dataset path and invokes the callback when its contents
// change. Bursts of writes (staging, rsync) are coalesced: the callback fires
// once per quiet period, with the last changed path as the dataset ref.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(datasetRef string)
}

func New(path string, debounce time.Duration, onChange func(datasetRef string)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{path: path, debounce: debounce, onChange: onChange}
}

// Run blocks watching the path until the context is canceled or the watch
// breaks. The callback runs on the watcher goroutine; long work should be
// handed off by the callee.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create dataset watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.path); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	log.WithField("path", w.path).Info("watching dataset for changes")

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
				!event.Op.Has(fsnotify.Rename) && !event.Op.Has(fsnotify.Remove) {
				continue
			}
			pending = event.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("dataset watcher error")

		case <-timerC:
			log.WithField("dataset", pending).Info("dataset changed")
			w.onChange(pending)
			timer = nil
			timerC = nil
		}
	}
}
