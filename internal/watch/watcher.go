// Package watch reports changes made to the active note directory by other
// programs (editors, sync tools, the shell).
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/quicknote/internal/debounce"
	"github.com/starford/quicknote/internal/storage"
)

// Kind describes what happened to a note on disk.
type Kind string

const (
	KindChanged Kind = "changed"
	KindRemoved Kind = "removed"
)

// DefaultSettle is how long a name must be quiet before it is reported.
const DefaultSettle = 100 * time.Millisecond

// Matcher reports whether a file name is a recognized note.
type Matcher func(name string) bool

// EventCallback is called once a burst of events for a note has settled.
type EventCallback func(kind Kind, name string)

// Watch observes dir until ctx is cancelled. Events are coalesced per name:
// after the name has been quiet for settle, the file is checked and reported
// as changed if it exists or removed if it does not. Temporary files and
// names rejected by match are ignored.
func Watch(ctx context.Context, dir string, match Matcher, settle time.Duration, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", dir, err)
	}
	if settle <= 0 {
		settle = DefaultSettle
	}

	pending := debounce.NewKeyed(settle)
	defer pending.Stop()

	logger.Info("watcher: started", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Dir(ev.Name) != filepath.Clean(dir) {
				continue
			}
			name := filepath.Base(ev.Name)
			if storage.ValidateName(name) != nil || (match != nil && !match(name)) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			path := ev.Name
			pending.Trigger(name, func() {
				kind := KindChanged
				info, statErr := os.Stat(path)
				switch {
				case errors.Is(statErr, fs.ErrNotExist):
					kind = KindRemoved
				case statErr != nil:
					logger.Warn("watcher: stat failed",
						slog.String("name", name),
						slog.String("error", statErr.Error()))
					return
				case !info.Mode().IsRegular():
					return
				}
				logger.Debug("watcher: settled", slog.String("name", name), slog.String("kind", string(kind)))
				if cb != nil {
					cb(kind, name)
				}
			})

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
