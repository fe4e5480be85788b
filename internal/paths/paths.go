// Package paths resolves the QuickNote storage root and the three directories
// beneath it.
package paths

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// AppName is used for the per-user application data directory.
const AppName = "quicknote"

const (
	activeDir  = "notes"
	recycleDir = "recycle_bin"
	logsDir    = "logs"
	logFile    = "operations.log"
)

// Layout is the set of directories QuickNote manages under a root.
type Layout struct {
	Root    string
	Active  string
	Recycle string
	Logs    string
}

// New returns the layout for root. Nothing is created on disk.
func New(root string) (Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, fmt.Errorf("paths: resolve root: %w", err)
	}
	return Layout{
		Root:    abs,
		Active:  filepath.Join(abs, activeDir),
		Recycle: filepath.Join(abs, recycleDir),
		Logs:    filepath.Join(abs, logsDir),
	}, nil
}

// DefaultRoot returns the per-user application data directory,
// e.g. ~/.config/quicknote on Linux or %AppData%\quicknote on Windows.
func DefaultRoot() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("paths: user config dir: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// Resolve returns the layout for override when it is non-empty and for
// DefaultRoot otherwise.
func Resolve(override string) (Layout, error) {
	if override != "" {
		return New(override)
	}
	root, err := DefaultRoot()
	if err != nil {
		return Layout{}, err
	}
	return New(root)
}

// LogFile returns the path of the operation log.
func (l Layout) LogFile() string {
	return filepath.Join(l.Logs, logFile)
}

// Dirs returns the managed directories in creation order.
func (l Layout) Dirs() []string {
	return []string{l.Active, l.Recycle, l.Logs}
}

// Ensure creates every managed directory that does not exist yet. A failure
// for one directory is logged and does not stop the others; the combined
// error is returned so the caller can decide, but startup is expected to
// continue.
func (l Layout) Ensure(logger *slog.Logger) error {
	var errs []error
	for _, dir := range l.Dirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("paths: create directory failed",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("paths: create %s: %w", dir, err))
			continue
		}
		logger.Debug("paths: directory ready", slog.String("dir", dir))
	}
	return errors.Join(errs...)
}
