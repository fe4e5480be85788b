// Package export writes note content to destinations outside the managed
// storage tree.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/quicknote/internal/apperr"
)

// Chooser picks a destination path, typically by asking the user. It
// returns apperr.ErrCanceled when the user aborts.
type Chooser interface {
	Choose(ctx context.Context, suggestedName string) (string, error)
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(ctx context.Context, suggestedName string) (string, error)

// Choose calls f.
func (f ChooserFunc) Choose(ctx context.Context, suggestedName string) (string, error) {
	return f(ctx, suggestedName)
}

// Result is the outcome of an export.
type Result struct {
	Path     string `json:"path,omitempty"`
	Canceled bool   `json:"canceled,omitempty"`
}

// Exporter resolves destinations and writes content.
type Exporter struct {
	chooser Chooser
}

// New creates an Exporter. chooser may be nil, in which case an export
// without an explicit destination is reported as canceled.
func New(chooser Chooser) *Exporter {
	return &Exporter{chooser: chooser}
}

// Export writes content to destination, or to the path returned by the
// chooser when destination is empty.
func (e *Exporter) Export(ctx context.Context, suggestedName, content, destination string) (Result, error) {
	if destination == "" {
		if e.chooser == nil {
			return Result{Canceled: true}, nil
		}
		chosen, err := e.chooser.Choose(ctx, suggestedName)
		if errors.Is(err, apperr.ErrCanceled) || (err == nil && chosen == "") {
			return Result{Canceled: true}, nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("export: choose destination: %w", err)
		}
		destination = chosen
	}

	abs, err := filepath.Abs(ExpandHome(destination))
	if err != nil {
		return Result{}, fmt.Errorf("export: resolve %s: %w", destination, err)
	}
	if err := ExportTo(abs, content); err != nil {
		return Result{}, err
	}
	return Result{Path: abs}, nil
}

// ExportTo writes content verbatim to destination, replacing any existing
// file.
func ExportTo(destination, content string) error {
	if err := os.WriteFile(destination, []byte(content), 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", destination, err)
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
