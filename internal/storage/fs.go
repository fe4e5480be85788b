// Package storage implements flat directories of named files on the local
// file system. Names are validated before any path is resolved.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/starford/quicknote/internal/apperr"
)

const tempPrefix = ".quicknote-tmp-"

// Entry describes one file in a Dir.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Dir is a flat directory addressed by plain file names. The directory does
// not have to exist when the Dir is created; operations against a missing
// directory fail with apperr.ErrDirectoryMissing.
type Dir struct {
	root string // absolute path
}

// NewDir creates a Dir rooted at the given path.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute directory path.
func (d *Dir) Root() string {
	return d.root
}

// Path resolves name to an absolute path directly under the directory.
func (d *Dir) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	abs := filepath.Join(d.root, name)
	// Ensure the resolved path is an immediate child of root.
	if filepath.Dir(abs) != d.root {
		return "", fmt.Errorf("%w: %q escapes %s", apperr.ErrInvalidName, name, d.root)
	}
	return abs, nil
}

// Available reports whether the directory exists.
func (d *Dir) Available() bool {
	info, err := os.Stat(d.root)
	return err == nil && info.IsDir()
}

// List returns every regular file in the directory, sorted by name.
// A missing directory yields an empty result.
func (d *Dir) List() ([]Entry, error) {
	des, err := os.ReadDir(d.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list %s: %w", d.root, err)
	}
	out := make([]Entry, 0, len(des))
	for _, de := range des {
		if !de.Type().IsRegular() || strings.HasPrefix(de.Name(), tempPrefix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		out = append(out, Entry{Name: de.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read returns the raw bytes of a file.
func (d *Dir) Read(name string) ([]byte, error) {
	abs, err := d.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}

// Stat returns the entry for name.
func (d *Dir) Stat(name string) (Entry, error) {
	abs, err := d.Path(name)
	if err != nil {
		return Entry{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Entry{}, fmt.Errorf("storage: stat %s: %w", name, err)
	}
	return Entry{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Exists reports whether name is present.
func (d *Dir) Exists(name string) (bool, error) {
	_, err := d.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Write atomically writes content: tmp file → fsync → rename. Readers see
// either the previous content or the new content, never a partial write.
func (d *Dir) Write(name string, content []byte) error {
	abs, err := d.Path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.root, tempPrefix+"*")
	if err != nil {
		return d.ioErr("create temp", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Remove deletes a file.
func (d *Dir) Remove(name string) error {
	abs, err := d.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: remove %s: %w", name, err)
	}
	return nil
}

// Rename renames a file within the directory, replacing newName if present.
func (d *Dir) Rename(oldName, newName string) error {
	absOld, err := d.Path(oldName)
	if err != nil {
		return err
	}
	absNew, err := d.Path(newName)
	if err != nil {
		return err
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: rename %s: %w", oldName, err)
	}
	return nil
}

// MoveTo moves name from d into dst as dstName, replacing any existing file
// of that name. A missing source surfaces as fs.ErrNotExist; a missing
// destination directory as apperr.ErrDirectoryMissing.
func (d *Dir) MoveTo(dst *Dir, name, dstName string) error {
	absSrc, err := d.Path(name)
	if err != nil {
		return err
	}
	absDst, err := dst.Path(dstName)
	if err != nil {
		return err
	}
	if !dst.Available() {
		return fmt.Errorf("storage: move %s: %w: %s", name, apperr.ErrDirectoryMissing, dst.root)
	}
	if err := os.Rename(absSrc, absDst); err != nil {
		return fmt.Errorf("storage: move %s: %w", name, err)
	}
	return nil
}

// Touch sets the access and modification time of name.
func (d *Dir) Touch(name string, t time.Time) error {
	abs, err := d.Path(name)
	if err != nil {
		return err
	}
	if err := os.Chtimes(abs, t, t); err != nil {
		return fmt.Errorf("storage: touch %s: %w", name, err)
	}
	return nil
}

func (d *Dir) ioErr(op string, err error) error {
	if errors.Is(err, fs.ErrNotExist) && !d.Available() {
		return fmt.Errorf("storage: %s: %w: %s: %w", op, apperr.ErrDirectoryMissing, d.root, err)
	}
	return fmt.Errorf("storage: %s: %w", op, err)
}
