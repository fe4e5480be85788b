// Package recyclebin holds soft-deleted notes and purges them once they are
// older than the retention window.
package recyclebin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/quicknote/internal/apperr"
	"github.com/starford/quicknote/internal/models"
	"github.com/starford/quicknote/internal/storage"
)

// DefaultRetention is how long a deleted note is kept.
const DefaultRetention = 30 * 24 * time.Hour

// Policy decides what happens when a note is deleted while the bin already
// holds an entry of the same name.
type Policy string

const (
	// PolicyPreserve renames the older entry aside so both copies survive.
	PolicyPreserve Policy = "preserve"
	// PolicyOverwrite replaces the older entry (last delete wins).
	PolicyOverwrite Policy = "overwrite"
)

const asideStamp = "20060102T150405.000000000Z"

// Option configures a Bin.
type Option func(*Bin)

// WithRetention sets the retention window.
func WithRetention(d time.Duration) Option {
	return func(b *Bin) { b.retention = d }
}

// WithPolicy sets the name collision policy.
func WithPolicy(p Policy) Option {
	return func(b *Bin) { b.policy = p }
}

// WithClock overrides the time source used to stamp received entries.
func WithClock(now func() time.Time) Option {
	return func(b *Bin) { b.now = now }
}

// Bin is the recycle bin directory.
type Bin struct {
	dir       *storage.Dir
	retention time.Duration
	policy    Policy
	now       func() time.Time
}

// New creates a Bin over dir.
func New(dir *storage.Dir, opts ...Option) *Bin {
	b := &Bin{
		dir:       dir,
		retention: DefaultRetention,
		policy:    PolicyPreserve,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dir returns the underlying directory.
func (b *Bin) Dir() *storage.Dir {
	return b.dir
}

// Retention returns the retention window.
func (b *Bin) Retention() time.Duration {
	return b.retention
}

// Receive moves name from src into the bin under the same name and stamps
// its modification time with the deletion time, so the retention window
// counts from the delete. It reports false without touching the bin when
// src has no such file.
func (b *Bin) Receive(src *storage.Dir, name string) (bool, error) {
	ok, err := src.Exists(name)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if b.policy == PolicyPreserve {
		if err := b.setAside(name); err != nil {
			return false, err
		}
	}

	if err := src.MoveTo(b.dir, name, name); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !errors.Is(err, apperr.ErrDirectoryMissing) {
			// Removed concurrently after the existence check.
			return false, nil
		}
		return false, fmt.Errorf("recyclebin: receive %s: %w", name, err)
	}

	// Best effort: on failure the entry keeps its last-edit mtime and simply
	// expires earlier.
	_ = b.dir.Touch(name, b.now())
	return true, nil
}

// setAside renames an existing entry called name to a unique stamped name.
// Rename keeps the entry's modification time, so its expiry is unchanged.
func (b *Bin) setAside(name string) error {
	existing, err := b.dir.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("recyclebin: stat %s: %w", name, err)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	stamp := existing.ModTime.UTC().Format(asideStamp)

	alt := fmt.Sprintf("%s.%s%s", stem, stamp, ext)
	for i := 1; ; i++ {
		taken, err := b.dir.Exists(alt)
		if err != nil {
			return fmt.Errorf("recyclebin: set aside %s: %w", name, err)
		}
		if !taken {
			break
		}
		alt = fmt.Sprintf("%s.%s-%d%s", stem, stamp, i, ext)
	}
	if err := b.dir.Rename(name, alt); err != nil {
		return fmt.Errorf("recyclebin: set aside %s: %w", name, err)
	}
	return nil
}

// List returns the entries currently in the bin, sorted by name.
func (b *Bin) List() ([]models.RecycleEntry, error) {
	entries, err := b.dir.List()
	if err != nil {
		return nil, err
	}
	out := make([]models.RecycleEntry, len(entries))
	for i, e := range entries {
		out[i] = models.RecycleEntry{Name: e.Name, Size: e.Size, ModTime: e.ModTime}
	}
	return out, nil
}

// Report summarises one sweep.
type Report struct {
	Scanned int      `json:"scanned"`
	Purged  []string `json:"purged"`
	Failed  int      `json:"failed"`
}

// Sweep permanently removes every entry whose modification time is more than
// the retention window before now. Failures for individual entries are
// counted and skipped; only a failure to read the directory is returned. A
// missing directory is an empty sweep.
func (b *Bin) Sweep(now time.Time) (Report, error) {
	rep := Report{Purged: []string{}}
	root := b.dir.Root()

	des, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return rep, nil
		}
		return rep, fmt.Errorf("recyclebin: read %s: %w", root, err)
	}

	for _, de := range des {
		rep.Scanned++
		p := filepath.Join(root, de.Name())

		info, err := os.Lstat(p)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				rep.Failed++
			}
			continue
		}
		if now.Sub(info.ModTime()) <= b.retention {
			continue
		}
		if err := os.Remove(p); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				rep.Failed++
			}
			continue
		}
		rep.Purged = append(rep.Purged, de.Name())
	}
	return rep, nil
}
