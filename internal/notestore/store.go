// Package notestore implements CRUD over the active set of notes.
package notestore

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/starford/quicknote/internal/apperr"
	"github.com/starford/quicknote/internal/models"
	"github.com/starford/quicknote/internal/oplog"
	"github.com/starford/quicknote/internal/recyclebin"
	"github.com/starford/quicknote/internal/storage"
)

// Recorder receives audit entries for mutating operations.
type Recorder interface {
	Record(operation, details string)
}

// Store is the active note directory. Save does not write an audit entry;
// Delete does.
type Store struct {
	dir      *storage.Dir
	bin      *recyclebin.Bin
	log      Recorder
	patterns Patterns
}

// New creates a Store. A nil patterns value selects DefaultPatterns.
func New(dir *storage.Dir, bin *recyclebin.Bin, log Recorder, patterns Patterns) *Store {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return &Store{dir: dir, bin: bin, log: log, patterns: patterns}
}

// Dir returns the active directory.
func (s *Store) Dir() *storage.Dir {
	return s.dir
}

// Patterns returns the recognized note patterns.
func (s *Store) Patterns() Patterns {
	return s.patterns
}

// ResolveName checks that name is a valid note name and returns the file
// name that holds it. Names are kept byte for byte; when no file has exactly
// that name, an existing file whose name is canonically equivalent (same NFC
// form) is used instead, so a note stored by another tool in decomposed form
// stays reachable under its composed spelling and vice versa.
func (s *Store) ResolveName(name string) (string, error) {
	if err := storage.ValidateName(name); err != nil {
		return "", err
	}
	if !s.patterns.Match(name) {
		return "", fmt.Errorf("%w: %q has no recognized extension", apperr.ErrInvalidName, name)
	}

	ok, err := s.dir.Exists(name)
	if err != nil || ok {
		return name, err
	}
	entries, err := s.dir.List()
	if err != nil {
		return "", fmt.Errorf("notestore: resolve %s: %w", name, err)
	}
	want := storage.NormalizeName(name)
	for _, e := range entries {
		if storage.NormalizeName(e.Name) == want && s.patterns.Match(e.Name) {
			return e.Name, nil
		}
	}
	return name, nil
}

// List returns every recognized note in the active directory, sorted by
// name. A missing directory yields an empty result.
func (s *Store) List() ([]models.Note, error) {
	entries, err := s.dir.List()
	if err != nil {
		return nil, fmt.Errorf("notestore: list: %w", err)
	}
	out := make([]models.Note, 0, len(entries))
	for _, e := range entries {
		if !s.patterns.Match(e.Name) {
			continue
		}
		data, err := s.dir.Read(e.Name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Deleted between listing and reading.
				continue
			}
			return nil, fmt.Errorf("notestore: list: %w", err)
		}
		out = append(out, models.Note{Name: e.Name, Content: string(data)})
	}
	return out, nil
}

// Get returns a single note. Absent notes yield apperr.ErrNotFound.
func (s *Store) Get(name string) (models.Note, error) {
	name, err := s.ResolveName(name)
	if err != nil {
		return models.Note{}, err
	}
	data, err := s.dir.Read(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Note{}, fmt.Errorf("notestore: %s: %w", name, apperr.ErrNotFound)
		}
		return models.Note{}, fmt.Errorf("notestore: get: %w", err)
	}
	return models.Note{Name: name, Content: string(data)}, nil
}

// Exists reports whether a note is present.
func (s *Store) Exists(name string) (bool, error) {
	name, err := s.ResolveName(name)
	if err != nil {
		return false, err
	}
	return s.dir.Exists(name)
}

// Save creates or overwrites a note. The write is atomic: a concurrent
// reader sees the old or the new content, never a mix.
func (s *Store) Save(name, content string) error {
	name, err := s.ResolveName(name)
	if err != nil {
		return err
	}
	if err := s.dir.Write(name, []byte(content)); err != nil {
		return fmt.Errorf("notestore: save: %w", err)
	}
	return nil
}

// Delete moves a note into the recycle bin and records a DELETE entry. It
// returns false, and records nothing, when the note does not exist. A missing
// active directory is apperr.ErrDirectoryMissing rather than "not found".
func (s *Store) Delete(name string) (bool, error) {
	name, err := s.ResolveName(name)
	if err != nil {
		return false, err
	}
	if !s.dir.Available() {
		return false, fmt.Errorf("notestore: delete %s: %w: %s", name, apperr.ErrDirectoryMissing, s.dir.Root())
	}
	ok, err := s.bin.Receive(s.dir, name)
	if err != nil {
		return false, fmt.Errorf("notestore: delete: %w", err)
	}
	if !ok {
		return false, nil
	}
	s.log.Record(oplog.OpDelete, name)
	return true, nil
}
