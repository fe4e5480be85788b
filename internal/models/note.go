// Package models defines the domain types for QuickNote.
package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind is the content type of a note, implied by its extension.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindText     Kind = "text"
)

// KindOf returns the kind implied by name's extension. Anything that is not
// .txt is treated as markdown.
func KindOf(name string) Kind {
	if strings.EqualFold(filepath.Ext(name), ".txt") {
		return KindText
	}
	return KindMarkdown
}

// Note is a single active note: a file name and its UTF-8 content.
type Note struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Kind returns the note's content type.
func (n Note) Kind() Kind {
	return KindOf(n.Name)
}

// RecycleEntry is a note that has been moved to the recycle bin. Its age is
// taken from the file's modification time.
type RecycleEntry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// LogEntry is one immutable line of the operation log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Operation string    `json:"operation"`
	Details   string    `json:"details"`
}
