package tui

import (
	"github.com/charmbracelet/bubbles/list"

	"github.com/starford/quicknote/internal/noteservice"
)

type noteItem struct {
	note noteservice.NoteDetail
}

func (i noteItem) Title() string       { return i.note.Title }
func (i noteItem) Description() string { return i.note.Name }
func (i noteItem) FilterValue() string { return i.note.Title + " " + i.note.Name }

func toItems(notes []noteservice.NoteDetail) []list.Item {
	items := make([]list.Item, len(notes))
	for i, n := range notes {
		items[i] = noteItem{note: n}
	}
	return items
}
