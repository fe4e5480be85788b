package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/quicknote/internal/export"
	"github.com/starford/quicknote/internal/noteservice"
)

type notesLoadedMsg struct {
	notes []noteservice.NoteDetail
	err   error
}

type createdMsg struct {
	note *noteservice.NoteDetail
	err  error
}

type deletedMsg struct {
	name string
	ok   bool
	err  error
}

type exportedMsg struct {
	name string
	res  export.Result
	err  error
}

type autosavedMsg struct {
	name string
	err  error
}

// EventMsg carries a session event into the program.
type EventMsg struct {
	Kind string
	Data any
}

// Bridge forwards session events and autosave outcomes to a running
// program. It is created before the session so it can be passed as the
// session's notifier and autosave hook.
type Bridge struct {
	program atomic.Pointer[tea.Program]
}

// NewBridge returns a Bridge with no program attached.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Notify implements noteservice.Notifier.
func (b *Bridge) Notify(kind string, data any) {
	b.send(EventMsg{Kind: kind, Data: data})
}

// AutosaveHook reports the outcome of a background autosave.
func (b *Bridge) AutosaveHook(name string, err error) {
	b.send(autosavedMsg{name: name, err: err})
}

func (b *Bridge) attach(p *tea.Program) {
	b.program.Store(p)
}

// send never blocks the caller: events can originate inside Update, where a
// synchronous Send would deadlock the program loop.
func (b *Bridge) send(msg tea.Msg) {
	if p := b.program.Load(); p != nil {
		go p.Send(msg)
	}
}
