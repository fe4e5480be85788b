// Package tui is the terminal front end: a note list, an editor with
// debounced autosave, a markdown preview and prompts for delete and export.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/quicknote/internal/models"
	"github.com/starford/quicknote/internal/noteservice"
)

type mode int

const (
	modeBrowse mode = iota
	modeEdit
	modeConfirmDelete
	modeExport
)

// Option configures a Model.
type Option func(*Model)

// WithExportDir sets the directory offered as the default export location.
func WithExportDir(dir string) Option {
	return func(m *Model) { m.exportDir = dir }
}

// WithMarkdownStyle selects the glamour style used for previews.
func WithMarkdownStyle(style string) Option {
	return func(m *Model) { m.mdStyle = style }
}

// Model is the bubbletea model.
type Model struct {
	ctx  context.Context
	svc  *noteservice.Service
	keys keyMap
	help help.Model

	list   list.Model
	editor textarea.Model
	prompt textinput.Model

	mode     mode
	back     mode
	preview  bool
	rendered string

	current  string // note open in the editor
	baseline string // editor content last handed to the session
	target   string // note a prompt applies to
	status   string
	failed   bool

	exportDir string
	mdStyle   string
	width     int
	height    int
}

// New builds the model. Call Init (or run it in a program) to load notes.
func New(ctx context.Context, svc *noteservice.Service, opts ...Option) Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "QuickNote"
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	ed := textarea.New()
	ed.Placeholder = "Write…"
	ed.CharLimit = 0
	ed.MaxHeight = 0
	ed.MaxWidth = 0
	ed.ShowLineNumbers = false

	in := textinput.New()
	in.Prompt = "export to: "
	in.CharLimit = 0

	m := Model{
		ctx:     ctx,
		svc:     svc,
		keys:    defaultKeys(),
		help:    help.New(),
		list:    l,
		editor:  ed,
		prompt:  in,
		mdStyle: "dark",
		width:   100,
		height:  30,
	}
	for _, o := range opts {
		o(&m)
	}
	m.resize(m.width, m.height)
	return m
}

// Init loads the note list.
func (m Model) Init() tea.Cmd {
	return m.loadNotes()
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case notesLoadedMsg:
		if msg.err != nil {
			m.setError("load notes", msg.err)
			return m, nil
		}
		return m, m.list.SetItems(toItems(msg.notes))

	case createdMsg:
		if msg.err != nil {
			m.setError("new note", msg.err)
			return m, nil
		}
		m.setStatus("created " + msg.note.Name)
		cmd := m.open(msg.note.Name, msg.note.Content)
		return m, tea.Batch(cmd, m.loadNotes())

	case deletedMsg:
		switch {
		case msg.err != nil:
			m.setError("delete", msg.err)
		case !msg.ok:
			m.setStatus(msg.name + " was already gone")
		default:
			m.setStatus("moved " + msg.name + " to the recycle bin")
		}
		if msg.name == m.current {
			m.close()
		}
		return m, m.loadNotes()

	case exportedMsg:
		switch {
		case msg.err != nil:
			m.setError("export", msg.err)
		case msg.res.Canceled:
			m.setStatus("export canceled")
		default:
			m.setStatus("exported " + msg.name + " to " + msg.res.Path)
		}
		return m, nil

	case autosavedMsg:
		if msg.err != nil {
			m.setError("autosave "+msg.name, msg.err)
		} else if msg.name == m.current {
			m.setStatus("saved " + msg.name)
		}
		return m, nil

	case EventMsg:
		return m.handleEvent(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.forward(msg)
}

func (m Model) handleEvent(ev EventMsg) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case noteservice.EventLogFailed:
		if f, ok := ev.Data.(noteservice.LogFailure); ok {
			m.setError("operation log", errors.New(f.Error))
		}
		return m, nil
	case noteservice.EventNoteSaved:
		// Our own saves do not change the list order; titles may have.
		if m.mode == modeEdit {
			return m, nil
		}
		return m, m.loadNotes()
	case noteservice.EventNoteDeleted, noteservice.EventRecyclePurged,
		noteservice.EventNoteChanged, noteservice.EventNoteRemoved:
		return m, m.loadNotes()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.mode {
	case modeConfirmDelete:
		m.mode = m.back
		if key.Matches(msg, m.keys.Confirm) {
			return m, m.deleteNote(m.target)
		}
		m.setStatus("delete canceled")
		return m, nil

	case modeExport:
		switch {
		case key.Matches(msg, m.keys.Back):
			m.mode = m.back
			m.prompt.Blur()
			m.setStatus("export canceled")
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			m.mode = m.back
			m.prompt.Blur()
			return m, m.exportNote(m.target, strings.TrimSpace(m.prompt.Value()))
		}
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd

	case modeEdit:
		return m.handleEditKey(msg)
	}
	return m.handleBrowseKey(msg)
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	selected, hasSelection := m.list.SelectedItem().(noteItem)

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.New):
		return m, m.newNote()
	case key.Matches(msg, m.keys.Open):
		if !hasSelection {
			return m, nil
		}
		return m, m.open(selected.note.Name, selected.note.Content)
	case key.Matches(msg, m.keys.Delete):
		if hasSelection {
			m.confirmDelete(selected.note.Name)
		}
		return m, nil
	case key.Matches(msg, m.keys.Export):
		if !hasSelection {
			return m, nil
		}
		return m, m.askExport(selected.note.Name)
	case key.Matches(msg, m.keys.Preview):
		if hasSelection {
			m.togglePreview(selected.note.Name, selected.note.Content)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	if m.preview {
		if it, ok := m.list.SelectedItem().(noteItem); ok {
			m.rendered = m.render(it.note.Name, it.note.Content)
		}
	}
	return m, cmd
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.svc.FlushAutosave(m.current)
		m.close()
		return m, m.loadNotes()
	case key.Matches(msg, m.keys.Save):
		if m.svc.FlushAutosave(m.current) {
			m.setStatus("saved " + m.current)
		} else {
			m.setStatus("no unsaved changes")
		}
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		m.confirmDelete(m.current)
		return m, nil
	case key.Matches(msg, m.keys.Export):
		return m, m.askExport(m.current)
	case key.Matches(msg, m.keys.Preview):
		m.togglePreview(m.current, m.editor.Value())
		return m, nil
	}
	if m.preview {
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	m.scheduleSave()
	return m, cmd
}

func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.mode {
	case modeEdit:
		m.editor, cmd = m.editor.Update(msg)
	case modeExport:
		m.prompt, cmd = m.prompt.Update(msg)
	default:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m *Model) scheduleSave() {
	value := m.editor.Value()
	if value == m.baseline {
		return
	}
	if err := m.svc.ScheduleSave(m.current, value); err != nil {
		m.setError("autosave", err)
		return
	}
	m.baseline = value
	m.setStatus("editing " + m.current)
}

func (m *Model) open(name, content string) tea.Cmd {
	m.mode = modeEdit
	m.current = name
	m.baseline = content
	m.preview = false
	m.editor.SetValue(content)
	return m.editor.Focus()
}

func (m *Model) close() {
	m.editor.Blur()
	m.editor.Reset()
	m.current = ""
	m.baseline = ""
	m.preview = false
	m.mode = modeBrowse
}

func (m *Model) confirmDelete(name string) {
	m.back = m.mode
	m.mode = modeConfirmDelete
	m.target = name
}

func (m *Model) askExport(name string) tea.Cmd {
	m.back = m.mode
	m.mode = modeExport
	m.target = name
	dir := m.exportDir
	if dir == "" {
		dir = "."
	}
	m.prompt.SetValue(filepath.Join(dir, name))
	m.prompt.CursorEnd()
	return m.prompt.Focus()
}

func (m *Model) togglePreview(name, content string) {
	m.preview = !m.preview
	if m.preview {
		m.rendered = m.render(name, content)
	}
}

func (m Model) render(name, content string) string {
	if models.KindOf(name) != models.KindMarkdown {
		return content
	}
	return renderMarkdown(content, m.rightWidth()-2, m.mdStyle)
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.failed = false
}

func (m *Model) setError(op string, err error) {
	m.status = fmt.Sprintf("%s: %v", op, err)
	m.failed = true
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	bodyHeight := h - 4
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	m.list.SetSize(m.leftWidth(), bodyHeight)
	m.editor.SetWidth(m.rightWidth() - 2)
	m.editor.SetHeight(bodyHeight - 2)
	m.prompt.Width = w - len(m.prompt.Prompt) - 2
	m.help.Width = w
}

func (m Model) leftWidth() int {
	return m.width / 3
}

func (m Model) rightWidth() int {
	return m.width - m.leftWidth() - 2
}

// Commands. Each runs a session operation off the update loop.

func (m Model) loadNotes() tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		notes, err := svc.ListNotes(ctx)
		return notesLoadedMsg{notes: notes, err: err}
	}
}

func (m Model) newNote() tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		note, err := svc.NewNote(ctx, "", "")
		return createdMsg{note: note, err: err}
	}
}

func (m Model) deleteNote(name string) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		ok, err := svc.DeleteNote(ctx, name)
		return deletedMsg{name: name, ok: ok, err: err}
	}
}

func (m Model) exportNote(name, dest string) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	editing := m.current == name
	content := m.editor.Value()
	return func() tea.Msg {
		if editing {
			res, err := svc.Export(ctx, name, content, dest)
			return exportedMsg{name: name, res: res, err: err}
		}
		res, err := svc.ExportNote(ctx, name, dest)
		return exportedMsg{name: name, res: res, err: err}
	}
}

// View renders the screen.
func (m Model) View() string {
	left := paneStyle.Width(m.leftWidth()).Render(m.list.View())

	var right string
	switch {
	case m.preview:
		right = m.rendered
	case m.current != "":
		right = titleStyle.Render(m.current) + "\n" + m.editor.View()
	default:
		right = statusStyle.Render("Select a note and press enter, or ctrl+n for a new one.")
	}
	right = paneStyle.Width(m.rightWidth()).Render(right)

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.footer())
}

func (m Model) footer() string {
	switch m.mode {
	case modeConfirmDelete:
		return promptStyle.Render(fmt.Sprintf("Move %s to the recycle bin? (y/N)", m.target))
	case modeExport:
		return m.prompt.View() + statusStyle.Render("  (enter to export, esc to cancel)")
	}

	status := statusStyle.Render(m.status)
	if m.failed {
		status = errorStyle.Render(m.status)
	}
	bindings := m.keys.browseHelp()
	if m.mode == modeEdit {
		bindings = m.keys.editHelp()
	}
	return status + "\n" + m.help.ShortHelpView(bindings)
}
