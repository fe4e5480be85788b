package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quicknote/internal/apperr"
	"github.com/starford/quicknote/internal/noteservice"
	"github.com/starford/quicknote/internal/testutil"
)

func newSession(t *testing.T) *noteservice.Service {
	t.Helper()
	svc, _ := testutil.TestSession(t, "tui", nil, noteservice.WithAutosaveDelay(time.Hour))
	return svc
}

// step feeds msg to the model and then runs the resulting command chain
// synchronously, feeding each produced message back in. Batches are
// expanded; blink and other timer commands are skipped.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	return drain(t, m, cmd)
}

func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := runCmd(cmd).(type) {
	case nil:
		return m
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}
		return m
	case notesLoadedMsg, createdMsg, deletedMsg, exportedMsg:
		return step(t, m, msg)
	default:
		return m
	}
}

// runCmd runs cmd unless it is a cursor blink or similar timer.
func runCmd(cmd tea.Cmd) tea.Msg {
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		return msg
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	case "ctrl+e":
		return tea.KeyMsg{Type: tea.KeyCtrlE}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyCtrlP}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitLoadsNotes(t *testing.T) {
	svc := newSession(t)
	ctx := context.Background()
	_, err := svc.SaveNote(ctx, "a.md", "# Alpha", "")
	require.NoError(t, err)

	m := New(ctx, svc)
	m = drain(t, m, m.Init())

	items := m.list.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Alpha", items[0].(noteItem).Title())
	assert.Equal(t, "a.md", items[0].(noteItem).Description())
}

func TestNewNoteOpensEditorAndAutosaves(t *testing.T) {
	svc := newSession(t)
	ctx := context.Background()
	m := New(ctx, svc)

	m = step(t, m, keyMsg("ctrl+n"))
	require.Equal(t, modeEdit, m.mode)
	require.NotEmpty(t, m.current)
	name := m.current

	m = step(t, m, keyMsg("hi"))
	assert.Equal(t, "hi", m.editor.Value())
	assert.True(t, svc.AutosavePending(name))

	m = step(t, m, keyMsg("ctrl+s"))
	assert.False(t, svc.AutosavePending(name))
	n, err := svc.GetNote(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "hi", n.Content)

	m = step(t, m, keyMsg("esc"))
	assert.Equal(t, modeBrowse, m.mode)
	assert.Len(t, m.list.Items(), 1)
}

func TestEscFlushesPendingAutosave(t *testing.T) {
	svc := newSession(t)
	ctx := context.Background()
	_, err := svc.SaveNote(ctx, "a.md", "", "")
	require.NoError(t, err)

	m := New(ctx, svc)
	m = drain(t, m, m.Init())
	m = step(t, m, keyMsg("enter"))
	require.Equal(t, "a.md", m.current)

	m = step(t, m, keyMsg("draft"))
	m = step(t, m, keyMsg("esc"))

	n, err := svc.GetNote(ctx, "a.md")
	require.NoError(t, err)
	assert.Equal(t, "draft", n.Content)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	svc := newSession(t)
	ctx := context.Background()
	_, err := svc.SaveNote(ctx, "a.md", "x", "")
	require.NoError(t, err)

	m := New(ctx, svc)
	m = drain(t, m, m.Init())

	m = step(t, m, keyMsg("ctrl+d"))
	require.Equal(t, modeConfirmDelete, m.mode)
	assert.Contains(t, m.View(), "Move a.md to the recycle bin?")

	m = step(t, m, keyMsg("n"))
	assert.Equal(t, modeBrowse, m.mode)
	assert.Equal(t, "delete canceled", m.status)
	_, err = svc.GetNote(ctx, "a.md")
	require.NoError(t, err)

	m = step(t, m, keyMsg("ctrl+d"))
	m = step(t, m, keyMsg("y"))
	_, err = svc.GetNote(ctx, "a.md")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, m.list.Items())
	assert.Equal(t, "moved a.md to the recycle bin", m.status)
}

func TestDeleteWhileEditingClosesEditor(t *testing.T) {
	svc := newSession(t)
	ctx := context.Background()
	_, err := svc.SaveNote(ctx, "a.md", "x", "")
	require.NoError(t, err)

	m := New(ctx, svc)
	m = drain(t, m, m.Init())
	m = step(t, m, keyMsg("enter"))
	m = step(t, m, keyMsg("more"))
	m = step(t, m, keyMsg("ctrl+d"))
	m = step(t, m, keyMsg("y"))

	assert.Equal(t, modeBrowse, m.mode)
	assert.Empty(t, m.current)
	assert.False(t, svc.AutosavePending("a.md"))
	_, err = svc.GetNote(ctx, "a.md")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExportPrompt(t *testing.T) {
	svc := newSession(t)
	ctx := context.Background()
	_, err := svc.SaveNote(ctx, "a.md", "exported body", "")
	require.NoError(t, err)
	dir := t.TempDir()

	m := New(ctx, svc, WithExportDir(dir))
	m = drain(t, m, m.Init())

	m = step(t, m, keyMsg("ctrl+e"))
	require.Equal(t, modeExport, m.mode)
	assert.Equal(t, filepath.Join(dir, "a.md"), m.prompt.Value())

	m = step(t, m, keyMsg("esc"))
	assert.Equal(t, "export canceled", m.status)
	_, err = os.Stat(filepath.Join(dir, "a.md"))
	assert.True(t, os.IsNotExist(err))

	m = step(t, m, keyMsg("ctrl+e"))
	m = step(t, m, keyMsg("enter"))
	data, err := os.ReadFile(filepath.Join(dir, "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "exported body", string(data))
	assert.Contains(t, m.status, "exported a.md")
}

func TestExportWhileEditingUsesEditorContent(t *testing.T) {
	svc := newSession(t)
	ctx := context.Background()
	_, err := svc.SaveNote(ctx, "a.md", "", "")
	require.NoError(t, err)
	dir := t.TempDir()

	m := New(ctx, svc, WithExportDir(dir))
	m = drain(t, m, m.Init())
	m = step(t, m, keyMsg("enter"))
	m = step(t, m, keyMsg("unsaved"))
	m = step(t, m, keyMsg("ctrl+e"))
	m = step(t, m, keyMsg("enter"))

	data, err := os.ReadFile(filepath.Join(dir, "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "unsaved", string(data))
	assert.Equal(t, modeEdit, m.mode)
}

func TestPreviewToggle(t *testing.T) {
	svc := newSession(t)
	ctx := context.Background()
	_, err := svc.SaveNote(ctx, "a.txt", "plain words", "")
	require.NoError(t, err)

	m := New(ctx, svc)
	m = drain(t, m, m.Init())

	m = step(t, m, keyMsg("ctrl+p"))
	assert.True(t, m.preview)
	assert.Equal(t, "plain words", m.rendered)
	assert.Contains(t, m.View(), "plain words")

	m = step(t, m, keyMsg("ctrl+p"))
	assert.False(t, m.preview)
}

func TestEventsReloadList(t *testing.T) {
	svc := newSession(t)
	ctx := context.Background()
	m := New(ctx, svc)
	m = drain(t, m, m.Init())
	require.Empty(t, m.list.Items())

	_, err := svc.SaveNote(ctx, "ext.md", "x", "")
	require.NoError(t, err)
	m = step(t, m, EventMsg{Kind: noteservice.EventNoteChanged, Data: noteservice.NoteRef{Name: "ext.md"}})
	assert.Len(t, m.list.Items(), 1)
}

func TestLogFailureShownAsError(t *testing.T) {
	svc := newSession(t)
	m := New(context.Background(), svc)

	m = step(t, m, EventMsg{Kind: noteservice.EventLogFailed, Data: noteservice.LogFailure{Error: "disk full"}})
	assert.True(t, m.failed)
	assert.Contains(t, m.status, "disk full")
}

func TestAutosaveFailureShown(t *testing.T) {
	svc := newSession(t)
	m := New(context.Background(), svc)
	m = step(t, m, autosavedMsg{name: "a.md", err: errors.New("boom")})
	assert.True(t, m.failed)
	assert.Contains(t, m.status, "boom")
}
