package notestore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quicknote/internal/apperr"
	"github.com/starford/quicknote/internal/models"
	"github.com/starford/quicknote/internal/oplog"
	"github.com/starford/quicknote/internal/paths"
	"github.com/starford/quicknote/internal/recyclebin"
	"github.com/starford/quicknote/internal/storage"
)

type env struct {
	store   *Store
	bin     *recyclebin.Bin
	log     *oplog.Log
	layout  paths.Layout
	recycle *storage.Dir
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	layout, err := paths.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, layout.Ensure(logger))

	active, err := storage.NewDir(layout.Active)
	require.NoError(t, err)
	recycle, err := storage.NewDir(layout.Recycle)
	require.NoError(t, err)

	bin := recyclebin.New(recycle)
	log := oplog.Open(layout.LogFile(), oplog.WithActor("tester"), oplog.WithLogger(logger))
	t.Cleanup(func() { _ = log.Close() })

	return &env{
		store:   New(active, bin, log, nil),
		bin:     bin,
		log:     log,
		layout:  layout,
		recycle: recycle,
	}
}

func (e *env) logEntries(t *testing.T) []models.LogEntry {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.log.Flush(ctx))
	entries, err := oplog.ReadEntries(e.layout.LogFile())
	require.NoError(t, err)
	return entries
}

func TestSaveThenList(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Save("a.md", "hello"))

	notes, err := e.store.List()
	require.NoError(t, err)
	assert.Equal(t, []models.Note{{Name: "a.md", Content: "hello"}}, notes)
}

func TestSaveRoundTripVariety(t *testing.T) {
	e := newEnv(t)
	cases := map[string]string{
		"empty.md":      "",
		"unicode.txt":   "привет, 世界 ✓",
		"nul.md":        "before\x00after",
		"lines.md":      "# Title\r\n\r\nbody\n",
		"with space.md": "spaced",
	}
	for name, content := range cases {
		require.NoError(t, e.store.Save(name, content), name)
	}

	notes, err := e.store.List()
	require.NoError(t, err)
	got := map[string]string{}
	for _, n := range notes {
		got[n.Name] = n.Content
	}
	assert.Equal(t, cases, got)
}

func TestSaveOverwrites(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Save("b.md", "x"))
	require.NoError(t, e.store.Save("b.md", "y"))

	notes, err := e.store.List()
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "y", notes[0].Content)
}

func TestSaveDoesNotLog(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Save("a.md", "hello"))
	assert.Empty(t, e.logEntries(t))
}

func TestListFiltersExtensions(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Save("a.md", "a"))
	require.NoError(t, e.store.Save("b.txt", "b"))
	require.NoError(t, os.WriteFile(filepath.Join(e.layout.Active, "image.png"), []byte("png"), 0o644))

	notes, err := e.store.List()
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "a.md", notes[0].Name)
	assert.Equal(t, "b.txt", notes[1].Name)
}

func TestListMissingDirectory(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.RemoveAll(e.layout.Active))

	notes, err := e.store.List()
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestSaveMissingDirectoryFailsGracefully(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.RemoveAll(e.layout.Active))

	err := e.store.Save("a.md", "x")
	assert.ErrorIs(t, err, apperr.ErrDirectoryMissing)
}

func TestSaveRejectsInvalidNames(t *testing.T) {
	e := newEnv(t)
	for _, name := range []string{"../escape.md", "sub/x.md", "..", "noext", "image.png", ""} {
		err := e.store.Save(name, "x")
		assert.ErrorIs(t, err, apperr.ErrInvalidName, name)
	}
	_, err := os.Stat(filepath.Join(e.layout.Root, "escape.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteMissing(t *testing.T) {
	e := newEnv(t)

	ok, err := e.store.Delete("ghost.md")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Empty(t, e.logEntries(t))
	entries, err := e.bin.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteMovesToRecycleAndLogs(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Save("a.md", "hello"))

	ok, err := e.store.Delete("a.md")
	require.NoError(t, err)
	assert.True(t, ok)

	notes, err := e.store.List()
	require.NoError(t, err)
	assert.Empty(t, notes)

	entries, err := e.bin.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.md", entries[0].Name)
	data, err := e.recycle.Read("a.md")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	logs := e.logEntries(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "DELETE", logs[0].Operation)
	assert.Equal(t, "a.md", logs[0].Details)
	assert.Equal(t, "tester", logs[0].Actor)

	raw, err := os.ReadFile(e.layout.LogFile())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(raw), "User[tester] DELETE a.md\n"), string(raw))
}

func TestDeleteThenSweep(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Save("a.md", "hello"))
	_, err := e.store.Delete("a.md")
	require.NoError(t, err)

	require.NoError(t, e.recycle.Touch("a.md", time.Now().Add(-40*24*time.Hour)))
	rep, err := e.bin.Sweep(time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, rep.Purged)

	exists, _ := e.recycle.Exists("a.md")
	assert.False(t, exists)
}

func TestGet(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Save("a.txt", "plain"))

	n, err := e.store.Get("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "plain", n.Content)
	assert.Equal(t, models.KindText, n.Kind())

	_, err = e.store.Get("none.md")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPatterns(t *testing.T) {
	p := Patterns{"*.md", "*.{txt,text}"}
	require.NoError(t, p.Validate())
	assert.True(t, p.Match("a.md"))
	assert.True(t, p.Match("a.text"))
	assert.False(t, p.Match("a.png"))

	assert.Error(t, Patterns{"[unterminated"}.Validate())
}

func TestSaveKeepsDecomposedNameVerbatim(t *testing.T) {
	e := newEnv(t)
	decomposed := "cafe\u0301.md"
	require.NoError(t, e.store.Save(decomposed, "hello"))

	notes, err := e.store.List()
	require.NoError(t, err)
	assert.Equal(t, []models.Note{{Name: decomposed, Content: "hello"}}, notes)
}

func TestExternallyCreatedDecomposedNameIsReachable(t *testing.T) {
	e := newEnv(t)
	decomposed := "cafe\u0301.md"
	composed := "caf\u00e9.md"
	require.NoError(t, os.WriteFile(filepath.Join(e.layout.Active, decomposed), []byte("x"), 0o644))

	notes, err := e.store.List()
	require.NoError(t, err)
	require.Len(t, notes, 1)
	listed := notes[0].Name
	assert.Equal(t, decomposed, listed)

	n, err := e.store.Get(listed)
	require.NoError(t, err)
	assert.Equal(t, "x", n.Content)

	n, err = e.store.Get(composed)
	require.NoError(t, err, "composed spelling finds the same note")
	assert.Equal(t, decomposed, n.Name)

	require.NoError(t, e.store.Save(composed, "y"))
	notes, err = e.store.List()
	require.NoError(t, err)
	assert.Equal(t, []models.Note{{Name: decomposed, Content: "y"}}, notes, "save updates the existing file")

	ok, err := e.store.Delete(listed)
	require.NoError(t, err)
	assert.True(t, ok)

	notes, err = e.store.List()
	require.NoError(t, err)
	assert.Empty(t, notes)

	logs := e.logEntries(t)
	require.Len(t, logs, 1)
	assert.Equal(t, decomposed, logs[0].Details)
}

func TestDeleteMissingDirectory(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.RemoveAll(e.layout.Active))

	ok, err := e.store.Delete("a.md")
	assert.False(t, ok)
	assert.ErrorIs(t, err, apperr.ErrDirectoryMissing)
	assert.Empty(t, e.logEntries(t))
}
