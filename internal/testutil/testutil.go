// Package testutil provides shared test helpers for setting up note sessions
// on temporary storage roots.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/starford/quicknote/internal/export"
	"github.com/starford/quicknote/internal/notestore"
	"github.com/starford/quicknote/internal/noteservice"
	"github.com/starford/quicknote/internal/oplog"
	"github.com/starford/quicknote/internal/paths"
	"github.com/starford/quicknote/internal/recyclebin"
	"github.com/starford/quicknote/internal/storage"
)

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestLayout creates a temporary storage root with all managed directories.
func TestLayout(t *testing.T) paths.Layout {
	t.Helper()
	layout, err := paths.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := layout.Ensure(QuietLogger()); err != nil {
		t.Fatal(err)
	}
	return layout
}

// TestSession builds a note service over a fresh TestLayout. Log entries are
// attributed to actor. The session and its log are closed on cleanup.
func TestSession(t *testing.T, actor string, chooser export.Chooser, opts ...noteservice.Option) (*noteservice.Service, paths.Layout) {
	t.Helper()
	layout := TestLayout(t)
	logger := QuietLogger()

	active, err := storage.NewDir(layout.Active)
	if err != nil {
		t.Fatal(err)
	}
	recycle, err := storage.NewDir(layout.Recycle)
	if err != nil {
		t.Fatal(err)
	}

	bin := recyclebin.New(recycle)
	log := oplog.Open(layout.LogFile(), oplog.WithActor(actor), oplog.WithLogger(logger))
	svc := noteservice.New(notestore.New(active, bin, log, nil), bin, log, export.New(chooser),
		append([]noteservice.Option{noteservice.WithLogger(logger)}, opts...)...)
	t.Cleanup(func() {
		svc.Close()
		_ = log.Close()
	})
	return svc, layout
}
