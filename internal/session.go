package internal

import (
	"fmt"
	"log/slog"

	"github.com/starford/quicknote/internal/export"
	"github.com/starford/quicknote/internal/notestore"
	"github.com/starford/quicknote/internal/noteservice"
	"github.com/starford/quicknote/internal/oplog"
	"github.com/starford/quicknote/internal/paths"
	"github.com/starford/quicknote/internal/recyclebin"
	"github.com/starford/quicknote/internal/storage"
)

// Session is the persistence layer wired from a Config. Every surface (HTTP,
// MCP, terminal UI, one-shot commands) works through its Service.
type Session struct {
	Layout  paths.Layout
	Service *noteservice.Service
	Bin     *recyclebin.Bin
	Log     *oplog.Log

	logger *slog.Logger
}

// OpenSession resolves the storage layout and builds the note service on top
// of it. Directories that cannot be created are logged and left for the
// operations themselves to report. chooser may be nil.
func OpenSession(cfg *Config, logger *slog.Logger, chooser export.Chooser, opts ...noteservice.Option) (*Session, error) {
	layout, err := paths.Resolve(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := layout.Ensure(logger); err != nil {
		logger.Warn("Storage layout incomplete", slog.String("error", err.Error()))
	}

	active, err := storage.NewDir(layout.Active)
	if err != nil {
		return nil, fmt.Errorf("init notes dir: %w", err)
	}
	recycle, err := storage.NewDir(layout.Recycle)
	if err != nil {
		return nil, fmt.Errorf("init recycle dir: %w", err)
	}

	bin := recyclebin.New(recycle,
		recyclebin.WithRetention(cfg.Recycle.Retention.Std()),
		recyclebin.WithPolicy(recyclebin.Policy(cfg.Recycle.Policy)),
	)
	log := oplog.Open(layout.LogFile(), oplog.WithLogger(logger))
	store := notestore.New(active, bin, log, notestore.Patterns(cfg.Notes.Patterns))

	svcOpts := append([]noteservice.Option{
		noteservice.WithLogger(logger),
		noteservice.WithAutosaveDelay(cfg.Autosave.Delay.Std()),
	}, opts...)
	svc := noteservice.New(store, bin, log, export.New(chooser), svcOpts...)

	logger.Debug("Session opened",
		slog.String("root", layout.Root),
		slog.String("actor", log.Actor()))

	return &Session{
		Layout:  layout,
		Service: svc,
		Bin:     bin,
		Log:     log,
		logger:  logger,
	}, nil
}

// Close flushes pending autosaves and then drains the operation log.
func (s *Session) Close() error {
	s.Service.Close()
	if err := s.Log.Close(); err != nil {
		return fmt.Errorf("close operation log: %w", err)
	}
	return nil
}
