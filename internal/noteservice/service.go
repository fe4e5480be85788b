// Package noteservice is the session object: it owns the note store, the
// recycle bin, the operation log, the exporter and autosave state, and exposes
// the operations used by every surface (API, MCP, TUI, CLI).
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/quicknote/internal/apperr"
	"github.com/starford/quicknote/internal/checksum"
	"github.com/starford/quicknote/internal/debounce"
	"github.com/starford/quicknote/internal/export"
	"github.com/starford/quicknote/internal/models"
	"github.com/starford/quicknote/internal/notestore"
	"github.com/starford/quicknote/internal/oplog"
	"github.com/starford/quicknote/internal/parser"
	"github.com/starford/quicknote/internal/recyclebin"
	"github.com/starford/quicknote/internal/storage"
)

// Event kinds published through the Notifier.
const (
	EventNoteSaved     = "note.saved"
	EventNoteDeleted   = "note.deleted"
	EventRecyclePurged = "recycle.purged"
	EventLogRecorded   = "log.recorded"
	EventLogFailed     = "log.failed"

	// Changes made to the active directory by other programs.
	EventNoteChanged = "note.changed"
	EventNoteRemoved = "note.removed"
)

// Notifier receives session events. Implementations must not block.
type Notifier interface {
	Notify(kind string, data any)
}

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Name     string      `json:"name"`
	Kind     models.Kind `json:"kind"`
	Title    string      `json:"title"`
	Preview  string      `json:"preview"`
	Content  string      `json:"content"`
	Checksum string      `json:"checksum"`
}

// NoteRef identifies a note in event payloads.
type NoteRef struct {
	Name string `json:"name"`
}

// LogFailure is the payload of a log.failed event.
type LogFailure struct {
	Entry models.LogEntry `json:"entry"`
	Error string          `json:"error"`
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the event sink.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source used for new-note names and sweeps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAutosaveDelay sets the autosave quiet interval.
func WithAutosaveDelay(d time.Duration) Option {
	return func(s *Service) { s.autosaveDelay = d }
}

// WithAutosaveHook registers a callback invoked after every autosave attempt.
func WithAutosaveHook(fn func(name string, err error)) Option {
	return func(s *Service) { s.onAutosave = fn }
}

// Service coordinates the note store, recycle bin and operation log.
type Service struct {
	store    *notestore.Store
	bin      *recyclebin.Bin
	log      *oplog.Log
	exporter *export.Exporter

	notifier      Notifier
	logger        *slog.Logger
	now           func() time.Time
	autosaveDelay time.Duration
	onAutosave    func(name string, err error)
	autosave      *debounce.Keyed
}

// New creates a session. log may be nil, in which case ReadLog returns an
// empty trail. exporter may be nil for sessions without an export surface.
func New(store *notestore.Store, bin *recyclebin.Bin, log *oplog.Log, exporter *export.Exporter, opts ...Option) *Service {
	s := &Service{
		store:         store,
		bin:           bin,
		log:           log,
		exporter:      exporter,
		logger:        slog.Default(),
		now:           time.Now,
		autosaveDelay: debounce.DefaultDelay,
	}
	for _, o := range opts {
		o(s)
	}
	if s.exporter == nil {
		s.exporter = export.New(nil)
	}
	s.autosave = debounce.NewKeyed(s.autosaveDelay)
	if s.log != nil {
		s.log.Observe(s.observeLog)
	}
	return s
}

// Store returns the underlying note store.
func (s *Service) Store() *notestore.Store {
	return s.store
}

// Bin returns the recycle bin.
func (s *Service) Bin() *recyclebin.Bin {
	return s.bin
}

// ListNotes returns every note in the active set, sorted by name.
func (s *Service) ListNotes(_ context.Context) ([]NoteDetail, error) {
	notes, err := s.store.List()
	if err != nil {
		return nil, err
	}
	out := make([]NoteDetail, len(notes))
	for i, n := range notes {
		out[i] = detail(n)
	}
	return out, nil
}

// GetNote returns a single note.
func (s *Service) GetNote(_ context.Context, name string) (*NoteDetail, error) {
	n, err := s.store.Get(name)
	if err != nil {
		return nil, err
	}
	d := detail(n)
	return &d, nil
}

// SaveNote creates or overwrites a note. A non-empty ifMatch must name the
// current content, otherwise apperr.ErrConflict is returned. An explicit save
// supersedes any pending autosave for the same note.
func (s *Service) SaveNote(_ context.Context, name, content, ifMatch string) (*NoteDetail, error) {
	name, err := s.store.ResolveName(name)
	if err != nil {
		return nil, err
	}
	s.autosave.Cancel(autosaveKey(name))

	if ifMatch != "" {
		existing, err := s.store.Get(name)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, apperr.ErrConflict
			}
			return nil, err
		}
		if !checksum.Match(ifMatch, []byte(existing.Content)) {
			return nil, apperr.ErrConflict
		}
	}

	if err := s.store.Save(name, content); err != nil {
		return nil, err
	}
	s.notify(EventNoteSaved, NoteRef{Name: name})
	d := detail(models.Note{Name: name, Content: content})
	return &d, nil
}

// NewNote creates a note. An empty name is generated from the current time.
// Creating over an existing note fails with apperr.ErrAlreadyExists.
func (s *Service) NewNote(ctx context.Context, name, content string) (*NoteDetail, error) {
	if name == "" {
		name = NewNoteName(s.now())
	}
	exists, err := s.store.Exists(name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.ErrAlreadyExists
	}
	return s.SaveNote(ctx, name, content, "")
}

// DeleteNote moves a note to the recycle bin. It returns false when the note
// does not exist. A pending autosave for the note is dropped first so it
// cannot recreate the file afterwards.
func (s *Service) DeleteNote(_ context.Context, name string) (bool, error) {
	name, err := s.store.ResolveName(name)
	if err != nil {
		return false, err
	}
	s.autosave.Cancel(autosaveKey(name))

	ok, err := s.store.Delete(name)
	if err != nil || !ok {
		return ok, err
	}
	s.notify(EventNoteDeleted, NoteRef{Name: name})
	return true, nil
}

// ExportNote writes the stored content of a note to destination. Pending
// autosaves for the note are flushed first so the export is current.
func (s *Service) ExportNote(ctx context.Context, name, destination string) (export.Result, error) {
	resolved, err := s.store.ResolveName(name)
	if err != nil {
		return export.Result{}, err
	}
	s.autosave.Flush(autosaveKey(resolved))

	n, err := s.store.Get(resolved)
	if err != nil {
		return export.Result{}, err
	}
	return s.Export(ctx, n.Name, n.Content, destination)
}

// Export writes arbitrary content to destination, asking the chooser when
// destination is empty.
func (s *Service) Export(ctx context.Context, suggestedName, content, destination string) (export.Result, error) {
	res, err := s.exporter.Export(ctx, suggestedName, content, destination)
	if err != nil {
		s.logger.Warn("export failed",
			slog.String("name", suggestedName),
			slog.String("error", err.Error()),
		)
	}
	return res, err
}

// ScheduleSave queues an autosave of content. Repeated calls for the same
// note within the quiet interval collapse into the last one.
func (s *Service) ScheduleSave(name, content string) error {
	name, err := s.store.ResolveName(name)
	if err != nil {
		return err
	}
	s.autosave.Trigger(autosaveKey(name), func() { s.autosaveNow(name, content) })
	return nil
}

// AutosavePending reports whether an autosave is queued for name.
func (s *Service) AutosavePending(name string) bool {
	return s.autosave.Pending(autosaveKey(name))
}

// FlushAutosave runs a pending autosave for name immediately.
func (s *Service) FlushAutosave(name string) bool {
	return s.autosave.Flush(autosaveKey(name))
}

// FlushAllAutosaves runs every pending autosave and returns how many ran.
func (s *Service) FlushAllAutosaves() int {
	return s.autosave.FlushAll()
}

// autosaveKey identifies a note in the autosave queue. Canonically
// equivalent spellings of a name share one entry.
func autosaveKey(name string) string {
	return storage.NormalizeName(name)
}

func (s *Service) autosaveNow(name, content string) {
	err := s.store.Save(name, content)
	if err != nil {
		s.logger.Warn("autosave failed",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	} else {
		s.notify(EventNoteSaved, NoteRef{Name: name})
	}
	if s.onAutosave != nil {
		s.onAutosave(name, err)
	}
}

// ExternalChange publishes a change to a note made outside this session.
func (s *Service) ExternalChange(name string, removed bool) {
	kind := EventNoteChanged
	if removed {
		kind = EventNoteRemoved
	}
	s.notify(kind, NoteRef{Name: name})
}

// ListRecycle returns the recycle bin entries.
func (s *Service) ListRecycle(_ context.Context) ([]models.RecycleEntry, error) {
	return s.bin.List()
}

// Sweep purges expired recycle entries now.
func (s *Service) Sweep(_ context.Context) (recyclebin.Report, error) {
	rep, err := s.bin.Sweep(s.now())
	if err != nil {
		return rep, err
	}
	s.ReportPurge(rep)
	return rep, nil
}

// ReportPurge publishes a recycle.purged event when rep removed anything.
// It is passed to the background sweeper as its notify hook.
func (s *Service) ReportPurge(rep recyclebin.Report) {
	if len(rep.Purged) > 0 {
		s.notify(EventRecyclePurged, rep)
	}
}

// ReadLog returns the audit trail, oldest first. A positive limit keeps only
// the most recent entries.
func (s *Service) ReadLog(ctx context.Context, limit int) ([]models.LogEntry, error) {
	if s.log == nil {
		return nil, nil
	}
	if err := s.log.Flush(ctx); err != nil {
		return nil, fmt.Errorf("noteservice: read log: %w", err)
	}
	entries, err := oplog.ReadEntries(s.log.Path())
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// Close runs pending autosaves and stops the autosave timers. It does not
// close the operation log, which belongs to the caller.
func (s *Service) Close() {
	if n := s.autosave.FlushAll(); n > 0 {
		s.logger.Info("flushed pending autosaves", slog.Int("count", n))
	}
	s.autosave.Stop()
}

func (s *Service) observeLog(ev oplog.Event) {
	if ev.Err != nil {
		s.notify(EventLogFailed, LogFailure{Entry: ev.Entry, Error: ev.Err.Error()})
		return
	}
	s.notify(EventLogRecorded, ev.Entry)
}

func (s *Service) notify(kind string, data any) {
	if s.notifier != nil {
		s.notifier.Notify(kind, data)
	}
}

var nameReplacer = strings.NewReplacer(":", "-", ".", "-")

// NewNoteName returns the generated name for a note created at t, e.g.
// "Note-2024-03-05T07-09-11-123Z.md".
func NewNoteName(t time.Time) string {
	return "Note-" + nameReplacer.Replace(t.UTC().Format(oplog.TimeLayout)) + ".md"
}

func detail(n models.Note) NoteDetail {
	sum := parser.Summarize(n)
	return NoteDetail{
		Name:     n.Name,
		Kind:     n.Kind(),
		Title:    sum.Title,
		Preview:  sum.Preview,
		Content:  n.Content,
		Checksum: checksum.Sum([]byte(n.Content)),
	}
}
