// Package oplog implements the append-only operation audit log.
//
// Record never blocks the caller and never reports failure to it. Entries are
// queued and written by a single goroutine, one write per line, so lines from
// concurrent callers never interleave. The outcome of every entry is delivered
// to registered observers.
package oplog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/starford/quicknote/internal/models"
)

// Operation kinds written by QuickNote.
const (
	OpDelete = "DELETE"
)

// UnknownActor is used when no user identity is available.
const UnknownActor = "Unknown"

// ErrClosed is reported for entries recorded after Close.
var ErrClosed = errors.New("oplog: closed")

// Event is the outcome of a single Record call.
type Event struct {
	Entry models.LogEntry
	Err   error
}

// Observer receives events from the writer goroutine. It must not block.
type Observer func(Event)

// Option configures a Log.
type Option func(*Log)

// WithActor overrides the actor resolved from the environment.
func WithActor(actor string) Option {
	return func(l *Log) { l.actor = actor }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithLogger sets the diagnostic logger used for write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// WithObserver registers an observer at construction time.
func WithObserver(obs Observer) Option {
	return func(l *Log) { l.observers = append(l.observers, obs) }
}

type request struct {
	entry   models.LogEntry
	flushed chan struct{}
}

// Log appends entries to a single file.
type Log struct {
	path   string
	actor  string
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	observers []Observer
	queue     []request
	closed    bool

	wake    chan struct{}
	stopped chan struct{}
}

// Open starts a log writing to path. The file and its directory are not
// touched until the first entry is written.
func Open(path string, opts ...Option) *Log {
	l := &Log{
		path:    path,
		actor:   ResolveActor(),
		now:     time.Now,
		logger:  slog.Default(),
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.run()
	return l
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Actor returns the identity written into each entry.
func (l *Log) Actor() string {
	return l.actor
}

// Observe registers an additional observer.
func (l *Log) Observe(obs Observer) {
	l.mu.Lock()
	l.observers = append(l.observers, obs)
	l.mu.Unlock()
}

// Record queues one entry and returns immediately.
func (l *Log) Record(operation, details string) {
	entry := models.LogEntry{
		Timestamp: l.now().UTC(),
		Actor:     l.actor,
		Operation: operation,
		Details:   details,
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.report(Event{Entry: entry, Err: ErrClosed})
		return
	}
	l.queue = append(l.queue, request{entry: entry})
	l.mu.Unlock()
	l.signal()
}

// Flush waits until every entry recorded before the call has been written or
// has failed.
func (l *Log) Flush(ctx context.Context) error {
	done := make(chan struct{})
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		select {
		case <-l.stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	l.queue = append(l.queue, request{flushed: done})
	l.mu.Unlock()
	l.signal()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting entries, writes everything already queued and stops
// the writer goroutine.
func (l *Log) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.signal()
	<-l.stopped
	return nil
}

func (l *Log) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Log) run() {
	defer close(l.stopped)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.mu.Unlock()
			<-l.wake
			l.mu.Lock()
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		l.writeBatch(batch)
	}
}

func (l *Log) writeBatch(batch []request) {
	var f *os.File
	var openErr error
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	for _, req := range batch {
		if req.flushed != nil {
			close(req.flushed)
			continue
		}
		if f == nil && openErr == nil {
			f, openErr = l.openFile()
		}
		err := openErr
		if err == nil {
			_, err = f.WriteString(FormatLine(req.entry))
		}
		if err != nil {
			err = fmt.Errorf("oplog: append %s: %w", l.path, err)
		}
		l.report(Event{Entry: req.entry, Err: err})
	}
}

func (l *Log) openFile() (*os.File, error) {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (l *Log) report(ev Event) {
	if ev.Err != nil {
		l.logger.Warn("oplog: record failed",
			slog.String("operation", ev.Entry.Operation),
			slog.String("details", ev.Entry.Details),
			slog.String("error", ev.Err.Error()))
	}
	l.mu.Lock()
	observers := append([]Observer(nil), l.observers...)
	l.mu.Unlock()
	for _, obs := range observers {
		obs(ev)
	}
}

// ResolveActor returns the current user name from USERNAME or USER, falling
// back to UnknownActor.
func ResolveActor() string {
	for _, key := range []string{"USERNAME", "USER"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return UnknownActor
}
