package recyclebin

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is the period between sweeps of a long-running process.
const DefaultSweepInterval = time.Hour

// Sweeper runs Bin.Sweep once at startup and then, when an interval is set,
// periodically until its context is cancelled.
type Sweeper struct {
	bin      *Bin
	interval time.Duration
	logger   *slog.Logger
	notify   func(Report)
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithInterval enables periodic sweeps. Zero or negative means startup only.
func WithInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) { s.interval = d }
}

// WithNotify registers a callback invoked after every sweep that purged
// something.
func WithNotify(fn func(Report)) SweeperOption {
	return func(s *Sweeper) { s.notify = fn }
}

// NewSweeper creates a sweeper for bin.
func NewSweeper(bin *Bin, logger *slog.Logger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{bin: bin, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce performs a single sweep against the bin's clock and logs the
// outcome. It never fails.
func (s *Sweeper) RunOnce() Report {
	rep, err := s.bin.Sweep(s.bin.now())
	if err != nil {
		s.logger.Warn("sweeper: sweep failed", slog.String("error", err.Error()))
		return rep
	}
	if len(rep.Purged) > 0 || rep.Failed > 0 {
		s.logger.Info("sweeper: recycle bin swept",
			slog.Int("scanned", rep.Scanned),
			slog.Int("purged", len(rep.Purged)),
			slog.Int("failed", rep.Failed))
	} else {
		s.logger.Debug("sweeper: nothing to purge", slog.Int("scanned", rep.Scanned))
	}
	if s.notify != nil && len(rep.Purged) > 0 {
		s.notify(rep)
	}
	return rep
}

// Run sweeps immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.RunOnce()
	if s.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper: stopped")
			return nil
		case <-ticker.C:
			s.RunOnce()
		}
	}
}
