// Package scheduler runs periodic scans of the media root on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/scanner"
)

// Scanner runs one scan of root.
type Scanner interface {
	Scan(ctx context.Context, root string) (*scanner.ScanResult, error)
}

// Scheduler triggers scans of a single root.
type Scheduler struct {
	cron   *cron.Cron
	target Scanner
	root   string
	spec   string
	logger *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	entry   cron.EntryID
	started bool
}

// New validates spec and returns a stopped scheduler. spec accepts the
// standard five cron fields and descriptors such as "@hourly" or
// "@every 6h".
func New(target Scanner, root, spec string, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, errors.Validationf("invalid scan schedule %q: %v", spec, err)
	}

	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger}),
			cron.SkipIfStillRunning(cronLogger{logger}),
		)),
		target: target,
		root:   root,
		spec:   spec,
		logger: logger,
	}, nil
}

// Start registers the scan job. Scans run with a context derived from ctx
// and are canceled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	id, err := s.cron.AddFunc(s.spec, s.runScan)
	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to add scan job: %w", err)
	}
	s.entry = id
	s.started = true

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.spec, "root", s.root, "next", s.cron.Entry(id).Next)
	return nil
}

// Stop halts the schedule, cancels a running scan and waits for it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info("stopping scheduler")
	cancel()
	<-s.cron.Stop().Done()
}

// Next returns when the next scan is due, or the zero time when stopped.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) runScan() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	s.logger.Info("running scheduled scan", "root", s.root)
	result, err := s.target.Scan(ctx, s.root)
	switch {
	case errors.Is(err, errors.ErrScanInProgress):
		s.logger.Info("scheduled scan skipped, another scan is running")
	case err != nil:
		s.logger.Error("scheduled scan failed", "root", s.root, "error", err)
	default:
		s.logger.Info("scheduled scan complete",
			"scan_id", result.ScanID,
			"added", result.Added,
			"updated", result.Updated,
			"removed", result.Removed,
		)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
