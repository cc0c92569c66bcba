package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/fosse-media/fosse/internal/config"
	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/logger"
	"github.com/fosse-media/fosse/internal/scanner"
	"github.com/fosse-media/fosse/internal/scheduler"
	"github.com/fosse-media/fosse/internal/watcher"
)

// FileWatcherHandle wraps the file watcher and its rescanner with shutdown
// capability.
type FileWatcherHandle struct {
	*watcher.Watcher
	Rescanner *watcher.Rescanner
	cancel    context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideFileWatcher watches the root and rescans it when notebooks, videos
// or directories change.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	fileScanner := do.MustInvoke[*scanner.Scanner](i)

	if cfg.Root == "" {
		return nil, errors.Validation("watch mode needs a root directory")
	}

	wlog := log.Component("watcher")
	w, err := watcher.New(wlog, watcher.Options{IgnoreHidden: cfg.Scan.SkipHiddenDirs})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(cfg.Root); err != nil {
		_ = w.Stop()
		return nil, errors.RootNotFound(cfg.Root, err)
	}

	rescanner := watcher.NewRescanner(fileScanner, cfg.Root, watcher.RescanOptions{
		SettleDelay: cfg.Watch.SettleDelay,
		MinInterval: cfg.Watch.MinInterval,
	}, wlog)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Start(ctx); err != nil {
			wlog.Error("watcher stopped", "error", err)
		}
	}()
	go func() {
		_ = rescanner.Run(ctx, w.Events())
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-w.Errors():
				wlog.Warn("watcher error", "error", err)
			}
		}
	}()

	log.Info("watching for changes",
		"root", cfg.Root,
		"settle_delay", cfg.Watch.SettleDelay,
		"min_interval", cfg.Watch.MinInterval,
	)

	return &FileWatcherHandle{Watcher: w, Rescanner: rescanner, cancel: cancel}, nil
}

// SchedulerHandle wraps the cron scheduler. Scheduler is nil when
// scan.schedule is empty.
type SchedulerHandle struct {
	*scheduler.Scheduler
}

// Shutdown implements do.Shutdownable.
func (h *SchedulerHandle) Shutdown() error {
	if h.Scheduler != nil {
		h.Stop()
	}
	return nil
}

// ProvideScheduler starts periodic scans when scan.schedule is set.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	fileScanner := do.MustInvoke[*scanner.Scanner](i)

	if cfg.Scan.Schedule == "" {
		log.Debug("scheduled scans disabled")
		return &SchedulerHandle{}, nil
	}
	if cfg.Root == "" {
		return nil, errors.Validation("scheduled scans need a root directory")
	}

	s, err := scheduler.New(fileScanner, cfg.Root, cfg.Scan.Schedule, log.Component("scheduler"))
	if err != nil {
		return nil, err
	}
	if err := s.Start(context.Background()); err != nil {
		return nil, err
	}
	return &SchedulerHandle{Scheduler: s}, nil
}
