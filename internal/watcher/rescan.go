package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/scanner"
)

// Target runs scans for the rescanner. *scanner.Scanner satisfies it.
type Target interface {
	Scan(ctx context.Context, root string) (*scanner.ScanResult, error)
	IsVideo(name string) bool
	NotebookFilename() string
}

// RescanOptions tunes how watch events turn into scans.
type RescanOptions struct {
	// SettleDelay is how long the tree must be quiet before a rescan starts.
	SettleDelay time.Duration
	// MinInterval is the minimum spacing between two rescans.
	MinInterval time.Duration
	// OnScan, when set, sees the outcome of every rescan.
	OnScan func(*scanner.ScanResult, error)
}

// Rescanner runs a full scan of root after relevant changes settle.
type Rescanner struct {
	target Target
	root   string
	opts   RescanOptions
	logger *slog.Logger

	newBackOff func() backoff.BackOff
}

// NewRescanner creates a rescanner for root.
func NewRescanner(target Target, root string, opts RescanOptions, logger *slog.Logger) *Rescanner {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 2 * time.Second
	}
	return &Rescanner{
		target:     target,
		root:       root,
		opts:       opts,
		logger:     logger,
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 5 * time.Minute
	return b
}

// Relevant reports whether ev can change the catalog: notebooks, videos
// and directories. Paths without an extension may be directories that are
// already gone, so they count too.
func (r *Rescanner) Relevant(ev Event) bool {
	if ev.IsDir {
		return true
	}
	name := filepath.Base(ev.Path)
	if name == r.target.NotebookFilename() || r.target.IsVideo(name) {
		return true
	}
	return filepath.Ext(name) == ""
}

// Run consumes events until ctx is canceled or events is closed.
func (r *Rescanner) Run(ctx context.Context, events <-chan Event) error {
	limiter := rate.NewLimiter(rate.Every(r.opts.MinInterval), 1)

	quiet := time.NewTimer(r.opts.SettleDelay)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !r.Relevant(ev) {
				continue
			}
			r.logger.Debug("change detected", "path", ev.Path, "type", ev.Type.String())
			quiet.Reset(r.opts.SettleDelay)
		case <-quiet.C:
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			r.rescan(ctx)
		}
	}
}

func (r *Rescanner) rescan(ctx context.Context) {
	var result *scanner.ScanResult
	op := func() error {
		res, err := r.target.Scan(ctx, r.root)
		if err == nil {
			result = res
			return nil
		}
		if errors.Is(err, errors.ErrScanInProgress) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Info("scan busy, retrying", "root", r.root, "retry_in", wait, "error", err)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(r.newBackOff(), ctx), notify)
	if err != nil {
		r.logger.Error("rescan failed", "root", r.root, "error", err)
	} else {
		r.logger.Info("rescan complete",
			"root", r.root,
			"added", result.Added,
			"updated", result.Updated,
			"removed", result.Removed,
			"cascaded", result.Cascaded,
		)
	}
	if r.opts.OnScan != nil {
		r.opts.OnScan(result, err)
	}
}
