// Package scanner runs scan sessions: it walks a media tree, records the
// notebooks and videos it finds in one catalog transaction, reconciles away
// what has disappeared and recomputes videos whose inherited configuration
// changed.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/normalize"
	"github.com/fosse-media/fosse/internal/notebook"
	"github.com/fosse-media/fosse/internal/resolve"
	"github.com/fosse-media/fosse/internal/scanner/probe"
	"github.com/fosse-media/fosse/internal/store"
)

// DefaultVideoExtensions are catalogued when Options leaves them empty.
var DefaultVideoExtensions = []string{".mp4", ".mkv", ".webm", ".avi", ".mov", ".flv", ".wmv", ".m4v"}

// Options configures a Scanner.
type Options struct {
	OnProgress       func(*Progress)
	NotebookFilename string
	VideoExtensions  []string
	Workers          int
	SkipHiddenDirs   bool
}

// Indexer receives the videos a committed scan changed or removed.
type Indexer interface {
	IndexVideos(ctx context.Context, videos []*domain.Video) error
	DeleteVideos(ctx context.Context, paths []string) error
}

// Recorder observes finished scans.
type Recorder interface {
	ScanFinished(result *ScanResult, err error, elapsed time.Duration)
}

// Scanner orchestrates scan sessions against a catalog. At most one scan
// runs at a time.
type Scanner struct {
	catalog    store.Catalog
	extractor  probe.Extractor
	logger     *slog.Logger
	walker     *Walker
	decoder    *Decoder
	extensions map[string]bool
	opts       Options

	indexer  Indexer
	recorder Recorder

	mu        sync.Mutex
	busy      bool
	state     State
	scanID    string
	root      string
	startedAt time.Time
	tracker   *ProgressTracker
	last      *ScanResult
	lastErr   error
}

// New creates a scanner. A nil extractor records default technical
// metadata for every file.
func New(catalog store.Catalog, extractor probe.Extractor, opts Options, logger *slog.Logger) *Scanner {
	if extractor == nil {
		extractor = probe.Defaults{}
	}
	if opts.NotebookFilename == "" {
		opts.NotebookFilename = notebook.DefaultFilename
	}
	if len(opts.VideoExtensions) == 0 {
		opts.VideoExtensions = DefaultVideoExtensions
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Scanner{
		catalog:    catalog,
		extractor:  extractor,
		logger:     logger,
		walker:     NewWalker(logger, opts.SkipHiddenDirs),
		decoder:    &Decoder{},
		extensions: normalize.ExtensionSet(opts.VideoExtensions),
		opts:       opts,
		state:      StateIdle,
	}
}

// SetIndexer attaches a search index updated after every committed scan.
func (s *Scanner) SetIndexer(idx Indexer) {
	s.indexer = idx
}

// SetRecorder attaches a scan observer.
func (s *Scanner) SetRecorder(r Recorder) {
	s.recorder = r
}

// IsVideo reports whether name has one of the configured video extensions.
func (s *Scanner) IsVideo(name string) bool {
	return s.extensions[normalize.Extension(filepath.Ext(name))]
}

// NotebookFilename is the notebook file name looked for in every directory.
func (s *Scanner) NotebookFilename() string {
	return s.opts.NotebookFilename
}

// Status reports the current state and the outcome of the last scan.
func (s *Scanner) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:      s.state,
		LastResult: s.last,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.busy {
		started := s.startedAt
		st.ScanID = s.scanID
		st.Root = s.root
		st.StartedAt = &started
		if s.tracker != nil {
			p := s.tracker.Get()
			st.Progress = &p
		}
	}
	return st
}

func (s *Scanner) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// run carries one scan's working state.
type run struct {
	sess    store.ScanSession
	result  *ScanResult
	tracker *ProgressTracker

	// configs caches the resolved configuration per directory for the
	// lifetime of the scan; entries are dropped when a notebook changes.
	configs *cache.Cache

	// dirty holds directories whose notebook was added or changed.
	dirty map[string]struct{}
	// upserted holds paths already written in this scan.
	upserted map[string]struct{}
	changed  []*domain.Video

	mu sync.Mutex
}

func (r *run) addError(path string, phase ScanPhase, err error) {
	r.mu.Lock()
	r.result.Errors = append(r.result.Errors, ScanError{
		Time:    time.Now(),
		Path:    path,
		Phase:   phase,
		Message: err.Error(),
	})
	r.mu.Unlock()
	r.tracker.AddError()
}

// pending is a media file that needs extraction and an upsert.
type pending struct {
	FileEntry
	existing bool
}

// Scan runs one scan session over root and commits it. On any error the
// catalog is left as it was before the scan.
func (s *Scanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	root = resolve.Dir(root)
	tracker, err := s.reserve(root)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, root, tracker)
}

// Start checks root and launches a scan in the background. It fails
// immediately with ROOT_NOT_FOUND or SCAN_IN_PROGRESS; otherwise the
// outcome is reported through Status and the attached Recorder.
func (s *Scanner) Start(ctx context.Context, root string) error {
	root = resolve.Dir(root)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return errors.RootNotFound(root, err)
	}
	tracker, err := s.reserve(root)
	if err != nil {
		return err
	}
	go func() {
		_, _ = s.execute(ctx, root, tracker)
	}()
	return nil
}

func (s *Scanner) reserve(root string) (*ProgressTracker, error) {
	s.mu.Lock()
	if s.busy {
		activeID := s.scanID
		s.mu.Unlock()
		err := errors.ScanInProgress(activeID)
		if s.recorder != nil {
			s.recorder.ScanFinished(nil, err, 0)
		}
		return nil, err
	}
	s.busy = true
	s.state = StateScanning
	s.root = root
	s.scanID = ""
	s.startedAt = time.Now()
	s.tracker = NewProgressTracker(s.opts.OnProgress)
	tracker := s.tracker
	s.mu.Unlock()
	return tracker, nil
}

func (s *Scanner) execute(ctx context.Context, root string, tracker *ProgressTracker) (*ScanResult, error) {
	start := time.Now()
	result, err := s.scan(ctx, root, tracker)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.busy = false
	s.tracker = nil
	if err != nil {
		s.state = StateFailed
		s.lastErr = err
	} else {
		s.state = StateIdle
		s.last = result
		s.lastErr = nil
	}
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.ScanFinished(result, err, elapsed)
	}
	return result, err
}

func (s *Scanner) scan(ctx context.Context, root string, tracker *ProgressTracker) (*ScanResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.RootNotFound(root, err)
	}
	if !info.IsDir() {
		return nil, errors.RootNotFound(root, fmt.Errorf("not a directory"))
	}

	sess, err := s.catalog.BeginScanSession(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			if err := sess.Rollback(); err != nil {
				s.logger.Error("failed to roll back scan", "scan_id", sess.ID(), "error", err)
			}
		}
	}()

	s.mu.Lock()
	s.scanID = sess.ID()
	s.state = StateScanning
	s.mu.Unlock()

	r := &run{
		sess: sess,
		result: &ScanResult{
			ScanID:    sess.ID(),
			Root:      root,
			StartedAt: time.Now(),
		},
		tracker:  tracker,
		configs:  cache.New(cache.NoExpiration, 0),
		dirty:    make(map[string]struct{}),
		upserted: make(map[string]struct{}),
	}

	s.logger.Info("scan started", "scan_id", sess.ID(), "root", root)

	if err := s.walk(ctx, r, root); err != nil {
		return nil, s.abort(sess, err)
	}

	s.setState(StateReconciling)
	tracker.SetPhase(PhaseReconciling)
	rec, err := sess.Reconcile(ctx)
	if err != nil {
		return nil, s.abort(sess, err)
	}
	r.result.Removed = len(rec.RemovedVideos)
	r.result.NotebooksRemoved = len(rec.RemovedNotebooks)

	tracker.SetPhase(PhaseCascading)
	if err := s.cascade(ctx, r, rec.RemovedNotebooks); err != nil {
		return nil, s.abort(sess, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, s.abort(sess, err)
	}
	if err := sess.Commit(); err != nil {
		return nil, s.abort(sess, err)
	}
	committed = true

	s.syncIndex(ctx, r, rec.RemovedVideos)

	tracker.SetPhase(PhaseComplete)
	r.result.CompletedAt = time.Now()
	res := r.result
	s.logger.Info("scan complete",
		"scan_id", res.ScanID,
		"added", res.Added,
		"updated", res.Updated,
		"unchanged", res.Unchanged,
		"removed", res.Removed,
		"skipped", res.Skipped,
		"cascaded", res.Cascaded,
		"notebooks_failed", res.NotebooksFailed,
		"errors", len(res.Errors),
		"duration", res.Duration(),
	)
	return res, nil
}

func (s *Scanner) abort(sess store.ScanSession, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("scan canceled", "scan_id", sess.ID(), "error", err)
		return fmt.Errorf("scan canceled: %w", err)
	}
	s.logger.Error("scan failed", "scan_id", sess.ID(), "error", err)
	return err
}

// walk visits every directory in pre-order. Cancellation is honored between
// directories.
func (s *Scanner) walk(ctx context.Context, r *run, root string) error {
	walkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for entry := range s.walker.Walk(walkCtx, root) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.Err != nil {
			if entry.Dir == root {
				return errors.RootUnreadable(root, entry.Err)
			}
			if err := s.keepSubtree(ctx, r, entry); err != nil {
				return err
			}
			continue
		}
		for _, p := range entry.Unreadable {
			// The row stays until the file can be read again.
			r.sess.MarkFileSeen(p)
		}
		if err := s.handleNotebook(ctx, r, entry); err != nil {
			return err
		}
		if err := s.handleMedia(ctx, r, entry); err != nil {
			return err
		}
		r.tracker.Increment(entry.Dir)
	}
	return ctx.Err()
}

// keepSubtree retains the catalog entries below a directory that could not
// be read. Nothing is known about its current contents, so nothing there is
// removed; a cascade from an ancestor still recomputes the kept rows from
// the kept notebooks.
func (s *Scanner) keepSubtree(ctx context.Context, r *run, entry WalkResult) error {
	kept, err := r.sess.KeepSubtree(ctx, entry.Dir)
	if err != nil {
		return err
	}
	r.addError(entry.Dir, PhaseWalking, entry.Err)
	s.logger.Warn("directory unreadable, keeping its catalog entries",
		"dir", entry.Dir, "videos", kept, "error", entry.Err)
	return nil
}

// handleNotebook records the directory's notebook, if it has one. A notebook
// that fails to load is reported and the previously stored version kept.
func (s *Scanner) handleNotebook(ctx context.Context, r *run, entry WalkResult) error {
	file, ok := entry.File(s.opts.NotebookFilename)
	if !ok {
		return nil
	}

	nb, err := notebook.Load(file.Path)
	if err != nil {
		s.logger.Warn("failed to load notebook", "path", file.Path, "error", err)
		r.addError(file.Path, PhaseWalking, err)
		r.result.NotebooksFailed++
		r.sess.MarkNotebookSeen(entry.Dir)
		return nil
	}

	stored, err := r.sess.LookupNotebook(ctx, entry.Dir)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}
	if stored != nil && stored.Notebook.Equal(nb) {
		r.sess.MarkNotebookSeen(entry.Dir)
		return nil
	}

	if err := r.sess.UpsertNotebook(ctx, entry.Dir, nb); err != nil {
		return err
	}
	if stored == nil {
		r.result.NotebooksAdded++
		s.logger.Debug("notebook added", "dir", entry.Dir)
	} else {
		r.result.NotebooksUpdated++
		s.logger.Info("notebook changed, dependents will be updated", "dir", entry.Dir)
	}
	r.dirty[entry.Dir] = struct{}{}
	r.configs.Flush()
	return nil
}

// handleMedia catalogues the directory's video files.
func (s *Scanner) handleMedia(ctx context.Context, r *run, entry WalkResult) error {
	var videos []FileEntry
	for _, f := range entry.Files {
		if s.IsVideo(f.Name) {
			videos = append(videos, f)
		}
	}
	if len(videos) == 0 {
		return nil
	}

	cfg, err := s.configFor(ctx, r, entry.Dir)
	if err != nil {
		return err
	}
	if cfg.Notebook().Skip() {
		r.result.Skipped += len(videos)
		s.logger.Debug("skipping directory", "dir", entry.Dir, "files", len(videos))
		return nil
	}

	var work []pending
	for _, f := range videos {
		r.sess.MarkFileSeen(f.Path)
		existing, err := r.sess.LookupVideo(ctx, f.Path)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return err
		}
		if existing != nil && !f.ModTime.After(existing.LastModified) {
			r.result.Unchanged++
			continue
		}
		work = append(work, pending{FileEntry: f, existing: existing != nil})
	}
	if len(work) == 0 {
		return nil
	}

	techs := s.extractAll(ctx, r, work)
	for i, p := range work {
		v := s.buildVideo(p.Path, techs[i], cfg)
		if err := r.sess.UpsertVideo(ctx, v); err != nil {
			return err
		}
		r.upserted[p.Path] = struct{}{}
		r.changed = append(r.changed, v)
		if p.existing {
			r.result.Updated++
		} else {
			r.result.Added++
		}
	}
	return nil
}

// extractAll reads technical metadata for work with at most Workers calls in
// flight. Extraction never fails the scan.
func (s *Scanner) extractAll(ctx context.Context, r *run, work []pending) []domain.TechnicalMetadata {
	out := make([]domain.TechnicalMetadata, len(work))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, p := range work {
		g.Go(func() error {
			meta, err := s.extractor.Extract(gctx, p.Path)
			if err != nil {
				s.logger.Warn("technical metadata unavailable", "path", p.Path, "error", err)
				r.addError(p.Path, PhaseExtracting, err)
				meta = domain.DefaultTechnicalMetadata()
				meta.FileSizeBytes = p.Size
			}
			out[i] = meta
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// configFor resolves the configuration governing files directly in dir,
// counting only notebooks seen so far in this scan.
func (s *Scanner) configFor(ctx context.Context, r *run, dir string) (*resolve.Config, error) {
	if v, ok := r.configs.Get(dir); ok {
		return v.(*resolve.Config), nil
	}
	// Any file name works: resolution depends only on the parent directory.
	cfg, err := r.sess.ResolveEffectiveConfig(ctx, filepath.Join(dir, s.opts.NotebookFilename))
	if err != nil {
		return nil, err
	}
	r.configs.Set(dir, cfg, cache.NoExpiration)
	return cfg, nil
}

// buildVideo derives a catalog record from technical metadata and the
// effective configuration.
func (s *Scanner) buildVideo(path string, tech domain.TechnicalMetadata, cfg *resolve.Config) *domain.Video {
	nb := cfg.Notebook()

	decoded := s.decoder.Decode(path, nb)
	if decoded.Err != nil {
		s.logger.Debug("recording date not decoded", "path", path, "error", decoded.Err)
	}

	return &domain.Video{
		FilePath:          path,
		DisplayName:       decoded.DisplayName,
		TechnicalMetadata: tech,
		Genre:             dimension(nb, notebook.KeyGenre),
		Subgenre:          dimension(nb, notebook.KeySubgenre),
		Platform:          dimension(nb, notebook.KeyPlatform),
		Title:             dimension(nb, notebook.KeyTitle),
		RecordingDate:     decoded.RecordingDate,
		UnderInfluence:    nb.Bool(notebook.KeyUnderInfluence),
		SourceNotebooks:   slices.Clone(cfg.Sources),
		Config:            cfg.Merged(),
	}
}

func dimension(nb *notebook.Notebook, key string) string {
	v, _ := nb.Value(key)
	return normalize.DimensionName(v)
}

// cascade recomputes every catalogued video beneath a directory whose
// notebook was added, changed or removed in this scan. Videos already
// written in this scan are current and left alone.
func (s *Scanner) cascade(ctx context.Context, r *run, removed []string) error {
	dirs := slices.Collect(maps.Keys(r.dirty))
	dirs = append(dirs, removed...)
	slices.Sort(dirs)
	dirs = slices.Compact(dirs)
	if len(dirs) == 0 {
		return nil
	}
	r.configs.Flush()
	r.tracker.SetTotal(len(dirs))

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		videos, err := r.sess.VideosUnder(ctx, dir)
		if err != nil {
			return err
		}
		for _, v := range videos {
			if _, done := r.upserted[v.FilePath]; done {
				continue
			}
			cfg, err := s.configFor(ctx, r, filepath.Dir(v.FilePath))
			if err != nil {
				return err
			}
			updated := s.buildVideo(v.FilePath, v.TechnicalMetadata, cfg)
			if err := r.sess.UpsertVideo(ctx, updated); err != nil {
				return err
			}
			r.upserted[v.FilePath] = struct{}{}
			r.changed = append(r.changed, updated)
			r.result.Cascaded++
		}
		s.logger.Debug("cascaded notebook change", "dir", dir, "videos", len(videos))
		r.tracker.Increment(dir)
	}
	return nil
}

// syncIndex pushes committed changes to the search index. Index failures
// are logged; the catalog remains the source of truth.
func (s *Scanner) syncIndex(ctx context.Context, r *run, removed []string) {
	if s.indexer == nil {
		return
	}
	r.tracker.SetPhase(PhaseIndexing)
	if len(r.changed) > 0 {
		if err := s.indexer.IndexVideos(ctx, r.changed); err != nil {
			s.logger.Error("failed to index videos", "count", len(r.changed), "error", err)
		}
	}
	if len(removed) > 0 {
		if err := s.indexer.DeleteVideos(ctx, removed); err != nil {
			s.logger.Error("failed to remove videos from index", "count", len(removed), "error", err)
		}
	}
}
