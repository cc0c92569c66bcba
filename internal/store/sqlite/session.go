package sqlite

import (
	"context"
	"database/sql"
	"slices"
	"sync"
	"time"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/id"
	"github.com/fosse-media/fosse/internal/notebook"
	"github.com/fosse-media/fosse/internal/resolve"
	"github.com/fosse-media/fosse/internal/store"
)

// deleteChunk bounds the number of keys per DELETE statement.
const deleteChunk = 500

// session is one scan's write transaction and its seen sets.
type session struct {
	store *Store
	id    string
	ctx   context.Context
	tx    *sql.Tx

	// startedAt stamps every row written by the session. It precedes every
	// file read of the scan, so a file changed mid-scan is newer than its
	// row and is re-extracted next time.
	startedAt time.Time

	mu        sync.Mutex
	seenDirs  map[string]struct{}
	seenFiles map[string]struct{}
	done      bool
}

var _ store.ScanSession = (*session)(nil)

// BeginScanSession opens the scan transaction with empty seen sets.
//
// Only one session may be active. A session whose context has already ended
// was abandoned by its owner; it is rolled back and replaced.
func (s *Store) BeginScanSession(ctx context.Context) (store.ScanSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev := s.active; prev != nil {
		if prev.ctx.Err() == nil {
			return nil, errors.ScanInProgress(prev.id)
		}
		s.logger.Warn("resetting abandoned scan session", "scan_id", prev.id)
		prev.discard()
		s.active = nil
	}

	scanID, err := id.Generate("scan")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate scan id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Storage("begin scan session", err)
	}

	sess := &session{
		store:     s,
		id:        scanID,
		ctx:       ctx,
		tx:        tx,
		startedAt: s.now(),
		seenDirs:  make(map[string]struct{}),
		seenFiles: make(map[string]struct{}),
	}
	s.active = sess
	s.logger.Debug("scan session started", "scan_id", scanID)
	return sess, nil
}

func (s *Store) release(sess *session) {
	s.mu.Lock()
	if s.active == sess {
		s.active = nil
	}
	s.mu.Unlock()
}

func (sess *session) ID() string {
	return sess.id
}

func (sess *session) UpsertNotebook(ctx context.Context, dir string, nb *notebook.Notebook) error {
	if err := upsertNotebook(ctx, sess.tx, dir, nb, sess.startedAt); err != nil {
		return errors.Storage("upsert notebook", err)
	}
	sess.MarkNotebookSeen(dir)
	return nil
}

func (sess *session) MarkNotebookSeen(dir string) {
	sess.mu.Lock()
	sess.seenDirs[dir] = struct{}{}
	sess.mu.Unlock()
}

func (sess *session) dirSeen(dir string) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	_, ok := sess.seenDirs[dir]
	return ok
}

func (sess *session) LookupNotebook(ctx context.Context, dir string) (*domain.NotebookRecord, error) {
	rec, err := lookupNotebook(ctx, sess.tx, dir)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, errors.Storage("lookup notebook", err)
	}
	return rec, err
}

// ResolveEffectiveConfig ignores notebooks not yet seen in this session, so
// a notebook that is about to be reconciled away never contributes.
func (sess *session) ResolveEffectiveConfig(ctx context.Context, filePath string) (*resolve.Config, error) {
	cfg, err := resolveConfig(ctx, sess.tx, filePath, sess.dirSeen)
	if err != nil {
		return nil, errors.Storage("resolve effective config", err)
	}
	return cfg, nil
}

func (sess *session) MarkFileSeen(path string) {
	sess.mu.Lock()
	sess.seenFiles[path] = struct{}{}
	sess.mu.Unlock()
}

func (sess *session) LookupVideo(ctx context.Context, path string) (*domain.Video, error) {
	v, err := lookupVideo(ctx, sess.tx, path)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, errors.Storage("lookup video", err)
	}
	return v, err
}

func (sess *session) UpsertVideo(ctx context.Context, v *domain.Video) error {
	if err := upsertVideo(ctx, sess.tx, v, sess.startedAt); err != nil {
		return errors.Storage("upsert video", err)
	}
	sess.MarkFileSeen(v.FilePath)
	return nil
}

func (sess *session) VideosUnder(ctx context.Context, dir string) ([]*domain.Video, error) {
	videos, err := videosUnder(ctx, sess.tx, dir)
	if err != nil {
		return nil, errors.Storage("list videos under "+dir, err)
	}
	return videos, nil
}

// Reconcile deletes every notebook and video that was not seen in this
// session. The deletes stay inside the transaction until Commit.
func (sess *session) Reconcile(ctx context.Context) (*store.ReconcileResult, error) {
	sess.mu.Lock()
	dirs := sess.seenDirs
	files := sess.seenFiles
	sess.mu.Unlock()

	staleDirs, err := sess.unseen(ctx, `SELECT directory_path FROM notebooks`, dirs)
	if err != nil {
		return nil, errors.Storage("reconcile notebooks", err)
	}
	if err := sess.deleteKeys(ctx, `DELETE FROM notebooks WHERE directory_path IN `, staleDirs); err != nil {
		return nil, errors.Storage("reconcile notebooks", err)
	}

	staleFiles, err := sess.unseen(ctx, `SELECT file_path FROM videos`, files)
	if err != nil {
		return nil, errors.Storage("reconcile videos", err)
	}
	if err := sess.deleteKeys(ctx, `DELETE FROM videos WHERE file_path IN `, staleFiles); err != nil {
		return nil, errors.Storage("reconcile videos", err)
	}

	sess.store.logger.Debug("reconciled scan session",
		"scan_id", sess.id,
		"removed_notebooks", len(staleDirs),
		"removed_videos", len(staleFiles),
	)
	return &store.ReconcileResult{
		RemovedNotebooks: staleDirs,
		RemovedVideos:    staleFiles,
	}, nil
}

// KeepSubtree marks every stored notebook and video at or below dir as seen,
// so reconciliation leaves a directory the walk could not read untouched.
// It returns the number of videos kept.
func (sess *session) KeepSubtree(ctx context.Context, dir string) (int, error) {
	lo, hi := prefixRange(dir)

	dirs, err := sess.keys(ctx, `SELECT directory_path FROM notebooks
		WHERE directory_path = ? OR (directory_path >= ? AND directory_path < ?)`, dir, lo, hi)
	if err != nil {
		return 0, errors.Storage("keep notebooks under "+dir, err)
	}
	files, err := sess.keys(ctx, `SELECT file_path FROM videos
		WHERE file_path >= ? AND file_path < ?`, lo, hi)
	if err != nil {
		return 0, errors.Storage("keep videos under "+dir, err)
	}

	sess.mu.Lock()
	for _, d := range dirs {
		sess.seenDirs[d] = struct{}{}
	}
	for _, f := range files {
		sess.seenFiles[f] = struct{}{}
	}
	sess.mu.Unlock()
	return len(files), nil
}

// keys runs a single-column query inside the session.
func (sess *session) keys(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := sess.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, rows.Err()
}

// unseen returns the keys produced by query that are missing from seen.
func (sess *session) unseen(ctx context.Context, query string, seen map[string]struct{}) ([]string, error) {
	all, err := sess.keys(ctx, query)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	var stale []string
	for _, key := range all {
		if _, ok := seen[key]; !ok {
			stale = append(stale, key)
		}
	}
	sess.mu.Unlock()

	slices.Sort(stale)
	return stale, nil
}

func (sess *session) deleteKeys(ctx context.Context, stmt string, keys []string) error {
	for chunk := range slices.Chunk(keys, deleteChunk) {
		if _, err := sess.tx.ExecContext(ctx,
			stmt+`(`+placeholders(len(chunk))+`)`, stringArgs(chunk)...); err != nil {
			return err
		}
	}
	return nil
}

// Commit makes every write of the session visible.
func (sess *session) Commit() error {
	sess.mu.Lock()
	if sess.done {
		sess.mu.Unlock()
		return errors.Storage("commit scan session", sql.ErrTxDone)
	}
	sess.done = true
	sess.mu.Unlock()

	defer sess.store.release(sess)
	if err := sess.tx.Commit(); err != nil {
		return errors.Storage("commit scan session", err)
	}
	sess.store.logger.Debug("scan session committed", "scan_id", sess.id)
	return nil
}

// Rollback discards the session. It is a no-op once committed or rolled back.
func (sess *session) Rollback() error {
	sess.mu.Lock()
	if sess.done {
		sess.mu.Unlock()
		return nil
	}
	sess.done = true
	sess.mu.Unlock()

	defer sess.store.release(sess)
	// A canceled context has already rolled the transaction back.
	if err := sess.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return errors.Storage("rollback scan session", err)
	}
	sess.store.logger.Debug("scan session rolled back", "scan_id", sess.id)
	return nil
}

// discard rolls back without touching Store.active; the caller holds Store.mu.
func (sess *session) discard() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.done {
		return
	}
	sess.done = true
	_ = sess.tx.Rollback()
}
