package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/notebook"
	"github.com/fosse-media/fosse/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustNotebook(t *testing.T, doc string) *notebook.Notebook {
	t.Helper()
	nb, err := notebook.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse notebook: %v", err)
	}
	return nb
}

func beginSession(t *testing.T, s *Store) store.ScanSession {
	t.Helper()
	sess, err := s.BeginScanSession(context.Background())
	if err != nil {
		t.Fatalf("begin scan session: %v", err)
	}
	t.Cleanup(func() { sess.Rollback() })
	return sess
}

func commit(t *testing.T, sess store.ScanSession) {
	t.Helper()
	if err := sess.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

// seed commits the given notebooks and videos in one session.
func seed(t *testing.T, s *Store, notebooks map[string]string, videos ...*domain.Video) {
	t.Helper()
	ctx := context.Background()
	sess := beginSession(t, s)
	for dir, doc := range notebooks {
		if err := sess.UpsertNotebook(ctx, dir, mustNotebook(t, doc)); err != nil {
			t.Fatalf("upsert notebook %s: %v", dir, err)
		}
	}
	for _, v := range videos {
		if err := sess.UpsertVideo(ctx, v); err != nil {
			t.Fatalf("upsert video %s: %v", v.FilePath, err)
		}
	}
	commit(t, sess)
}

func newVideo(path string) *domain.Video {
	return &domain.Video{
		FilePath:          path,
		DisplayName:       domain.Stem(path),
		TechnicalMetadata: domain.DefaultTechnicalMetadata(),
	}
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	for _, table := range []string{"notebooks", "videos", "genres", "subgenres", "platforms", "titles"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.DiscardHandler)

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	seed(t, s, map[string]string{"/media": "genre: Skate\n"})
	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent) and keep the data.
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	defer s2.Close()

	if _, err := s2.LookupNotebook(context.Background(), "/media"); err != nil {
		t.Fatalf("lookup after reopen: %v", err)
	}
}

func TestUpsertNotebook_UpdatesInPlace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed(t, s, map[string]string{"/media/skate": "genre: Skate\n"})
	first, err := s.LookupNotebook(ctx, "/media/skate")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	seed(t, s, map[string]string{"/media/skate": "genre: Surf\n"})
	second, err := s.LookupNotebook(ctx, "/media/skate")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("notebook was duplicated: id %d then %d", first.ID, second.ID)
	}
	if g, _ := second.Notebook.String(notebook.KeyGenre); g != "Surf" {
		t.Errorf("expected genre Surf, got %q", g)
	}
	if second.LastModified.Before(first.LastModified) {
		t.Errorf("last_modified went backwards")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Notebooks != 1 {
		t.Errorf("expected 1 notebook row, got %d", stats.Notebooks)
	}
}

func TestLookupNotebook_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LookupNotebook(context.Background(), "/nowhere")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResolveEffectiveConfig_DeepestWins(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, map[string]string{
		"/a":   "x: 1\ny: 1\n",
		"/a/b": "y: 2\nz: 3\n",
		"/a/c": "y: 99\n",
	})

	cfg, err := s.ResolveEffectiveConfig(context.Background(), "/a/b/c/file.mp4")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := mustNotebook(t, "x: 1\ny: 2\nz: 3\n")
	if !want.Equal(cfg.Notebook()) {
		t.Errorf("merged = %v", cfg.Merged())
	}
	if len(cfg.Sources) != 2 || cfg.Sources[0] != "/a/b" || cfg.Sources[1] != "/a" {
		t.Errorf("sources = %v, want [/a/b /a]", cfg.Sources)
	}
}

func TestResolveEffectiveConfig_NoAncestors(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, map[string]string{"/other": "genre: Skate\n"})

	cfg, err := s.ResolveEffectiveConfig(context.Background(), "/media/clip.mp4")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !cfg.IsEmpty() || len(cfg.Merged()) != 0 {
		t.Errorf("expected empty config, got %v from %v", cfg.Merged(), cfg.Sources)
	}
}

func TestSessionResolve_OnlySeenNotebooks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, map[string]string{
		"/a":   "genre: Skate\n",
		"/a/b": "platform: GoPro\n",
	})

	sess := beginSession(t, s)
	sess.MarkNotebookSeen("/a")

	cfg, err := sess.ResolveEffectiveConfig(ctx, "/a/b/clip.mp4")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, ok := cfg.Notebook().Value(notebook.KeyPlatform); ok {
		t.Errorf("unseen notebook /a/b contributed: %v", cfg.Merged())
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0] != "/a" {
		t.Errorf("sources = %v", cfg.Sources)
	}
}

func TestUpsertVideo_DimensionDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := newVideo("/media/a.mp4")
	a.Genre, a.Subgenre, a.Platform, a.Title = "Skate", "Street", "GoPro", "Hero 9"
	b := newVideo("/media/b.mp4")
	b.Genre, b.Subgenre = "Skate", "Street"

	seed(t, s, nil, a, b)

	if a.GenreID == nil || b.GenreID == nil || *a.GenreID != *b.GenreID {
		t.Fatalf("genre ids differ: %v vs %v", a.GenreID, b.GenreID)
	}

	genres, err := s.ListDimension(ctx, domain.DimensionGenre)
	if err != nil {
		t.Fatalf("list genres: %v", err)
	}
	if len(genres) != 1 || genres[0].Name != "Skate" {
		t.Fatalf("expected one Skate genre, got %+v", genres)
	}

	subgenres, err := s.ListDimension(ctx, domain.DimensionSubgenre)
	if err != nil {
		t.Fatalf("list subgenres: %v", err)
	}
	if len(subgenres) != 1 || subgenres[0].ParentID == nil || *subgenres[0].ParentID != genres[0].ID {
		t.Errorf("subgenre not scoped under its genre: %+v", subgenres)
	}

	titles, err := s.ListDimension(ctx, domain.DimensionTitle)
	if err != nil {
		t.Fatalf("list titles: %v", err)
	}
	if len(titles) != 1 || titles[0].ParentID == nil || *titles[0].ParentID != *a.PlatformID {
		t.Errorf("title not scoped under its platform: %+v", titles)
	}

	got, err := s.GetVideo(ctx, "/media/b.mp4")
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if got.Genre != "Skate" || got.Platform != "" || got.PlatformID != nil {
		t.Errorf("unexpected dimensions on b: %+v", got)
	}
}

func TestGetOrCreateDimension_EmptyName(t *testing.T) {
	s := newTestStore(t)

	id, err := getOrCreateDimension(context.Background(), s.db, domain.DimensionGenre, "  \t", nil)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if id != nil {
		t.Errorf("expected no id for a blank name, got %d", *id)
	}
}

func TestGetOrCreateDimension_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := getOrCreateDimension(ctx, s.db, domain.DimensionPlatform, "GoPro", nil)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := getOrCreateDimension(ctx, s.db, domain.DimensionPlatform, " GoPro ", nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if *first != *second {
		t.Errorf("expected same id, got %d and %d", *first, *second)
	}
}

func TestUpsertVideo_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v := newVideo("/media/GX0102.mp4")
	v.DurationSeconds = 12.5
	v.Width, v.Height = 1920, 1080
	v.VideoFormat, v.Codec = "mov", "h264"
	v.FrameRate = 29.97
	v.FileSizeBytes = 1 << 20
	v.BitRate = 8_000_000
	v.AspectRatio = "16:9"
	v.UnderInfluence = true
	v.SourceNotebooks = []string{"/media"}
	v.Config = map[string]any{"genre": "Skate"}

	seed(t, s, nil, v)

	got, err := s.GetVideo(ctx, v.FilePath)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if got.ID != v.ID || got.Width != 1920 || got.Codec != "h264" || got.AspectRatio != "16:9" {
		t.Errorf("unexpected video: %+v", got)
	}
	if !got.UnderInfluence || got.BitRate != 8_000_000 || got.FrameRate != 29.97 {
		t.Errorf("unexpected video: %+v", got)
	}
	if len(got.SourceNotebooks) != 1 || got.SourceNotebooks[0] != "/media" {
		t.Errorf("source notebooks = %v", got.SourceNotebooks)
	}
	if got.Config["genre"] != "Skate" {
		t.Errorf("config = %v", got.Config)
	}
	if got.RecordingDate != nil {
		t.Errorf("expected no recording date, got %v", got.RecordingDate)
	}
}

func TestMarkVideoUsed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, nil, newVideo("/media/a.mp4"))

	at := s.now()
	if err := s.MarkVideoUsed(ctx, "/media/a.mp4", at); err != nil {
		t.Fatalf("mark used: %v", err)
	}

	// A rescan that updates the row keeps last_used.
	seed(t, s, nil, newVideo("/media/a.mp4"))

	got, err := s.GetVideo(ctx, "/media/a.mp4")
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if got.LastUsed == nil || !got.LastUsed.Equal(at.UTC()) {
		t.Errorf("last_used = %v, want %v", got.LastUsed, at)
	}

	err = s.MarkVideoUsed(ctx, "/media/missing.mp4", at)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestVideosUnder_ExcludesSiblings(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, nil,
		newVideo("/m/a/one.mp4"),
		newVideo("/m/a/deep/two.mp4"),
		newVideo("/m/a2/three.mp4"),
		newVideo("/m/a.mp4"),
	)

	sess := beginSession(t, s)
	videos, err := sess.VideosUnder(context.Background(), "/m/a")
	if err != nil {
		t.Fatalf("videos under: %v", err)
	}

	var paths []string
	for _, v := range videos {
		paths = append(paths, v.FilePath)
	}
	if len(paths) != 2 || paths[0] != "/m/a/deep/two.mp4" || paths[1] != "/m/a/one.mp4" {
		t.Errorf("videos under /m/a = %v", paths)
	}
}

func TestListVideos_PaginationAndFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var videos []*domain.Video
	for _, p := range []string{"/m/a.mp4", "/m/b.mp4", "/m/c.mp4", "/m/d.mp4", "/m/e.mp4"} {
		v := newVideo(p)
		v.Genre = "Skate"
		videos = append(videos, v)
	}
	videos[4].Genre = "Surf"
	seed(t, s, nil, videos...)

	var seen []string
	params := store.PaginationParams{Limit: 2}
	for {
		page, err := s.ListVideos(ctx, store.VideoFilter{Genre: "Skate"}, params)
		if err != nil {
			t.Fatalf("list videos: %v", err)
		}
		if page.Total != 4 {
			t.Errorf("total = %d, want 4", page.Total)
		}
		for _, v := range page.Items {
			seen = append(seen, v.FilePath)
		}
		if !page.HasMore {
			break
		}
		params.Cursor = page.NextCursor
	}

	want := []string{"/m/a.mp4", "/m/b.mp4", "/m/c.mp4", "/m/d.mp4"}
	if len(seen) != len(want) {
		t.Fatalf("paged through %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("item %d = %s, want %s", i, seen[i], want[i])
		}
	}

	_, err := s.ListVideos(ctx, store.VideoFilter{}, store.PaginationParams{Cursor: "%%%"})
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error for a bad cursor, got %v", err)
	}
}

func TestReconcile_RemovesUnseen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s,
		map[string]string{"/m": "genre: Skate\n", "/m/gone": "genre: Surf\n"},
		newVideo("/m/keep.mp4"),
		newVideo("/m/gone/lost.mp4"),
	)

	sess := beginSession(t, s)
	sess.MarkNotebookSeen("/m")
	sess.MarkFileSeen("/m/keep.mp4")

	res, err := sess.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(res.RemovedNotebooks) != 1 || res.RemovedNotebooks[0] != "/m/gone" {
		t.Errorf("removed notebooks = %v", res.RemovedNotebooks)
	}
	if len(res.RemovedVideos) != 1 || res.RemovedVideos[0] != "/m/gone/lost.mp4" {
		t.Errorf("removed videos = %v", res.RemovedVideos)
	}

	// Readers must not observe the deletes before commit.
	if _, err := s.GetVideo(ctx, "/m/gone/lost.mp4"); err != nil {
		t.Errorf("uncommitted delete is visible: %v", err)
	}

	commit(t, sess)

	if _, err := s.GetVideo(ctx, "/m/gone/lost.mp4"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected stale video to be gone, got %v", err)
	}
	if _, err := s.LookupNotebook(ctx, "/m/gone"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected stale notebook to be gone, got %v", err)
	}
	if _, err := s.GetVideo(ctx, "/m/keep.mp4"); err != nil {
		t.Errorf("seen video was removed: %v", err)
	}
}

func TestKeepSubtree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s,
		map[string]string{"/m": "genre: Skate\n", "/m/locked": "genre: Surf\n", "/m/locked/deep": "platform: Wave\n", "/m/locked2": "genre: Snow\n"},
		newVideo("/m/locked/a.mp4"),
		newVideo("/m/locked/deep/b.mp4"),
		newVideo("/m/locked2/c.mp4"),
		newVideo("/m/d.mp4"),
	)

	sess := beginSession(t, s)
	sess.MarkNotebookSeen("/m")
	sess.MarkFileSeen("/m/d.mp4")
	kept, err := sess.KeepSubtree(ctx, "/m/locked")
	if err != nil {
		t.Fatalf("keep subtree: %v", err)
	}
	if kept != 2 {
		t.Errorf("kept %d videos, want 2", kept)
	}

	res, err := sess.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	commit(t, sess)

	if len(res.RemovedNotebooks) != 1 || res.RemovedNotebooks[0] != "/m/locked2" {
		t.Errorf("removed notebooks = %v", res.RemovedNotebooks)
	}
	if len(res.RemovedVideos) != 1 || res.RemovedVideos[0] != "/m/locked2/c.mp4" {
		t.Errorf("removed videos = %v", res.RemovedVideos)
	}
	for _, dir := range []string{"/m/locked", "/m/locked/deep"} {
		if _, err := s.LookupNotebook(ctx, dir); err != nil {
			t.Errorf("notebook %s was removed: %v", dir, err)
		}
	}
}

func TestScanSession_OutsideWriteWaitsForCommit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, nil, newVideo("/m/a.mp4"))

	sess := beginSession(t, s)
	if _, err := sess.LookupVideo(ctx, "/m/a.mp4"); err != nil {
		t.Fatalf("lookup: %v", err)
	}

	used := make(chan error, 1)
	go func() {
		used <- s.MarkVideoUsed(ctx, "/m/a.mp4", time.Now())
	}()
	time.Sleep(100 * time.Millisecond)

	// The session already holds the write lock, so its own writes never
	// conflict with the outside update.
	if err := sess.UpsertVideo(ctx, newVideo("/m/a.mp4")); err != nil {
		t.Fatalf("upsert during outside write: %v", err)
	}
	commit(t, sess)

	select {
	case err := <-used:
		if err != nil {
			t.Fatalf("mark used: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("mark used did not finish after commit")
	}

	got, err := s.GetVideo(ctx, "/m/a.mp4")
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if got.LastUsed == nil {
		t.Error("last_used lost")
	}
}

func TestScanSession_StampsStartTime(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }

	sess := beginSession(t, s)
	s.now = func() time.Time { return start.Add(time.Hour) }
	if err := sess.UpsertNotebook(ctx, "/m", mustNotebook(t, "genre: Skate\n")); err != nil {
		t.Fatalf("upsert notebook: %v", err)
	}
	if err := sess.UpsertVideo(ctx, newVideo("/m/a.mp4")); err != nil {
		t.Fatalf("upsert video: %v", err)
	}
	commit(t, sess)

	v, err := s.GetVideo(ctx, "/m/a.mp4")
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if !v.LastModified.Equal(start) {
		t.Errorf("video last_modified = %v, want %v", v.LastModified, start)
	}
	nb, err := s.LookupNotebook(ctx, "/m")
	if err != nil {
		t.Fatalf("lookup notebook: %v", err)
	}
	if !nb.LastModified.Equal(start) {
		t.Errorf("notebook last_modified = %v, want %v", nb.LastModified, start)
	}
}

func TestReconcile_ManyStaleRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var videos []*domain.Video
	for i := range deleteChunk + 20 {
		videos = append(videos, newVideo(filepath.Join("/m", "v"+string(rune('a'+i%26)), "clip"+strconv.Itoa(i)+".mp4")))
	}
	seed(t, s, nil, videos...)

	sess := beginSession(t, s)
	res, err := sess.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	commit(t, sess)

	if len(res.RemovedVideos) != len(videos) {
		t.Errorf("removed %d videos, want %d", len(res.RemovedVideos), len(videos))
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Videos != 0 {
		t.Errorf("expected empty catalog, got %d videos", stats.Videos)
	}
}

func TestRollback_LeavesCatalogUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, map[string]string{"/m": "genre: Skate\n"}, newVideo("/m/a.mp4"))

	sess := beginSession(t, s)
	if err := sess.UpsertVideo(ctx, newVideo("/m/new.mp4")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := sess.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if err := sess.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Videos != 1 || stats.Notebooks != 1 {
		t.Errorf("catalog changed after rollback: %+v", stats)
	}
	if _, err := s.GetVideo(ctx, "/m/new.mp4"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("rolled back video is visible: %v", err)
	}

	// Rollback after rollback is a no-op.
	if err := sess.Rollback(); err != nil {
		t.Errorf("second rollback: %v", err)
	}
}

func TestBeginScanSession_RejectsConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := beginSession(t, s)

	_, err := s.BeginScanSession(ctx)
	if !errors.Is(err, errors.ErrScanInProgress) {
		t.Fatalf("expected scan in progress, got %v", err)
	}

	commit(t, first)

	second, err := s.BeginScanSession(ctx)
	if err != nil {
		t.Fatalf("begin after commit: %v", err)
	}
	if second.ID() == first.ID() {
		t.Errorf("session ids should differ")
	}
	second.Rollback()
}

func TestBeginScanSession_ResetsAbandoned(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	abandoned, err := s.BeginScanSession(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	abandoned.MarkFileSeen("/m/a.mp4")
	cancel()

	next, err := s.BeginScanSession(context.Background())
	if err != nil {
		t.Fatalf("expected abandoned session to be reset, got %v", err)
	}
	defer next.Rollback()

	if err := abandoned.Commit(); err == nil {
		t.Errorf("commit of a reset session should fail")
	}
}

func TestCommitTwice(t *testing.T) {
	s := newTestStore(t)
	sess := beginSession(t, s)
	commit(t, sess)

	if err := sess.Commit(); !errors.Is(err, errors.ErrStorage) {
		t.Errorf("expected storage error on second commit, got %v", err)
	}
	if err := sess.Rollback(); err != nil {
		t.Errorf("rollback after commit should be a no-op, got %v", err)
	}
}
