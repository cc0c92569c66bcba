package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/metrics"
	"github.com/fosse-media/fosse/internal/scanner"
	"github.com/fosse-media/fosse/internal/search"
	"github.com/fosse-media/fosse/internal/store/sqlite"
)

// gatedExtractor blocks every extraction while gate is set, so tests can
// hold a scan open.
type gatedExtractor struct {
	mu      sync.Mutex
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (g *gatedExtractor) hold() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gate = make(chan struct{})
	g.entered = make(chan struct{})
	g.once = sync.Once{}
}

func (g *gatedExtractor) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	close(g.gate)
	g.gate = nil
}

func (g *gatedExtractor) Extract(_ context.Context, _ string) (domain.TechnicalMetadata, error) {
	g.mu.Lock()
	gate, entered := g.gate, g.entered
	g.mu.Unlock()
	if gate != nil {
		g.once.Do(func() { close(entered) })
		<-gate
	}
	return domain.TechnicalMetadata{
		DurationSeconds: 60,
		Width:           1280,
		Height:          720,
		VideoFormat:     "mp4",
		Codec:           "h264",
		FrameRate:       25,
		FileSizeBytes:   4,
	}, nil
}

// testServer wraps the API server for testing.
type testServer struct {
	*Server
	api       humatest.TestAPI
	root      string
	store     *sqlite.Store
	index     *search.Index
	extractor *gatedExtractor
}

// setupTestServer builds a server over a real catalog and a small media
// tree that has already been scanned once.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"fosse.yml":        "genre: Music\nplatform: Stage\n",
		"jazz/fosse.yml":   "subgenre: Jazz\nunder_influence: true\n",
		"jazz/night.mp4":   "clip",
		"rock/loud.mkv":    "clip",
		"rock/notes.txt":   "not a video",
		"comedy/fosse.yml": "genre: Comedy\n",
		"comedy/open.mp4":  "clip",
	})

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.Open(search.Options{DataPath: t.TempDir(), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	ext := &gatedExtractor{}
	sc := scanner.New(st, ext, scanner.Options{Workers: 2}, logger)
	sc.SetIndexer(index)
	_, err = sc.Scan(context.Background(), root)
	require.NoError(t, err)

	s := NewServer(Deps{
		Catalog: st,
		Scanner: sc,
		Search:  index,
		Metrics: metrics.New(),
		Root:    root,
		Logger:  logger,
	})
	t.Cleanup(s.Close)

	return &testServer{
		Server:    s,
		api:       humatest.Wrap(t, s.api),
		root:      root,
		store:     st,
		index:     index,
		extractor: ext,
	}
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func (ts *testServer) path(name string) string {
	return filepath.Join(ts.root, filepath.FromSlash(name))
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

// waitIdle blocks until no scan is running.
func (ts *testServer) waitIdle(t *testing.T) scanner.Status {
	t.Helper()
	var st scanner.Status
	require.Eventually(t, func() bool {
		st = ts.scanner.Status()
		return st.StartedAt == nil
	}, 5*time.Second, 10*time.Millisecond)
	return st
}
