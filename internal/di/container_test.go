package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosse-media/fosse/internal/config"
	"github.com/fosse-media/fosse/internal/di/providers"
	"github.com/fosse-media/fosse/internal/scanner"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "media")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "jazz"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "fosse.yml"), []byte("genre: Music\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "jazz", "fosse.yml"), []byte("subgenre: Jazz\n"), 0o644))

	return &config.Config{
		Root:             root,
		VideoExtensions:  []string{".mp4"},
		NotebookFilename: "fosse.yml",
		DBFile:           filepath.Join(dir, "fosse.db"),
		LogLevel:         "error",
		Environment:      "production",
		FFprobePath:      filepath.Join(dir, "no-ffprobe"),
		Scan:             config.ScanConfig{Workers: 2, SkipHiddenDirs: true},
		Watch:            config.WatchConfig{SettleDelay: 50 * time.Millisecond},
		Search:           config.SearchConfig{Path: filepath.Join(dir, "index")},
	}
}

func TestBootstrap_ScanThroughContainer(t *testing.T) {
	injector := NewContainer(testConfig(t))
	t.Cleanup(func() { _ = injector.Shutdown() })

	require.NoError(t, Bootstrap(injector))

	s := do.MustInvoke[*scanner.Scanner](injector)
	result, err := s.Scan(context.Background(), do.MustInvoke[*config.Config](injector).Root)
	require.NoError(t, err)
	assert.Equal(t, 2, result.NotebooksAdded)

	storeHandle := do.MustInvoke[*providers.StoreHandle](injector)
	stats, err := storeHandle.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Notebooks)
}

func TestBootstrap_SearchDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.Path = ""

	injector := NewContainer(cfg)
	t.Cleanup(func() { _ = injector.Shutdown() })

	require.NoError(t, Bootstrap(injector))
	assert.False(t, do.MustInvoke[*providers.SearchIndexHandle](injector).Enabled())
}

func TestProvideScheduler_Disabled(t *testing.T) {
	injector := NewContainer(testConfig(t))
	t.Cleanup(func() { _ = injector.Shutdown() })

	require.NoError(t, Bootstrap(injector))
	handle := do.MustInvoke[*providers.SchedulerHandle](injector)
	assert.Nil(t, handle.Scheduler)
}

func TestProvideFileWatcher_RequiresRoot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Root = ""

	injector := NewContainer(cfg)
	t.Cleanup(func() { _ = injector.Shutdown() })

	require.NoError(t, Bootstrap(injector))
	_, err := do.Invoke[*providers.FileWatcherHandle](injector)
	assert.Error(t, err)
}
