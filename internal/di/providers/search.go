package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/fosse-media/fosse/internal/config"
	"github.com/fosse-media/fosse/internal/logger"
	"github.com/fosse-media/fosse/internal/search"
)

// SearchIndexHandle wraps the search index. Index is nil when search.path
// is not configured.
type SearchIndexHandle struct {
	*search.Index
}

// Enabled reports whether an index was opened.
func (h *SearchIndexHandle) Enabled() bool {
	return h.Index != nil
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.Index == nil {
		return nil
	}
	return h.Close()
}

// ProvideSearchIndex opens the bleve index under search.path.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Search.Path == "" {
		log.Debug("search index disabled")
		return &SearchIndexHandle{}, nil
	}

	idx, err := search.Open(search.Options{
		DataPath: cfg.Search.Path,
		Logger:   log.Component("search"),
	})
	if err != nil {
		return nil, err
	}

	log.Info("search index opened", "path", cfg.Search.Path)
	return &SearchIndexHandle{Index: idx}, nil
}

// TriggerSearchReindexIfNeeded rebuilds an empty index from a catalog that
// already has videos, e.g. after the index directory was deleted or its
// mapping changed.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	log := do.MustInvoke[*logger.Logger](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	if !searchHandle.Enabled() {
		return
	}

	docs, err := searchHandle.DocumentCount()
	if err != nil {
		log.Warn("failed to count indexed documents", "error", err)
		return
	}
	if docs > 0 {
		return
	}

	ctx := context.Background()
	stats, err := storeHandle.Stats(ctx)
	if err != nil {
		log.Warn("failed to read catalog stats", "error", err)
		return
	}
	if stats.Videos == 0 {
		return
	}

	log.Info("search index is empty, reindexing catalog", "videos", stats.Videos)
	if _, err := searchHandle.Reindex(ctx, storeHandle.Store); err != nil {
		log.Error("failed to reindex catalog", "error", err)
	}
}
