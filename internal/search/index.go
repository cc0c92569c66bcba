package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/store"
)

// Index wraps a Bleve index of catalogued videos.
//
// All methods are safe for concurrent use. Rebuild takes the write lock;
// everything else shares the read lock.
type Index struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory holding the index
	Logger   *slog.Logger // Discarded when nil
}

// mappingVersion is bumped whenever buildIndexMapping changes; a mismatch
// on open discards the old index.
const mappingVersion = "1"

// batchSize bounds documents per Bleve batch.
const batchSize = 500

// Open opens the index under opts.DataPath, creating it when missing. An
// unreadable index or one built with an older mapping is recreated empty.
func Open(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	indexPath := filepath.Join(opts.DataPath, "videos.bleve")
	versionPath := filepath.Join(opts.DataPath, "videos.version")

	var (
		index        bleve.Index
		err          error
		needsRebuild bool
	)

	if _, statErr := os.Stat(indexPath); statErr == nil {
		existing, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("search index has no version file, rebuilding", "version", mappingVersion)
			needsRebuild = true
		case string(existing) != mappingVersion:
			logger.Info("search index mapping changed, rebuilding",
				"old_version", string(existing),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		default:
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open search index, recreating", "path", indexPath, "error", err)
				needsRebuild = true
			}
		}
	}

	if needsRebuild {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
		index = nil
	}

	if index == nil {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created search index", "path", indexPath)
	} else {
		logger.Info("opened search index", "path", indexPath)
	}

	return &Index{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close releases the index.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexVideos adds or replaces the documents for videos.
func (s *Index) IndexVideos(ctx context.Context, videos []*domain.Video) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for chunk := range slices.Chunk(videos, batchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := s.index.NewBatch()
		for _, v := range chunk {
			doc := FromVideo(v)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}
	s.logger.Debug("indexed videos", "count", len(videos))
	return nil
}

// DeleteVideos removes the documents for paths. Unknown paths are ignored.
func (s *Index) DeleteVideos(ctx context.Context, paths []string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for chunk := range slices.Chunk(paths, batchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := s.index.NewBatch()
		for _, p := range chunk {
			batch.Delete(p)
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit delete batch: %w", err)
		}
	}
	return nil
}

// DocumentCount returns the number of indexed videos.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops every document and recreates an empty index.
func (s *Index) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	s.logger.Info("rebuilt search index", "path", s.path)
	return nil
}

// Reindex rebuilds the index from the committed catalog and returns the
// number of videos indexed.
func (s *Index) Reindex(ctx context.Context, catalog store.Catalog) (int, error) {
	if err := s.Rebuild(); err != nil {
		return 0, err
	}

	params := store.PaginationParams{Limit: store.MaxPageSize}
	total := 0
	for {
		page, err := catalog.ListVideos(ctx, store.VideoFilter{}, params)
		if err != nil {
			return total, err
		}
		if err := s.IndexVideos(ctx, page.Items); err != nil {
			return total, err
		}
		total += len(page.Items)
		if !page.HasMore {
			break
		}
		params.Cursor = page.NextCursor
	}
	s.logger.Info("reindexed catalog", "videos", total)
	return total, nil
}
