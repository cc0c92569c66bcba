// Package store defines the catalog persistence interfaces consumed by the
// scanner, the API and the CLI.
package store

import (
	"context"
	"time"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/notebook"
	"github.com/fosse-media/fosse/internal/resolve"
)

// Catalog is the read side of the catalog plus the entry point for scans.
// Reads run outside any scan transaction and only observe committed state.
type Catalog interface {
	Close() error

	// BeginScanSession opens the single write transaction of a scan.
	// A second call while a session is active fails with SCAN_IN_PROGRESS.
	BeginScanSession(ctx context.Context) (ScanSession, error)

	// Notebooks
	LookupNotebook(ctx context.Context, dir string) (*domain.NotebookRecord, error)
	ListNotebooks(ctx context.Context) ([]*domain.NotebookRecord, error)
	ResolveEffectiveConfig(ctx context.Context, filePath string) (*resolve.Config, error)

	// Videos
	GetVideo(ctx context.Context, filePath string) (*domain.Video, error)
	ListVideos(ctx context.Context, filter VideoFilter, params PaginationParams) (*PaginatedResult[*domain.Video], error)
	MarkVideoUsed(ctx context.Context, filePath string, at time.Time) error

	// Dimensions
	ListDimension(ctx context.Context, kind domain.DimensionKind) ([]*domain.Dimension, error)

	Stats(ctx context.Context) (*domain.CatalogStats, error)
}

// ScanSession is one scan's unit of work. Everything written through it
// becomes visible at Commit or is discarded by Rollback.
type ScanSession interface {
	ID() string

	// UpsertNotebook stores nb for dir and marks dir as seen.
	UpsertNotebook(ctx context.Context, dir string, nb *notebook.Notebook) error
	// MarkNotebookSeen keeps the stored notebook for dir through reconciliation.
	MarkNotebookSeen(dir string)
	LookupNotebook(ctx context.Context, dir string) (*domain.NotebookRecord, error)
	// ResolveEffectiveConfig merges only notebooks seen in this session.
	ResolveEffectiveConfig(ctx context.Context, filePath string) (*resolve.Config, error)

	// MarkFileSeen keeps the stored video for path through reconciliation.
	MarkFileSeen(path string)
	LookupVideo(ctx context.Context, path string) (*domain.Video, error)
	// UpsertVideo resolves dimension names to ids and writes v, marking it
	// seen. v.ID and the id fields are filled in.
	UpsertVideo(ctx context.Context, v *domain.Video) error
	// KeepSubtree marks every stored notebook and video at or below dir as
	// seen and returns the number of videos kept. Used for directories that
	// could not be read.
	KeepSubtree(ctx context.Context, dir string) (int, error)
	// VideosUnder returns every stored video whose path lies inside dir.
	VideosUnder(ctx context.Context, dir string) ([]*domain.Video, error)

	// Reconcile deletes notebooks and videos not seen in this session.
	Reconcile(ctx context.Context) (*ReconcileResult, error)
	Commit() error
	// Rollback discards the session. It is a no-op after Commit.
	Rollback() error
}

// ReconcileResult lists what reconciliation removed.
type ReconcileResult struct {
	RemovedNotebooks []string
	RemovedVideos    []string
}

// VideoFilter narrows ListVideos. Empty fields match everything.
type VideoFilter struct {
	Genre          string
	Subgenre       string
	Platform       string
	Title          string
	UnderInfluence *bool
	PathPrefix     string
}
