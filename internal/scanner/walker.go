package scanner

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fosse-media/fosse/internal/errors"
)

// Walker traverses a media tree one directory at a time.
type Walker struct {
	logger     *slog.Logger
	skipHidden bool
}

// NewWalker creates a walker. Hidden directories (leading dot) are not
// descended into when skipHidden is set; the root itself is always visited.
func NewWalker(logger *slog.Logger, skipHidden bool) *Walker {
	return &Walker{
		logger:     logger,
		skipHidden: skipHidden,
	}
}

// FileEntry is a regular file found in a directory.
type FileEntry struct {
	ModTime time.Time
	Name    string
	Path    string
	Size    int64
}

// WalkResult is one visited directory with its immediate contents. Err is
// set when the directory itself could not be listed. Unreadable holds
// entries that were listed but could not be stat'ed.
type WalkResult struct {
	Err        error
	Dir        string
	Subdirs    []string
	Files      []FileEntry
	Unreadable []string
}

// File returns the entry called name, if present.
func (r WalkResult) File(name string) (FileEntry, bool) {
	for _, f := range r.Files {
		if f.Name == name {
			return f, true
		}
	}
	return FileEntry{}, false
}

// Walk streams directories in pre-order: a directory is always delivered
// before any of its descendants. Entries are sorted by name. Symlinked
// directories are not followed. The channel closes when the walk completes
// or ctx is canceled.
func (w *Walker) Walk(ctx context.Context, root string) <-chan WalkResult {
	results := make(chan WalkResult, 16)

	go func() {
		defer close(results)
		w.walkDir(ctx, root, results)
	}()

	return results
}

func (w *Walker) walkDir(ctx context.Context, dir string, results chan<- WalkResult) bool {
	if ctx.Err() != nil {
		return false
	}

	result := w.readDir(dir)

	select {
	case results <- result:
	case <-ctx.Done():
		return false
	}

	for _, sub := range result.Subdirs {
		if !w.walkDir(ctx, sub, results) {
			return false
		}
	}
	return true
}

func (w *Walker) readDir(dir string) WalkResult {
	result := WalkResult{Dir: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("failed to read directory", "path", dir, "error", err)
		result.Err = err
		return result
	}

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		if entry.IsDir() {
			if w.skipHidden && strings.HasPrefix(name, ".") {
				continue
			}
			result.Subdirs = append(result.Subdirs, path)
			continue
		}

		info, err := fileInfo(entry, path)
		if errors.Is(err, fs.ErrNotExist) {
			// Removed since the listing, or a dangling symlink.
			continue
		}
		if err != nil {
			w.logger.Warn("failed to stat file", "path", path, "error", err)
			result.Unreadable = append(result.Unreadable, path)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		result.Files = append(result.Files, FileEntry{
			Name:    name,
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	slices.Sort(result.Subdirs)
	return result
}

// fileInfo follows symlinks so linked files are catalogued like regular ones.
func fileInfo(entry fs.DirEntry, path string) (fs.FileInfo, error) {
	if entry.Type()&fs.ModeSymlink != 0 {
		return os.Stat(path)
	}
	return entry.Info()
}
