package scanner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/notebook"
	"github.com/fosse-media/fosse/internal/resolve"
)

// CheckResult reports what a scan of a tree would read, without touching
// the catalog.
type CheckResult struct {
	Root        string      `json:"root"`
	Directories int         `json:"directories"`
	Notebooks   int         `json:"notebooks"`
	Videos      int         `json:"videos"`
	Failures    []ScanError `json:"failures,omitempty"`
}

// OK reports whether every notebook parsed and every directory was readable.
func (r *CheckResult) OK() bool {
	return len(r.Failures) == 0
}

// Check walks root and parses every notebook it finds. It does not open a
// scan session, so it may run alongside a scan.
func (s *Scanner) Check(ctx context.Context, root string) (*CheckResult, error) {
	root = resolve.Dir(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.RootNotFound(root, err)
	}
	if !info.IsDir() {
		return nil, errors.RootNotFound(root, fmt.Errorf("not a directory"))
	}

	result := &CheckResult{Root: root}
	for entry := range s.walker.Walk(ctx, root) {
		if entry.Err != nil {
			result.Failures = append(result.Failures, checkFailure(entry.Dir, entry.Err))
			continue
		}
		result.Directories++

		for _, f := range entry.Files {
			if f.Name == s.opts.NotebookFilename {
				if _, err := notebook.Load(f.Path); err != nil {
					result.Failures = append(result.Failures, checkFailure(f.Path, err))
					continue
				}
				result.Notebooks++
				continue
			}
			if s.IsVideo(f.Name) {
				result.Videos++
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func checkFailure(path string, err error) ScanError {
	return ScanError{Time: time.Now(), Path: path, Phase: PhaseWalking, Message: err.Error()}
}
