package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// Options configures which changes under the media root become events and
// how long a path must stay quiet before its event is emitted.
type Options struct {
	// IgnorePatterns are matched against the base name of every path.
	// Editor swap files and partial downloads never reach the scanner.
	// Nil selects the default list; an empty list ignores nothing.
	IgnorePatterns []string

	// SettleDelay is the quiet period per path. Every notification for a
	// path restarts its timer, so a video that is still being copied or a
	// notebook saved twice in a row yields one event once writes stop.
	SettleDelay time.Duration

	// IgnoreHidden skips dot-directories below the root, the same ones a
	// scan with scan.skip_hidden_dirs leaves out. Dot-files in a visible
	// directory are still reported, since the scanner catalogues them.
	IgnoreHidden bool
}

var defaultIgnorePatterns = []string{
	".DS_Store",
	"Thumbs.db",
	"*.tmp",
	"*.part",
	"*.crdownload",
	"*.swp",
}

func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 100 * time.Millisecond
	}
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = defaultIgnorePatterns
	}
}

// shouldIgnore reports whether path, below root, is outside what a scan
// looks at. isDir says whether the last element is a directory; only the
// components below root are checked for dot-prefixes, so a root that itself
// lives in a hidden directory is still watched.
func (o *Options) shouldIgnore(root, path string, isDir bool) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}

	if o.IgnoreHidden && rel != "." {
		dirs := strings.Split(rel, string(filepath.Separator))
		if !isDir {
			dirs = dirs[:len(dirs)-1]
		}
		for _, d := range dirs {
			if strings.HasPrefix(d, ".") {
				return true
			}
		}
	}

	base := filepath.Base(path)
	for _, pattern := range o.IgnorePatterns {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
