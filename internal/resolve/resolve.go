// Package resolve computes a file's effective configuration from the
// notebooks on its ancestor directories.
//
// The merge is shallow and the deepest directory wins per key: a nested
// mapping such as "decoding" in a child notebook replaces the parent's
// mapping entirely rather than being merged into it.
package resolve

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/fosse-media/fosse/internal/notebook"
)

// Source is one notebook contributing to a resolution.
type Source struct {
	Dir      string
	Notebook *notebook.Notebook
}

// Config is a resolved effective configuration.
type Config struct {
	merged *notebook.Notebook
	// Sources lists contributing notebook directories, most specific first.
	Sources []string
}

// Empty is the resolution of a file with no notebook on its chain.
func Empty() *Config {
	return &Config{merged: notebook.Empty(), Sources: []string{}}
}

// Notebook exposes the merged fields through the notebook accessors.
func (c *Config) Notebook() *notebook.Notebook {
	return c.merged
}

// Merged returns an independent copy of the merged mapping.
func (c *Config) Merged() map[string]any {
	return c.merged.RawCopy()
}

// IsEmpty reports whether no notebook contributed.
func (c *Config) IsEmpty() bool {
	return len(c.Sources) == 0
}

// Dir normalizes a directory path: absolute when possible, cleaned and
// without a trailing separator (except for the filesystem root).
func Dir(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Clean(path)
}

// AncestorChain returns every directory above path, from its immediate
// parent up to and including the filesystem root. Trailing separators on
// path are ignored, so "/a/b/" and "/a/b" share the chain ["/a", "/"].
// The root itself has no ancestors.
func AncestorChain(path string) []string {
	path = filepath.Clean(path)
	var chain []string
	for {
		parent := filepath.Dir(path)
		if parent == path {
			return chain
		}
		chain = append(chain, parent)
		path = parent
	}
}

// DirPrefix returns the string every path strictly inside dir starts with.
func DirPrefix(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}

// IsWithin reports whether path lies strictly inside dir.
func IsWithin(path, dir string) bool {
	return strings.HasPrefix(path, DirPrefix(dir))
}

// Merge combines notebooks ordered from least specific (root) to most
// specific (immediate parent). Later entries override earlier ones key by
// key. Nil notebooks are ignored.
func Merge(chain []Source) *Config {
	layers := make([]*notebook.Notebook, 0, len(chain))
	sources := make([]string, 0, len(chain))
	for _, src := range chain {
		if src.Notebook == nil {
			continue
		}
		layers = append(layers, src.Notebook)
		sources = append(sources, src.Dir)
	}
	slices.Reverse(sources)
	return &Config{merged: notebook.Overlay(layers...), Sources: sources}
}

// ForFile resolves path against lookup, which returns the notebook stored
// for a directory (nil when there is none).
func ForFile(path string, lookup func(dir string) *notebook.Notebook) *Config {
	chain := AncestorChain(path)
	ordered := make([]Source, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		if nb := lookup(chain[i]); nb != nil {
			ordered = append(ordered, Source{Dir: chain[i], Notebook: nb})
		}
	}
	return Merge(ordered)
}
