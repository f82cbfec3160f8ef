package watch

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// Target is one package under watch.
type Target struct {
	Name     string
	Dir      string   // absolute package root
	Patterns []string // globs relative to Dir; empty means the defaults
}

// skipDirs are never registered with the watcher.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// Match reports whether path, inside dir, matches one of patterns. Patterns
// use doublestar syntax against the slash-separated relative path.
func Match(patterns []string, dir, path string) bool {
	if !within(dir, path) {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	if ignored(rel) {
		return false
	}

	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// ignored reports whether rel lies inside a skipped directory.
func ignored(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if skipDirs[part] {
			return true
		}
	}
	return false
}

// owner returns the target whose root contains path. When roots nest, the
// deepest one wins.
func owner(targets []Target, path string) (Target, bool) {
	var (
		best  Target
		found bool
	)
	for _, t := range targets {
		if !within(t.Dir, path) {
			continue
		}
		if !found || len(t.Dir) > len(best.Dir) {
			best, found = t, true
		}
	}
	return best, found
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
