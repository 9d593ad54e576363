package repo

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ludo-technologies/ccheck/internal/pathmatch"
	ignore "github.com/sabhiram/go-gitignore"
)

// Collector enumerates repository files matching include patterns
type Collector struct {
	root            string
	includePatterns []string
	excludePatterns []string
	gitignore       *ignore.GitIgnore
}

// NewCollector creates a collector rooted at root. The root .gitignore, if
// present, is honored in addition to excludePatterns.
func NewCollector(root string, includePatterns, excludePatterns []string) *Collector {
	c := &Collector{
		root:            root,
		includePatterns: includePatterns,
		excludePatterns: excludePatterns,
	}
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		c.gitignore = gi
	}
	return c
}

// Collect walks the repository and returns absolute paths in sorted order
func (c *Collector) Collect() ([]string, error) {
	var files []string
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == c.root {
				return err
			}
			// Unreadable subtrees are skipped
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == c.root {
			return nil
		}

		rel := Rel(c.root, path)
		if d.IsDir() {
			if d.Name() == ".git" || c.isExcludedDir(rel, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if c.Accepts(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Filter keeps the explicit files that exist and pass the collector's patterns
func (c *Collector) Filter(paths []string) []string {
	var out []string
	for _, p := range paths {
		abs := Abs(c.root, p)
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if c.Accepts(abs) {
			out = append(out, abs)
		}
	}
	return out
}

// Accepts reports whether the file at absolute path passes include,
// exclude and .gitignore filtering
func (c *Collector) Accepts(path string) bool {
	rel := Rel(c.root, path)
	if c.isExcluded(rel) {
		return false
	}
	if len(c.includePatterns) == 0 {
		return true
	}
	return pathmatch.MatchAny(c.includePatterns, rel)
}

func (c *Collector) isExcluded(rel string) bool {
	if c.gitignore != nil && c.gitignore.MatchesPath(rel) {
		return true
	}
	if pathmatch.MatchAny(c.excludePatterns, rel) {
		return true
	}
	return pathmatch.MatchAny(c.excludePatterns, filepath.Base(rel))
}

func (c *Collector) isExcludedDir(rel, name string) bool {
	for _, pattern := range c.excludePatterns {
		if pattern == name || pattern == rel {
			return true
		}
		if pathmatch.Match(pattern, name) {
			return true
		}
	}
	return c.gitignore != nil && c.gitignore.MatchesPath(rel+"/")
}
