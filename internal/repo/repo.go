// Package repo locates the repository root and collects files to check.
package repo

import (
	"os"
	"path/filepath"

	"github.com/ludo-technologies/ccheck/domain"
)

// FindRoot walks upward from start until it finds a directory containing .git
func FindRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", domain.NewInvalidInputError("cannot resolve path "+start, err)
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	for dir := abs; ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
	}
	return "", domain.NewFileNotFoundError("git repository root above "+abs, nil)
}

// Rel returns path relative to root using forward slashes. Paths outside
// root are returned unchanged.
func Rel(root, path string) string {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Abs resolves a repository-relative path against root
func Abs(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, filepath.FromSlash(path))
}
