package app

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/repo"
)

// FileHelper resolves user-supplied file arguments
type FileHelper struct{}

// NewFileHelper creates a new FileHelper
func NewFileHelper() *FileHelper {
	return &FileHelper{}
}

// FileExists checks if a regular file exists
func (h *FileHelper) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// ResolveFiles turns paths into absolute file paths inside root. Directories
// are expanded to the files below them; hidden directories are skipped.
// A path that does not exist or lies outside root is an error.
func (h *FileHelper) ResolveFiles(root string, paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, domain.NewInvalidInputError("cannot resolve "+p, err)
		}
		if rel := repo.Rel(root, abs); filepath.IsAbs(filepath.FromSlash(rel)) {
			return nil, domain.NewInvalidInputError(p+" is outside the repository "+root, nil)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, domain.NewFileNotFoundError(p, err)
		}
		if !info.IsDir() {
			add(abs)
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != abs && len(d.Name()) > 1 && d.Name()[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, domain.NewInvalidInputError("cannot walk "+p, err)
		}
	}

	sort.Strings(files)
	return files, nil
}
