package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/MeKo-Tech/idcheck/internal/utils"
)

// nameFilter matches base names against shell globs. Exclusions win over
// inclusions; an empty include list admits every name.
type nameFilter struct {
	include []string
	exclude []string
}

func (f nameFilter) allows(path string) bool {
	base := filepath.Base(path)
	if anyMatch(base, f.exclude) {
		return false
	}
	return len(f.include) == 0 || anyMatch(base, f.include)
}

func anyMatch(name string, patterns []string) bool {
	return slices.ContainsFunc(patterns, func(p string) bool {
		ok, _ := filepath.Match(p, name)
		return ok
	})
}

// discoverFiles expands args into the image and PDF files to validate.
// Explicit file arguments are kept even if their extension is unknown so the
// decoder can report them; directory entries must look like documents. A
// path reached twice is returned once, at its first position.
func discoverFiles(args []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	filter := nameFilter{include: includePatterns, exclude: excludePatterns}
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			if filter.allows(arg) {
				add(arg)
			}
			continue
		}
		found, err := walkDocuments(arg, recursive, filter)
		if err != nil {
			return nil, err
		}
		for _, path := range found {
			add(path)
		}
	}
	return files, nil
}

// walkDocuments lists the documents below dir in lexical order.
func walkDocuments(dir string, recursive bool, filter nameFilter) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir() && path != dir && !recursive:
			return filepath.SkipDir
		case d.IsDir():
			return nil
		}
		if (utils.IsSupportedImage(path) || utils.IsPDF(path)) && filter.allows(path) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	slices.Sort(found)
	return found, nil
}
