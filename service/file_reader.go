package service

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ludo-technologies/coroflat/domain"
)

// sourceExtensions are the file extensions treated as JavaScript sources
var sourceExtensions = map[string]bool{
	".js":  true,
	".mjs": true,
	".cjs": true,
}

// FileReaderImpl implements the FileReader interface
type FileReaderImpl struct{}

// NewFileReader creates a new file reader service
func NewFileReader() *FileReaderImpl {
	return &FileReaderImpl{}
}

// CollectSourceFiles finds the JavaScript files in the given paths. Files
// named directly are kept if they have a source extension and are not
// excluded; directories are walked and filtered by the include and exclude
// patterns, matched against the slash-separated path relative to the
// directory. The result is sorted and free of duplicates.
func (f *FileReaderImpl) CollectSourceFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, domain.NewFileNotFoundError(path, err)
		}

		if !info.IsDir() {
			if f.IsValidSourceFile(path) && !matchesAny(excludePatterns, filepath.ToSlash(path)) {
				add(path)
			}
			continue
		}

		dirFiles, err := f.collectFromDirectory(path, recursive, includePatterns, excludePatterns)
		if err != nil {
			return nil, err
		}
		for _, file := range dirFiles {
			add(file)
		}
	}

	sort.Strings(files)
	return files, nil
}

// ReadFile reads the content of a file
func (f *FileReaderImpl) ReadFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewFileNotFoundError(path, err)
	}
	return content, nil
}

// IsValidSourceFile checks if a path has a JavaScript extension
func (f *FileReaderImpl) IsValidSourceFile(path string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(path))]
}

// FileExists checks if a file exists
func (f *FileReaderImpl) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// ValidatePaths validates that all provided paths exist and are accessible
func (f *FileReaderImpl) ValidatePaths(paths []string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return domain.NewFileNotFoundError(path, err)
			}
			return domain.NewInvalidInputError(fmt.Sprintf("cannot access path: %s", path), err)
		}
	}
	return nil
}

func (f *FileReaderImpl) collectFromDirectory(dirPath string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string

	walkFunc := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable entries are skipped
			return nil
		}
		if path == dirPath {
			return nil
		}

		rel, relErr := filepath.Rel(dirPath, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if !recursive || strings.HasPrefix(d.Name(), ".") || f.shouldSkipDirectory(d.Name()) {
				return filepath.SkipDir
			}
			if matchesAny(excludePatterns, rel) || matchesAny(excludePatterns, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") || !f.IsValidSourceFile(path) {
			return nil
		}
		if f.shouldIncludeFile(rel, includePatterns, excludePatterns) {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.WalkDir(dirPath, walkFunc); err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dirPath, err)
	}
	return files, nil
}

// shouldIncludeFile applies the exclude patterns, then the include patterns.
// Without include patterns every source file is included.
func (f *FileReaderImpl) shouldIncludeFile(rel string, includePatterns, excludePatterns []string) bool {
	if matchesAny(excludePatterns, rel) {
		return false
	}
	if len(includePatterns) == 0 {
		return true
	}
	return matchesAny(includePatterns, rel)
}

// shouldSkipDirectory checks if a directory never holds project sources
func (f *FileReaderImpl) shouldSkipDirectory(dirName string) bool {
	switch strings.ToLower(dirName) {
	case "node_modules", "bower_components", "coverage", "dist", "build", "out":
		return true
	}
	return false
}

// matchesAny reports whether the slash-separated path or its base name
// matches one of the patterns. Patterns without a slash also match at any
// depth, so "*.min.js" excludes "lib/app.min.js".
func matchesAny(patterns []string, path string) bool {
	base := path
	if i := strings.LastIndex(strings.TrimSuffix(path, "/"), "/"); i >= 0 {
		base = path[i+1:]
	}
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, _ := doublestar.Match(pattern, base); ok {
				return true
			}
		}
	}
	return false
}
