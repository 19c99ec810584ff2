package app

import "github.com/ludo-technologies/coroflat/domain"

// ResolveFilePaths resolves the input paths into source files. Paths that
// are all existing source files are returned as they are; anything else is
// collected with the include and exclude patterns.
func ResolveFilePaths(
	fileReader domain.FileReader,
	paths []string,
	recursive bool,
	includePatterns []string,
	excludePatterns []string,
) ([]string, error) {
	allFiles := true
	for _, path := range paths {
		if !fileReader.IsValidSourceFile(path) {
			allFiles = false
			break
		}
		// FileExists is false for directories
		exists, err := fileReader.FileExists(path)
		if err != nil || !exists {
			allFiles = false
			break
		}
	}

	if allFiles {
		return paths, nil
	}

	return fileReader.CollectSourceFiles(paths, recursive, includePatterns, excludePatterns)
}
