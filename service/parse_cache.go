package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/ludo-technologies/coroflat/domain"
	"github.com/ludo-technologies/coroflat/internal/parser"
)

// FileParseResult holds the parse result for a single file
type FileParseResult struct {
	Content  []byte
	Program  *parser.Node
	ParseErr error
}

// ParseCache stores parsed programs by path. After Seal() is called the
// cache is read-only and safe for concurrent access without locks.
type ParseCache struct {
	results map[string]*FileParseResult
	sealed  bool
}

// NewParseCache creates a new empty ParseCache.
func NewParseCache() *ParseCache {
	return &ParseCache{
		results: make(map[string]*FileParseResult),
	}
}

// Put stores a parse result. It is ignored once the cache is sealed.
func (c *ParseCache) Put(filePath string, result *FileParseResult) {
	if c.sealed {
		return
	}
	c.results[filePath] = result
}

// Seal marks the cache as read-only
func (c *ParseCache) Seal() {
	c.sealed = true
}

// Get retrieves a cached parse result
func (c *ParseCache) Get(filePath string) (*FileParseResult, bool) {
	r, ok := c.results[filePath]
	return r, ok
}

// Len returns the number of entries in the cache.
func (c *ParseCache) Len() int {
	return len(c.results)
}

// PopulateParseCache reads and parses the files in parallel and returns a
// sealed cache. Every goroutine uses its own parser.Parser because
// tree-sitter parsers are not thread-safe. onDone, if not nil, is called
// after each file.
func PopulateParseCache(ctx context.Context, reader domain.FileReader, files []string, concurrency int, onDone func(path string)) *ParseCache {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	results := make([]*FileParseResult, len(files))

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i, filePath := range files {
		wg.Add(1)
		go func(idx int, fp string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if onDone != nil {
				defer onDone(fp)
			}

			r := &FileParseResult{}
			results[idx] = r

			if err := ctx.Err(); err != nil {
				r.ParseErr = err
				return
			}

			content, err := reader.ReadFile(fp)
			if err != nil {
				r.ParseErr = fmt.Errorf("failed to read file %s: %w", fp, err)
				return
			}
			r.Content = content

			program, err := parser.New().ParseProgram(ctx, fp, content)
			if err != nil {
				r.ParseErr = domain.NewParseError(fp, err)
				return
			}
			r.Program = program
		}(i, filePath)
	}

	wg.Wait()

	cache := NewParseCache()
	for i, fp := range files {
		cache.Put(fp, results[i])
	}
	cache.Seal()

	return cache
}
