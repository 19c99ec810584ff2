package service

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ludo-technologies/coroflat/domain"
)

func TestNewParseCache(t *testing.T) {
	cache := NewParseCache()
	if cache == nil {
		t.Fatal("NewParseCache returned nil")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", cache.Len())
	}
}

func TestParseCachePutAndGet(t *testing.T) {
	cache := NewParseCache()
	cache.Put("a.js", &FileParseResult{Content: []byte("sleep(1);")})

	got, ok := cache.Get("a.js")
	if !ok {
		t.Fatal("expected cache hit for a.js")
	}
	if string(got.Content) != "sleep(1);" {
		t.Fatalf("unexpected content: %s", got.Content)
	}

	if _, ok := cache.Get("b.js"); ok {
		t.Fatal("expected cache miss for b.js")
	}
}

func TestParseCacheSealPreventsWrite(t *testing.T) {
	cache := NewParseCache()
	cache.Put("a.js", &FileParseResult{})
	cache.Seal()
	cache.Put("b.js", &FileParseResult{})

	if _, ok := cache.Get("b.js"); ok {
		t.Fatal("Put after Seal should be ignored")
	}
	if cache.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", cache.Len())
	}
}

func TestParseCacheSealedConcurrentReads(t *testing.T) {
	cache := NewParseCache()
	for i := 0; i < 10; i++ {
		cache.Put(fmt.Sprintf("file%d.js", i), &FileParseResult{})
	}
	cache.Seal()

	var wg sync.WaitGroup
	for i := 0; i < runtime.GOMAXPROCS(0)*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Get(fmt.Sprintf("file%d.js", j%10))
			}
		}()
	}
	wg.Wait()
}

func TestPopulateParseCache(t *testing.T) {
	dir := t.TempDir()
	good := createTestFile(t, dir, "good.js", "async function f() { await g(); }\n")
	broken := createTestFile(t, dir, "broken.js", "function (\n")
	missing := filepath.Join(dir, "missing.js")

	files := []string{good, broken, missing}
	var done int32
	cache := PopulateParseCache(context.Background(), NewFileReader(), files, 2, func(string) {
		atomic.AddInt32(&done, 1)
	})

	if cache.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", cache.Len())
	}
	if done != 3 {
		t.Errorf("onDone called %d times, want 3", done)
	}

	r, _ := cache.Get(good)
	if r.ParseErr != nil || r.Program == nil {
		t.Fatalf("good.js: program=%v err=%v", r.Program, r.ParseErr)
	}
	if len(r.Program.Body) != 1 || !r.Program.Body[0].IsFunction() {
		t.Errorf("good.js: expected a single function, got %d statements", len(r.Program.Body))
	}

	r, _ = cache.Get(broken)
	if r.ParseErr == nil {
		t.Fatal("broken.js: expected a parse error")
	}
	if code := domain.ErrorCode(r.ParseErr); code != domain.ErrCodeParseError {
		t.Errorf("broken.js: error code %q, want %q", code, domain.ErrCodeParseError)
	}
	if len(r.Content) == 0 {
		t.Error("broken.js: content should be kept")
	}

	r, _ = cache.Get(missing)
	if r.ParseErr == nil || r.Program != nil {
		t.Fatal("missing.js: expected a read error")
	}
}

func TestPopulateParseCacheCancelled(t *testing.T) {
	dir := t.TempDir()
	file := createTestFile(t, dir, "a.js", "f();\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cache := PopulateParseCache(ctx, NewFileReader(), []string{file}, 0, nil)
	r, ok := cache.Get(file)
	if !ok {
		t.Fatal("expected an entry for the cancelled file")
	}
	if r.ParseErr != context.Canceled {
		t.Errorf("ParseErr = %v, want context.Canceled", r.ParseErr)
	}
}
