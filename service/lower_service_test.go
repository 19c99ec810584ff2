package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ludo-technologies/coroflat/domain"
	"github.com/ludo-technologies/coroflat/internal/config"
	"github.com/ludo-technologies/coroflat/internal/lowering"
)

const testSource = `function poll() {
  start();
  sleep(1);
  finish();
}

async function load() {
  const v = await fetch("/a");
  use(v);
}

function plain() {
  a();
}

function bad(x) {
  switch (x) {
    case 1:
      sleep(2);
  }
}
`

func testRequest() domain.LowerRequest {
	req := ConfigToRequest(config.DefaultConfig())
	req.SuspendFunctions = []string{"sleep"}
	return *req
}

func functionNames(functions []domain.FunctionResult) []string {
	var names []string
	for _, fn := range functions {
		names = append(names, fn.Name)
	}
	return names
}

func TestLowerService_LowerSource(t *testing.T) {
	svc := NewLowerService()

	resp, err := svc.LowerSource(context.Background(), "test.js", []byte(testSource), testRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"poll", "load", "bad"}, functionNames(resp.Functions))
	assert.Equal(t, 1, resp.Summary.FilesAnalyzed)
	assert.Equal(t, 3, resp.Summary.TotalFunctions)
	assert.Equal(t, 2, resp.Summary.LoweredFunctions)
	assert.Equal(t, 1, resp.Summary.FailedFunctions)
	assert.Equal(t, 3, resp.Summary.SuspendPoints)
	assert.NotEmpty(t, resp.GeneratedAt)

	poll := resp.Functions[0]
	assert.Equal(t, "test.js", poll.FilePath)
	assert.Equal(t, 1, poll.StartLine)
	assert.Equal(t, 5, poll.EndLine)
	assert.Equal(t, 1, poll.SuspendPoints)
	assert.False(t, poll.Failed())
	assert.Equal(t, -1, poll.GlobalCatch)
	require.Len(t, poll.Blocks, 2)
	assert.Equal(t, "entry", poll.Blocks[0].Label)
	assert.Equal(t, []string{
		"start();",
		"$state = 1;",
		"$result = sleep(1);",
		"if ($result === SUSPENDED) return SUSPENDED;",
		"continue;",
	}, poll.Blocks[0].Statements)
	assert.Equal(t, []domain.EdgeInfo{{To: 1, Kind: "state"}}, poll.Blocks[0].Edges)
	assert.Equal(t, []string{"finish();"}, poll.Blocks[1].Statements)
	assert.True(t, strings.HasPrefix(poll.Listing, "function poll: 2 blocks\n"))
	assert.Equal(t, resp.Summary.TotalBlocks, len(poll.Blocks)+len(resp.Functions[1].Blocks))

	load := resp.Functions[1]
	assert.Equal(t, 1, load.SuspendPoints)
	assert.Contains(t, load.Blocks[0].Statements, `$result = fetch("/a");`)

	bad := resp.Functions[2]
	assert.True(t, bad.Failed())
	assert.Contains(t, bad.Error, "unsupported construct")
	assert.Empty(t, bad.Blocks)
	assert.Equal(t, -1, bad.Exit)
}

func TestLowerService_Options(t *testing.T) {
	svc := NewLowerService()
	ctx := context.Background()

	t.Run("AllFunctions", func(t *testing.T) {
		req := testRequest()
		req.AllFunctions = true
		resp, err := svc.LowerSource(ctx, "test.js", []byte(testSource), req)
		require.NoError(t, err)
		assert.Equal(t, []string{"poll", "load", "plain", "bad"}, functionNames(resp.Functions))

		plain := resp.Functions[2]
		assert.Zero(t, plain.SuspendPoints)
		require.Len(t, plain.Blocks, 1)
		assert.Equal(t, []string{"a();"}, plain.Blocks[0].Statements)
	})

	t.Run("FunctionFilter", func(t *testing.T) {
		req := testRequest()
		req.FunctionFilter = "p*"
		resp, err := svc.LowerSource(ctx, "test.js", []byte(testSource), req)
		require.NoError(t, err)
		assert.Equal(t, []string{"poll"}, functionNames(resp.Functions))
		assert.Equal(t, "p*", resp.Config.(map[string]interface{})["function_filter"])
	})

	t.Run("NoAwait", func(t *testing.T) {
		req := testRequest()
		req.AwaitSuspends = false
		resp, err := svc.LowerSource(ctx, "test.js", []byte(testSource), req)
		require.NoError(t, err)
		assert.Equal(t, []string{"poll", "bad"}, functionNames(resp.Functions))
	})

	t.Run("CustomSlots", func(t *testing.T) {
		req := testRequest()
		req.FunctionFilter = "poll"
		req.Slots.State = "$st"
		req.Slots.Sentinel = ""
		resp, err := svc.LowerSource(ctx, "test.js", []byte(testSource), req)
		require.NoError(t, err)
		require.Len(t, resp.Functions, 1)

		statements := resp.Functions[0].Blocks[0].Statements
		assert.Contains(t, statements, "$st = 1;")
		assert.NotContains(t, strings.Join(statements, "\n"), "SUSPENDED")
	})
}

func TestLowerService_LowerSourceParseError(t *testing.T) {
	_, err := NewLowerService().LowerSource(context.Background(), "broken.js", []byte("function (\n"), testRequest())
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeParseError, domain.ErrorCode(err))
}

func TestLowerService_Lower(t *testing.T) {
	dir := t.TempDir()
	first := createTestFile(t, dir, "a.js", "function first() { sleep(1); }\n")
	second := createTestFile(t, dir, "b.js", "function second() { sleep(1); sleep(2); }\n")
	broken := createTestFile(t, dir, "c.js", "function (\n")

	req := testRequest()
	req.Paths = []string{first, second, broken}
	req.MaxGoroutines = 2

	resp, err := NewLowerService().Lower(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, functionNames(resp.Functions))
	assert.Equal(t, first, resp.Functions[0].FilePath)
	assert.Equal(t, 3, resp.Summary.FilesAnalyzed)
	assert.Equal(t, 3, resp.Summary.SuspendPoints)
	require.Len(t, resp.Errors, 1)
	assert.True(t, strings.HasPrefix(resp.Errors[0], "["+broken+"]"))
	assert.Empty(t, resp.Warnings)
	assert.Zero(t, resp.Summary.FailedFunctions)
	assert.True(t, resp.HasFailures(), "parse errors count as failures")
}

func TestLowerService_LowerWarnsWithoutSuspends(t *testing.T) {
	dir := t.TempDir()
	file := createTestFile(t, dir, "a.js", "function f() { g(); }\n")

	req := testRequest()
	req.Paths = []string{file}

	resp, err := NewLowerService().Lower(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Functions)
	assert.Equal(t, []string{"no functions with suspension points found"}, resp.Warnings)
}

func TestLowerService_LowerFile(t *testing.T) {
	dir := t.TempDir()
	file := createTestFile(t, dir, "a.js", testSource)
	svc := NewLowerService()

	resp, err := svc.LowerFile(context.Background(), file, testRequest())
	require.NoError(t, err)
	assert.Len(t, resp.Functions, 3)

	_, err = svc.LowerFile(context.Background(), filepath.Join(dir, "missing.js"), testRequest())
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeFileNotFound, domain.ErrorCode(err))
}

type failingExecutor struct{}

func (failingExecutor) Execute(context.Context, []domain.ExecutableTask) error {
	return context.DeadlineExceeded
}
func (failingExecutor) SetMaxConcurrency(int)    {}
func (failingExecutor) SetTimeout(time.Duration) {}

type recordingProgress struct {
	initialized, updates int
	completed            []bool
}

func (p *recordingProgress) Initialize(int)        { p.initialized++ }
func (p *recordingProgress) Start()                {}
func (p *recordingProgress) Update(int, int)       { p.updates++ }
func (p *recordingProgress) Complete(success bool) { p.completed = append(p.completed, success) }
func (p *recordingProgress) SetWriter(io.Writer)   {}
func (p *recordingProgress) IsInteractive() bool   { return false }
func (p *recordingProgress) Close()                {}

func TestLowerService_ExecutorFailure(t *testing.T) {
	dir := t.TempDir()
	file := createTestFile(t, dir, "a.js", "function f() { sleep(1); }\n")

	progress := &recordingProgress{}
	svc := NewLowerServiceWithDependencies(NewFileReader(), progress)
	svc.newExec = func() domain.ParallelExecutor { return failingExecutor{} }

	req := testRequest()
	req.Paths = []string{file}

	_, err := svc.Lower(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeLoweringError, domain.ErrorCode(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, progress.initialized)
	assert.Equal(t, 1, progress.updates)
	assert.Equal(t, []bool{false}, progress.completed)
}

type closedWriter struct{}

func (closedWriter) Write([]byte) (int, error) { return 0, errors.New("writer closed") }

func TestLowerService_ListingFailureLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	svc := NewLowerService()
	svc.logger = zap.New(core)

	assert.False(t, svc.writeListing(closedWriter{}, &lowering.Graph{Name: "poll"}))

	entries := logs.FilterMessage("listing not rendered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "poll", entries[0].ContextMap()["function"])
	assert.Equal(t, "writer closed", entries[0].ContextMap()["error"])

	var b strings.Builder
	assert.True(t, svc.writeListing(&b, &lowering.Graph{Name: "poll"}))
	assert.True(t, strings.HasPrefix(b.String(), "function poll: 0 blocks"))
}
