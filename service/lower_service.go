package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/ludo-technologies/coroflat/domain"
	"github.com/ludo-technologies/coroflat/internal/lowering"
	"github.com/ludo-technologies/coroflat/internal/parser"
	"github.com/ludo-technologies/coroflat/internal/suspend"
	"github.com/ludo-technologies/coroflat/internal/version"
)

// LowerServiceImpl implements the LowerService interface
type LowerServiceImpl struct {
	fileReader domain.FileReader
	progress   domain.ProgressManager
	newExec    func() domain.ParallelExecutor
	logger     *zap.Logger
}

// NewLowerService creates a new lowering service
func NewLowerService() *LowerServiceImpl {
	return NewLowerServiceWithDependencies(NewFileReader(), nil)
}

// NewLowerServiceWithDependencies creates a lowering service with the given
// file reader and progress manager. progress may be nil.
func NewLowerServiceWithDependencies(fileReader domain.FileReader, progress domain.ProgressManager) *LowerServiceImpl {
	return &LowerServiceImpl{
		fileReader: fileReader,
		progress:   progress,
		newExec:    NewParallelExecutor,
		logger:     Logger(),
	}
}

// Lower lowers the functions of every file in req.Paths. The paths must be
// files; the use case collects them from directories. Files are parsed and
// lowered in parallel, and results keep the order of req.Paths. Parse
// failures are reported in the response errors.
func (s *LowerServiceImpl) Lower(ctx context.Context, req domain.LowerRequest) (*domain.LowerResponse, error) {
	files := req.Paths

	if s.progress != nil {
		s.progress.Initialize(len(files))
		s.progress.Start()
	}
	var processed int64
	onParsed := func(string) {
		n := atomic.AddInt64(&processed, 1)
		if s.progress != nil {
			s.progress.Update(int(n), len(files))
		}
	}

	cache := PopulateParseCache(ctx, s.fileReader, files, req.MaxGoroutines, onParsed)
	if err := ctx.Err(); err != nil {
		s.finishProgress(false)
		return nil, domain.NewLoweringError("lowering cancelled", err)
	}

	perFile := make([][]domain.FunctionResult, len(files))
	var errs []string
	var tasks []domain.ExecutableTask

	for i, file := range files {
		parsed, ok := cache.Get(file)
		if !ok || parsed.ParseErr != nil {
			if ok {
				errs = append(errs, fmt.Sprintf("[%s] %v", file, parsed.ParseErr))
			}
			continue
		}

		idx, path, program := i, file, parsed.Program
		tasks = append(tasks, NewSimpleTask(path, true, func(ctx context.Context) (interface{}, error) {
			results, err := s.lowerProgram(ctx, path, program, req)
			perFile[idx] = results
			return results, err
		}))
	}

	exec := s.newExec()
	exec.SetMaxConcurrency(req.MaxGoroutines)
	if req.Timeout > 0 {
		exec.SetTimeout(req.Timeout)
	}
	if err := exec.Execute(ctx, tasks); err != nil {
		s.finishProgress(false)
		return nil, domain.NewLoweringError("lowering did not complete", err)
	}

	var functions []domain.FunctionResult
	for _, results := range perFile {
		functions = append(functions, results...)
	}

	s.finishProgress(true)

	response := s.buildResponse(functions, len(files), req)
	response.Errors = errs
	if len(files) > 0 && len(functions) == 0 && len(errs) == 0 {
		response.Warnings = append(response.Warnings, "no functions with suspension points found")
	}
	return response, nil
}

// LowerFile lowers the functions of a single file
func (s *LowerServiceImpl) LowerFile(ctx context.Context, filePath string, req domain.LowerRequest) (*domain.LowerResponse, error) {
	content, err := s.fileReader.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return s.LowerSource(ctx, filePath, content, req)
}

// LowerSource lowers the functions of in-memory source
func (s *LowerServiceImpl) LowerSource(ctx context.Context, name string, source []byte, req domain.LowerRequest) (*domain.LowerResponse, error) {
	program, err := parser.New().ParseProgram(ctx, name, source)
	if err != nil {
		return nil, domain.NewParseError(name, err)
	}

	functions, err := s.lowerProgram(ctx, name, program, req)
	if err != nil {
		return nil, domain.NewLoweringError("lowering cancelled", err)
	}
	return s.buildResponse(functions, 1, req), nil
}

// lowerProgram marks the suspension points of a program and lowers its
// selected functions. A function that cannot be lowered gets an error
// result; only cancellation stops the loop.
func (s *LowerServiceImpl) lowerProgram(ctx context.Context, file string, program *parser.Node, req domain.LowerRequest) ([]domain.FunctionResult, error) {
	marker := suspend.NewMarker(suspend.NewPatternMatcher(req.SuspendFunctions), req.AwaitSuspends)
	marker.Mark(program)

	lowerer := lowering.New(
		lowering.WithSlots(toLoweringSlots(req.Slots)),
		lowering.WithLogger(s.logger.With(zap.String("file", file))),
	)

	var results []domain.FunctionResult
	for _, fn := range parser.CollectFunctions(program) {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if !matchFunctionName(req.FunctionFilter, fn.Name) {
			continue
		}

		points := suspend.Count(fn.Node)
		if points == 0 && !req.AllFunctions {
			continue
		}

		result := domain.FunctionResult{
			Name:          fn.Name,
			FilePath:      file,
			StartLine:     fn.Node.Location.StartLine,
			EndLine:       fn.Node.Location.EndLine,
			SuspendPoints: points,
			GlobalCatch:   -1,
			Exit:          -1,
		}

		g, err := lowerer.Lower(fn.Node)
		if err != nil {
			s.logger.Warn("function not lowered",
				zap.String("file", file),
				zap.String("function", fn.Name),
				zap.Error(err))
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		g.Name = fn.Name
		s.fillGraphResult(&result, g)
		results = append(results, result)
	}
	return results, nil
}

// fillGraphResult copies a lowered graph into a function result
func (s *LowerServiceImpl) fillGraphResult(result *domain.FunctionResult, g *lowering.Graph) {
	result.GlobalCatch = g.GlobalCatch
	result.Exit = g.Exit
	result.HasFinally = g.HasFinally

	result.Blocks = make([]domain.BlockInfo, 0, len(g.Blocks))
	for _, b := range g.Blocks {
		info := domain.BlockInfo{
			ID:         b.ID,
			Label:      b.Label,
			Statements: lowering.RenderBlock(b, g.Slots),
		}
		for _, e := range g.Edges(b) {
			info.Edges = append(info.Edges, domain.EdgeInfo{To: e.To, Kind: string(e.Kind)})
		}
		result.Blocks = append(result.Blocks, info)
	}

	var listing strings.Builder
	if s.writeListing(&listing, g) {
		result.Listing = listing.String()
	}
}

// writeListing renders the dispatch listing of g. Formatters fall back to
// the block list when it fails.
func (s *LowerServiceImpl) writeListing(w io.Writer, g *lowering.Graph) bool {
	if err := lowering.Format(w, g); err != nil {
		s.logger.Debug("listing not rendered",
			zap.String("function", g.Name),
			zap.Error(err))
		return false
	}
	return true
}

func (s *LowerServiceImpl) buildResponse(functions []domain.FunctionResult, files int, req domain.LowerRequest) *domain.LowerResponse {
	summary := domain.LowerSummary{FilesAnalyzed: files, TotalFunctions: len(functions)}
	for _, fn := range functions {
		summary.SuspendPoints += fn.SuspendPoints
		if fn.Failed() {
			summary.FailedFunctions++
			continue
		}
		summary.LoweredFunctions++
		summary.TotalBlocks += len(fn.Blocks)
	}

	return &domain.LowerResponse{
		Functions:   functions,
		Summary:     summary,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     version.Version,
		Config:      buildConfigForResponse(req),
	}
}

func (s *LowerServiceImpl) finishProgress(success bool) {
	if s.progress != nil {
		s.progress.Complete(success)
	}
}

// buildConfigForResponse records the settings that shaped the output
func buildConfigForResponse(req domain.LowerRequest) map[string]interface{} {
	cfg := map[string]interface{}{
		"suspend_functions": req.SuspendFunctions,
		"await_suspends":    req.AwaitSuspends,
		"all_functions":     req.AllFunctions,
		"slots":             req.Slots,
	}
	if req.FunctionFilter != "" {
		cfg["function_filter"] = req.FunctionFilter
	}
	return cfg
}

func toLoweringSlots(s domain.SlotNames) lowering.Slots {
	return lowering.Slots{
		State:          s.State,
		ExceptionState: s.ExceptionState,
		FinallyPath:    s.FinallyPath,
		FinallyStack:   s.FinallyStack,
		Result:         s.Result,
		Exception:      s.Exception,
		ReturnValue:    s.ReturnValue,
		Sentinel:       s.Sentinel,
	}
}

// matchFunctionName applies the function filter; an invalid pattern matches
// nothing and is rejected earlier by the use case
func matchFunctionName(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}
