package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ludo-technologies/coroflat/domain"
)

// DefaultTaskTimeout bounds a whole Execute call unless SetTimeout is used
const DefaultTaskTimeout = 10 * time.Minute

// ParallelExecutorImpl implements the ParallelExecutor interface
type ParallelExecutorImpl struct {
	maxConcurrency int
	timeout        time.Duration
	logger         *zap.Logger
}

// NewParallelExecutor creates a new parallel executor
func NewParallelExecutor() domain.ParallelExecutor {
	return &ParallelExecutorImpl{
		maxConcurrency: 0, // no limit
		timeout:        DefaultTaskTimeout,
		logger:         Logger(),
	}
}

// Execute runs the enabled tasks in parallel and waits for all of them. It
// returns the joined errors of the failed tasks, or the context error when
// the timeout or a cancellation stopped the run.
func (pe *ParallelExecutorImpl) Execute(ctx context.Context, tasks []domain.ExecutableTask) error {
	if len(tasks) == 0 {
		return nil
	}

	if pe.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pe.timeout)
		defer cancel()
	}

	var semaphore chan struct{}
	if pe.maxConcurrency > 0 {
		semaphore = make(chan struct{}, pe.maxConcurrency)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, task := range tasks {
		if !task.IsEnabled() {
			continue
		}

		wg.Add(1)
		go func(t domain.ExecutableTask) {
			defer wg.Done()

			if semaphore != nil {
				select {
				case semaphore <- struct{}{}:
					defer func() { <-semaphore }()
				case <-ctx.Done():
					fail(fmt.Errorf("task %s cancelled: %w", t.Name(), ctx.Err()))
					return
				}
			}

			if err := ctx.Err(); err != nil {
				fail(fmt.Errorf("task %s cancelled: %w", t.Name(), err))
				return
			}

			start := time.Now()
			if _, err := t.Execute(ctx); err != nil {
				fail(fmt.Errorf("task %s failed: %w", t.Name(), err))
				return
			}
			pe.logger.Debug("task finished", zap.String("task", t.Name()), zap.Duration("elapsed", time.Since(start)))
		}(task)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("parallel execution timed out after %v: %w", pe.timeout, err)
		}
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("parallel execution failed with %d errors: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// SetMaxConcurrency sets the maximum number of concurrent tasks; zero or
// less means no limit
func (pe *ParallelExecutorImpl) SetMaxConcurrency(max int) {
	pe.maxConcurrency = max
}

// SetTimeout sets the timeout for all tasks; zero means none
func (pe *ParallelExecutorImpl) SetTimeout(timeout time.Duration) {
	pe.timeout = timeout
}

// SimpleTask is a basic implementation of ExecutableTask
type SimpleTask struct {
	name    string
	enabled bool
	execute func(context.Context) (interface{}, error)
}

// NewSimpleTask creates a new simple task
func NewSimpleTask(name string, enabled bool, execute func(context.Context) (interface{}, error)) domain.ExecutableTask {
	return &SimpleTask{
		name:    name,
		enabled: enabled,
		execute: execute,
	}
}

// Name returns the name of the task
func (t *SimpleTask) Name() string {
	return t.name
}

// Execute runs the task and returns the result
func (t *SimpleTask) Execute(ctx context.Context) (interface{}, error) {
	if t.execute == nil {
		return nil, fmt.Errorf("task %s has no execute function", t.name)
	}
	return t.execute(ctx)
}

// IsEnabled returns whether the task should be executed
func (t *SimpleTask) IsEnabled() bool {
	return t.enabled
}
