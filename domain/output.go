package domain

import (
	"context"
	"io"
	"time"
)

// ReportWriter writes a report to a file or to a writer. Implementations
// live in the service layer.
type ReportWriter interface {
	// Write calls writeFunc with the file at outputPath, created or
	// truncated, or with writer when outputPath is empty. Implementations may
	// report the written path to the user.
	Write(writer io.Writer, outputPath string, format OutputFormat, writeFunc func(io.Writer) error) error
}

// ProgressManager manages progress tracking for a lowering run
type ProgressManager interface {
	// Initialize sets up progress tracking with the maximum value
	Initialize(maxValue int)

	// Start starts the progress bar
	Start()

	// Complete marks the progress as completed
	Complete(success bool)

	// Update updates the progress
	Update(processed, total int)

	// SetWriter sets the output writer for progress bars
	SetWriter(writer io.Writer)

	// IsInteractive returns true if progress bars should be shown
	IsInteractive() bool

	// Close cleans up any resources
	Close()
}

// ParallelExecutor manages parallel execution of tasks
type ParallelExecutor interface {
	// Execute runs tasks in parallel with the given configuration
	Execute(ctx context.Context, tasks []ExecutableTask) error

	// SetMaxConcurrency sets the maximum number of concurrent tasks
	SetMaxConcurrency(max int)

	// SetTimeout sets the timeout for all tasks
	SetTimeout(timeout time.Duration)
}

// ExecutableTask represents a task that can be executed in parallel
type ExecutableTask interface {
	// Name returns the name of the task
	Name() string

	// Execute runs the task and returns the result
	Execute(ctx context.Context) (interface{}, error)

	// IsEnabled returns whether the task should be executed
	IsEnabled() bool
}

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	ErrorCategoryInput    ErrorCategory = "Input Error"
	ErrorCategoryConfig   ErrorCategory = "Configuration Error"
	ErrorCategoryParse    ErrorCategory = "Parse Error"
	ErrorCategoryLowering ErrorCategory = "Lowering Error"
	ErrorCategoryOutput   ErrorCategory = "Output Error"
	ErrorCategoryTimeout  ErrorCategory = "Timeout Error"
	ErrorCategoryUnknown  ErrorCategory = "Unknown Error"
)

// CategorizedError represents an error with category information
type CategorizedError struct {
	Category ErrorCategory
	Message  string
	Original error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Original != nil {
		return e.Original.Error()
	}
	return e.Message
}

// ErrorCategorizer categorizes errors for better reporting
type ErrorCategorizer interface {
	// Categorize determines the category of an error
	Categorize(err error) *CategorizedError

	// GetRecoverySuggestions returns recovery suggestions for an error category
	GetRecoverySuggestions(category ErrorCategory) []string
}
