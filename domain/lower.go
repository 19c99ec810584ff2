package domain

import (
	"context"
	"io"
	"time"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatDOT  OutputFormat = "dot"
)

// SlotNames names the variables of the generated dispatch code. Empty names
// fall back to the defaults; an empty sentinel means suspend calls are
// returned directly instead of compared against a sentinel value.
type SlotNames struct {
	State          string `json:"state,omitempty" yaml:"state,omitempty"`
	ExceptionState string `json:"exception_state,omitempty" yaml:"exception_state,omitempty"`
	FinallyPath    string `json:"finally_path,omitempty" yaml:"finally_path,omitempty"`
	FinallyStack   string `json:"finally_stack,omitempty" yaml:"finally_stack,omitempty"`
	Result         string `json:"result,omitempty" yaml:"result,omitempty"`
	Exception      string `json:"exception,omitempty" yaml:"exception,omitempty"`
	ReturnValue    string `json:"return_value,omitempty" yaml:"return_value,omitempty"`
	Sentinel       string `json:"sentinel,omitempty" yaml:"sentinel,omitempty"`
}

// LowerRequest represents a request to lower the functions of source files
type LowerRequest struct {
	// Input files or directories
	Paths []string

	// Output configuration
	OutputFormat OutputFormat
	OutputWriter io.Writer
	OutputPath   string

	// FunctionFilter selects functions by name (glob); empty selects all
	FunctionFilter string

	// AllFunctions also reports functions without suspension points, which
	// lower to a single block
	AllFunctions bool

	// Suspension points
	SuspendFunctions []string
	AwaitSuspends    bool

	// Generated code
	Slots SlotNames

	// File selection
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Execution
	MaxGoroutines int
	Timeout       time.Duration

	// Configuration file path
	ConfigPath string
}

// EdgeInfo is a reference from a block to another state
type EdgeInfo struct {
	To   int    `json:"to" yaml:"to"`
	Kind string `json:"kind" yaml:"kind"`
}

// BlockInfo describes one block of a lowered function
type BlockInfo struct {
	ID         int        `json:"id" yaml:"id"`
	Label      string     `json:"label" yaml:"label"`
	Statements []string   `json:"statements" yaml:"statements"`
	Edges      []EdgeInfo `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// FunctionResult is the outcome of lowering one function
type FunctionResult struct {
	Name      string `json:"name" yaml:"name"`
	FilePath  string `json:"file_path" yaml:"file_path"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	EndLine   int    `json:"end_line" yaml:"end_line"`

	// SuspendPoints is the number of suspension points in the body
	SuspendPoints int `json:"suspend_points" yaml:"suspend_points"`

	Blocks      []BlockInfo `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	GlobalCatch int         `json:"global_catch" yaml:"global_catch"`
	Exit        int         `json:"exit" yaml:"exit"`
	HasFinally  bool        `json:"has_finally" yaml:"has_finally"`

	// Listing is the rendered dispatch code of the function
	Listing string `json:"-" yaml:"-"`

	// Error is set when the function could not be lowered
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether lowering the function failed
func (f FunctionResult) Failed() bool {
	return f.Error != ""
}

// LowerSummary aggregates a lowering run
type LowerSummary struct {
	FilesAnalyzed    int `json:"files_analyzed" yaml:"files_analyzed"`
	TotalFunctions   int `json:"total_functions" yaml:"total_functions"`
	LoweredFunctions int `json:"lowered_functions" yaml:"lowered_functions"`
	FailedFunctions  int `json:"failed_functions" yaml:"failed_functions"`
	TotalBlocks      int `json:"total_blocks" yaml:"total_blocks"`
	SuspendPoints    int `json:"suspend_points" yaml:"suspend_points"`
}

// LowerResponse represents the result of a lowering run
type LowerResponse struct {
	Functions   []FunctionResult `json:"functions" yaml:"functions"`
	Summary     LowerSummary     `json:"summary" yaml:"summary"`
	Warnings    []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors      []string         `json:"errors,omitempty" yaml:"errors,omitempty"`
	GeneratedAt string           `json:"generated_at" yaml:"generated_at"`
	Version     string           `json:"version" yaml:"version"`
	Config      interface{}      `json:"config,omitempty" yaml:"config,omitempty"`
}

// HasFailures reports whether any function or file failed
func (r *LowerResponse) HasFailures() bool {
	return r.Summary.FailedFunctions > 0 || len(r.Errors) > 0
}

// LowerService defines the core business logic for lowering
type LowerService interface {
	// Lower lowers the functions of every file in the request
	Lower(ctx context.Context, req LowerRequest) (*LowerResponse, error)

	// LowerFile lowers the functions of a single file
	LowerFile(ctx context.Context, filePath string, req LowerRequest) (*LowerResponse, error)

	// LowerSource lowers the functions of in-memory source; name is used in
	// locations
	LowerSource(ctx context.Context, name string, source []byte, req LowerRequest) (*LowerResponse, error)
}

// FileReader defines the interface for reading source files
type FileReader interface {
	// CollectSourceFiles finds the source files in the given paths
	CollectSourceFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error)

	// ReadFile reads the content of a file
	ReadFile(path string) ([]byte, error)

	// IsValidSourceFile checks if a path names a supported source file
	IsValidSourceFile(path string) bool

	// FileExists checks if a file exists
	FileExists(path string) (bool, error)
}

// OutputFormatter defines the interface for formatting lowering results
type OutputFormatter interface {
	// Format formats the response according to the specified format
	Format(response *LowerResponse, format OutputFormat) (string, error)

	// Write writes the formatted output to the writer
	Write(response *LowerResponse, format OutputFormat, writer io.Writer) error
}

// ConfigurationLoader defines the interface for loading configuration
type ConfigurationLoader interface {
	// LoadConfig loads configuration from the specified path
	LoadConfig(path string) (*LowerRequest, error)

	// LoadDefaultConfig loads the configuration found from the working
	// directory, or the defaults
	LoadDefaultConfig() *LowerRequest

	// MergeConfig merges request values over configuration values
	MergeConfig(base *LowerRequest, override *LowerRequest) *LowerRequest
}
