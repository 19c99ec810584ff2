package app

import (
	"context"
	"fmt"
	"io"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ludo-technologies/coroflat/domain"
)

// LowerUseCase orchestrates the lowering workflow
type LowerUseCase struct {
	service      domain.LowerService
	fileReader   domain.FileReader
	formatter    domain.OutputFormatter
	configLoader domain.ConfigurationLoader
	reportWriter domain.ReportWriter
}

// NewLowerUseCase creates a new lowering use case. configLoader and
// reportWriter may be nil.
func NewLowerUseCase(
	service domain.LowerService,
	fileReader domain.FileReader,
	formatter domain.OutputFormatter,
	configLoader domain.ConfigurationLoader,
	reportWriter domain.ReportWriter,
) *LowerUseCase {
	return &LowerUseCase{
		service:      service,
		fileReader:   fileReader,
		formatter:    formatter,
		configLoader: configLoader,
		reportWriter: reportWriter,
	}
}

// Execute lowers the requested paths and writes the report. The response is
// returned so that callers can decide on the exit status.
func (uc *LowerUseCase) Execute(ctx context.Context, req domain.LowerRequest) (*domain.LowerResponse, error) {
	if req.OutputWriter == nil && req.OutputPath == "" {
		return nil, domain.NewInvalidInputError("invalid request", fmt.Errorf("output writer is required"))
	}

	response, finalReq, err := uc.lower(ctx, req)
	if err != nil {
		return nil, err
	}

	write := func(w io.Writer) error {
		return uc.formatter.Write(response, finalReq.OutputFormat, w)
	}
	if uc.reportWriter != nil {
		err = uc.reportWriter.Write(finalReq.OutputWriter, finalReq.OutputPath, finalReq.OutputFormat, write)
	} else {
		err = write(finalReq.OutputWriter)
	}
	if err != nil {
		return response, domain.NewOutputError("failed to write output", err)
	}

	return response, nil
}

// LowerAndReturn lowers the requested paths without writing a report
func (uc *LowerUseCase) LowerAndReturn(ctx context.Context, req domain.LowerRequest) (*domain.LowerResponse, error) {
	response, _, err := uc.lower(ctx, req)
	return response, err
}

func (uc *LowerUseCase) lower(ctx context.Context, req domain.LowerRequest) (*domain.LowerResponse, domain.LowerRequest, error) {
	if err := uc.validateRequest(req); err != nil {
		return nil, req, domain.NewInvalidInputError("invalid request", err)
	}

	finalReq, err := uc.loadAndMergeConfig(req)
	if err != nil {
		return nil, req, domain.NewConfigError("failed to load configuration", err)
	}
	if finalReq.OutputFormat == "" {
		finalReq.OutputFormat = domain.OutputFormatText
	}
	if err := validateOutputFormat(finalReq.OutputFormat); err != nil {
		return nil, finalReq, err
	}

	files, err := ResolveFilePaths(
		uc.fileReader,
		finalReq.Paths,
		finalReq.Recursive,
		finalReq.IncludePatterns,
		finalReq.ExcludePatterns,
	)
	if err != nil {
		return nil, finalReq, err
	}
	if len(files) == 0 {
		return nil, finalReq, domain.NewInvalidInputError("no source files found in the specified paths", nil)
	}
	finalReq.Paths = files

	response, err := uc.service.Lower(ctx, finalReq)
	if err != nil {
		return nil, finalReq, err
	}
	return response, finalReq, nil
}

func (uc *LowerUseCase) validateRequest(req domain.LowerRequest) error {
	if len(req.Paths) == 0 {
		return fmt.Errorf("no input paths specified")
	}
	if req.FunctionFilter != "" && !doublestar.ValidatePattern(req.FunctionFilter) {
		return fmt.Errorf("invalid function pattern: %s", req.FunctionFilter)
	}
	if req.MaxGoroutines < 0 {
		return fmt.Errorf("max goroutines cannot be negative")
	}
	if req.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if req.OutputFormat != "" {
		return validateOutputFormat(req.OutputFormat)
	}
	return nil
}

func validateOutputFormat(format domain.OutputFormat) error {
	switch format {
	case domain.OutputFormatText, domain.OutputFormatJSON, domain.OutputFormatYAML, domain.OutputFormatDOT:
		return nil
	}
	return domain.NewUnsupportedFormatError(string(format))
}

// loadAndMergeConfig loads configuration from file and merges the request
// over it
func (uc *LowerUseCase) loadAndMergeConfig(req domain.LowerRequest) (domain.LowerRequest, error) {
	if uc.configLoader == nil {
		return req, nil
	}

	var configReq *domain.LowerRequest
	if req.ConfigPath != "" {
		var err error
		configReq, err = uc.configLoader.LoadConfig(req.ConfigPath)
		if err != nil {
			return req, fmt.Errorf("failed to load config from %s: %w", req.ConfigPath, err)
		}
	} else {
		configReq = uc.configLoader.LoadDefaultConfig()
	}

	if configReq == nil {
		return req, nil
	}
	return *uc.configLoader.MergeConfig(configReq, &req), nil
}

// LowerUseCaseBuilder provides a builder pattern for creating LowerUseCase
type LowerUseCaseBuilder struct {
	service      domain.LowerService
	fileReader   domain.FileReader
	formatter    domain.OutputFormatter
	configLoader domain.ConfigurationLoader
	reportWriter domain.ReportWriter
}

// NewLowerUseCaseBuilder creates a new builder
func NewLowerUseCaseBuilder() *LowerUseCaseBuilder {
	return &LowerUseCaseBuilder{}
}

// WithService sets the lowering service
func (b *LowerUseCaseBuilder) WithService(service domain.LowerService) *LowerUseCaseBuilder {
	b.service = service
	return b
}

// WithFileReader sets the file reader
func (b *LowerUseCaseBuilder) WithFileReader(fileReader domain.FileReader) *LowerUseCaseBuilder {
	b.fileReader = fileReader
	return b
}

// WithFormatter sets the output formatter
func (b *LowerUseCaseBuilder) WithFormatter(formatter domain.OutputFormatter) *LowerUseCaseBuilder {
	b.formatter = formatter
	return b
}

// WithConfigLoader sets the configuration loader
func (b *LowerUseCaseBuilder) WithConfigLoader(configLoader domain.ConfigurationLoader) *LowerUseCaseBuilder {
	b.configLoader = configLoader
	return b
}

// WithReportWriter sets the report writer
func (b *LowerUseCaseBuilder) WithReportWriter(reportWriter domain.ReportWriter) *LowerUseCaseBuilder {
	b.reportWriter = reportWriter
	return b
}

// Build creates the LowerUseCase with the configured dependencies
func (b *LowerUseCaseBuilder) Build() (*LowerUseCase, error) {
	if b.service == nil {
		return nil, fmt.Errorf("lowering service is required")
	}
	if b.fileReader == nil {
		return nil, fmt.Errorf("file reader is required")
	}
	if b.formatter == nil {
		return nil, fmt.Errorf("output formatter is required")
	}

	return NewLowerUseCase(
		b.service,
		b.fileReader,
		b.formatter,
		b.configLoader,
		b.reportWriter,
	), nil
}
