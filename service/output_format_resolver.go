package service

import (
	"fmt"

	"github.com/ludo-technologies/coroflat/domain"
)

// OutputFormatResolver resolves the output format from command line flags
type OutputFormatResolver struct{}

// NewOutputFormatResolver creates a new resolver
func NewOutputFormatResolver() *OutputFormatResolver { return &OutputFormatResolver{} }

// Determine resolves --format and the json/yaml/dot shorthand flags into a
// format and a report file extension. At most one shorthand may be set and
// it must agree with an explicit --format. With nothing set the format is
// fallback.
func (r *OutputFormatResolver) Determine(format string, json, yaml, dot bool, fallback domain.OutputFormat) (domain.OutputFormat, string, error) {
	var selected []domain.OutputFormat
	if json {
		selected = append(selected, domain.OutputFormatJSON)
	}
	if yaml {
		selected = append(selected, domain.OutputFormatYAML)
	}
	if dot {
		selected = append(selected, domain.OutputFormatDOT)
	}
	if len(selected) > 1 {
		return "", "", fmt.Errorf("only one output format flag can be specified")
	}

	result := fallback
	if format != "" {
		parsed, err := ParseOutputFormat(format)
		if err != nil {
			return "", "", err
		}
		result = parsed
	}
	if len(selected) == 1 {
		if format != "" && selected[0] != result {
			return "", "", fmt.Errorf("--format %s conflicts with --%s", format, selected[0])
		}
		result = selected[0]
	}
	if result == "" {
		result = domain.OutputFormatText
	}
	return result, Extension(result), nil
}

// ParseOutputFormat validates a format name
func ParseOutputFormat(name string) (domain.OutputFormat, error) {
	switch f := domain.OutputFormat(name); f {
	case domain.OutputFormatText, domain.OutputFormatJSON, domain.OutputFormatYAML, domain.OutputFormatDOT:
		return f, nil
	}
	return "", domain.NewUnsupportedFormatError(name)
}

// Extension returns the report file extension of a format
func Extension(format domain.OutputFormat) string {
	switch format {
	case domain.OutputFormatJSON:
		return "json"
	case domain.OutputFormatYAML:
		return "yaml"
	case domain.OutputFormatDOT:
		return "dot"
	default:
		return "txt"
	}
}
