package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ludo-technologies/coroflat/domain"
)

// categoryOrder fixes the order in which message patterns are tried
var categoryOrder = []domain.ErrorCategory{
	domain.ErrorCategoryTimeout,
	domain.ErrorCategoryConfig,
	domain.ErrorCategoryParse,
	domain.ErrorCategoryLowering,
	domain.ErrorCategoryOutput,
	domain.ErrorCategoryInput,
}

// ErrorCategorizerImpl implements the ErrorCategorizer interface
type ErrorCategorizerImpl struct {
	patterns map[domain.ErrorCategory][]string
}

// NewErrorCategorizer creates a new error categorizer
func NewErrorCategorizer() domain.ErrorCategorizer {
	return &ErrorCategorizerImpl{
		patterns: initializeErrorPatterns(),
	}
}

func initializeErrorPatterns() map[domain.ErrorCategory][]string {
	return map[domain.ErrorCategory][]string{
		domain.ErrorCategoryInput: {
			"invalid input",
			"no source files",
			"no files found",
			"path",
			"directory",
			"file not found",
			"permission denied",
		},
		domain.ErrorCategoryConfig: {
			"config",
			"toml",
			"slot",
			"sentinel",
		},
		domain.ErrorCategoryTimeout: {
			"timeout",
			"timed out",
			"deadline",
			"context canceled",
		},
		domain.ErrorCategoryOutput: {
			"write",
			"output",
			"unsupported format",
			"cannot create",
		},
		domain.ErrorCategoryParse: {
			"parse",
			"syntax",
		},
		domain.ErrorCategoryLowering: {
			"lowering",
			"unsupported",
			"suspension",
			"label",
		},
	}
}

// codeCategories maps domain error codes to categories
var codeCategories = map[string]domain.ErrorCategory{
	domain.ErrCodeInvalidInput:      domain.ErrorCategoryInput,
	domain.ErrCodeFileNotFound:      domain.ErrorCategoryInput,
	domain.ErrCodeParseError:        domain.ErrorCategoryParse,
	domain.ErrCodeLoweringError:     domain.ErrorCategoryLowering,
	domain.ErrCodeConfigError:       domain.ErrorCategoryConfig,
	domain.ErrCodeOutputError:       domain.ErrorCategoryOutput,
	domain.ErrCodeUnsupportedFormat: domain.ErrorCategoryOutput,
}

// Categorize determines the category of an error. Context errors and domain
// error codes take precedence over message patterns.
func (ec *ErrorCategorizerImpl) Categorize(err error) *domain.CategorizedError {
	if err == nil {
		return nil
	}

	category := domain.ErrorCategoryUnknown
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		category = domain.ErrorCategoryTimeout
	default:
		if c, ok := codeCategories[domain.ErrorCode(err)]; ok {
			category = c
			break
		}
		errMsg := strings.ToLower(err.Error())
		for _, c := range categoryOrder {
			if containsAnyPattern(errMsg, ec.patterns[c]) {
				category = c
				break
			}
		}
	}

	message := err.Error()
	if category != domain.ErrorCategoryUnknown {
		message = ec.getCategoryMessage(category)
	}
	return &domain.CategorizedError{
		Category: category,
		Message:  message,
		Original: err,
	}
}

// GetRecoverySuggestions returns recovery suggestions for an error category
func (ec *ErrorCategorizerImpl) GetRecoverySuggestions(category domain.ErrorCategory) []string {
	suggestions := map[domain.ErrorCategory][]string{
		domain.ErrorCategoryInput: {
			"Check that the files or directories exist and contain .js, .mjs or .cjs files",
			"Check --include and --exclude patterns",
			"Ensure you have read permissions for the target files",
		},
		domain.ErrorCategoryConfig: {
			"Verify the values in .coroflat.toml",
			"Try: coroflat init to generate a valid config file",
			"Slot names must be distinct identifiers",
		},
		domain.ErrorCategoryTimeout: {
			"Increase --timeout or lower a smaller set of files",
		},
		domain.ErrorCategoryOutput: {
			"Use --format text, json, yaml or dot",
			"Ensure the output directory is writable",
		},
		domain.ErrorCategoryParse: {
			"Some files have syntax errors",
			"Try: node --check on the file to locate the error",
		},
		domain.ErrorCategoryLowering: {
			"Move suspension points out of switch and for-in/for-of statements",
			"Assign nested suspend calls to a variable first",
			"Use --function to lower the other functions only",
		},
		domain.ErrorCategoryUnknown: {
			"Run with --verbose for detailed error information",
		},
	}

	if sug, ok := suggestions[category]; ok {
		return sug
	}
	return []string{"Check the error message for more details"}
}

func (ec *ErrorCategorizerImpl) getCategoryMessage(category domain.ErrorCategory) string {
	messages := map[domain.ErrorCategory]string{
		domain.ErrorCategoryInput:    "Failed to process input files or directories",
		domain.ErrorCategoryConfig:   "Configuration file or settings error",
		domain.ErrorCategoryTimeout:  "Lowering timed out",
		domain.ErrorCategoryOutput:   "Failed to generate or write output",
		domain.ErrorCategoryParse:    "Failed to parse source",
		domain.ErrorCategoryLowering: "Failed to lower a function",
	}

	if msg, ok := messages[category]; ok {
		return msg
	}
	return "An error occurred"
}

func containsAnyPattern(str string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(str, pattern) {
			return true
		}
	}
	return false
}
