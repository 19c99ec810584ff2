package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	cause := errors.New("boom")

	err := NewParseError("a.js", cause)
	assert.Equal(t, "[PARSE_ERROR] failed to parse file: a.js: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	err = NewUnsupportedFormatError("html")
	assert.Equal(t, "[UNSUPPORTED_FORMAT] unsupported format: html", err.Error())
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config", NewConfigError("bad", nil), ErrCodeConfigError},
		{"wrapped", fmt.Errorf("outer: %w", NewLoweringError("x", nil)), ErrCodeLoweringError},
		{"validation", NewValidationError("empty"), ErrCodeInvalidInput},
		{"plain", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestLowerResponseHasFailures(t *testing.T) {
	r := &LowerResponse{}
	assert.False(t, r.HasFailures())

	r.Errors = []string{"[a.js] parse error"}
	assert.True(t, r.HasFailures())

	r = &LowerResponse{Summary: LowerSummary{FailedFunctions: 1}}
	assert.True(t, r.HasFailures())

	assert.True(t, FunctionResult{Error: "unsupported"}.Failed())
	assert.False(t, FunctionResult{}.Failed())
}
