package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/coroflat/domain"
)

func createTestLowerResponse() *domain.LowerResponse {
	return &domain.LowerResponse{
		Functions: []domain.FunctionResult{
			{
				Name:          "poll",
				FilePath:      "src/poll.js",
				StartLine:     3,
				EndLine:       9,
				SuspendPoints: 1,
				GlobalCatch:   2,
				Exit:          1,
				Blocks: []domain.BlockInfo{
					{
						ID:         0,
						Label:      "entry",
						Statements: []string{"$exceptionState = 2;", "$state = 1;", `$result = sleep("a\"b");`, "continue;"},
						Edges:      []domain.EdgeInfo{{To: 1, Kind: "state"}, {To: 2, Kind: "exception"}},
					},
					{ID: 1, Label: "resume", Statements: []string{"done();"}},
					{ID: 2, Label: "global_catch", Statements: []string{"throw $exception;"}},
				},
				Listing: "function poll: 3 blocks, global catch 2\n  case 0: // entry\n",
			},
			{
				Name:          "broken",
				FilePath:      "src/poll.js",
				StartLine:     12,
				SuspendPoints: 1,
				GlobalCatch:   -1,
				Exit:          -1,
				Error:         "src/poll.js:13:5: cannot split switch (SwitchStatement): unsupported construct",
			},
		},
		Summary: domain.LowerSummary{
			FilesAnalyzed:    1,
			TotalFunctions:   2,
			LoweredFunctions: 1,
			FailedFunctions:  1,
			TotalBlocks:      3,
			SuspendPoints:    2,
		},
		Warnings:    []string{"something odd"},
		Errors:      []string{"[src/bad.js] failed to parse file: src/bad.js"},
		GeneratedAt: "2026-01-01T00:00:00Z",
		Version:     "test",
	}
}

func TestOutputFormatter_Text(t *testing.T) {
	out, err := NewOutputFormatter().Format(createTestLowerResponse(), domain.OutputFormatText)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Lowering Report\n"))
	assert.Contains(t, out, "src/poll.js:3\nfunction poll: 3 blocks, global catch 2\n")
	assert.Contains(t, out, "src/poll.js:12 FAILED\n")
	assert.Contains(t, out, "  function: broken\n")
	assert.Contains(t, out, "unsupported construct")
	assert.Contains(t, out, "  Lowered: 1\n")
	assert.Contains(t, out, "  Failed: 1\n")
	assert.Contains(t, out, "  Suspension points: 2\n")
	assert.Contains(t, out, "WARNINGS\n")
	assert.Contains(t, out, "  !: something odd\n")
	assert.Contains(t, out, "  x: [src/bad.js] failed to parse file: src/bad.js\n")
	assert.NotContains(t, out, ColorRed, "no colors unless requested")
}

func TestOutputFormatter_TextColor(t *testing.T) {
	out, err := NewColorOutputFormatter().Format(createTestLowerResponse(), domain.OutputFormatText)
	require.NoError(t, err)

	assert.Contains(t, out, ColorRed+"FAILED"+ColorReset)
	assert.Contains(t, out, ColorGreen+"1"+ColorReset)
}

func TestOutputFormatter_TextWithoutListing(t *testing.T) {
	resp := createTestLowerResponse()
	resp.Functions[0].Listing = ""

	out, err := NewOutputFormatter().Format(resp, domain.OutputFormatText)
	require.NoError(t, err)

	assert.Contains(t, out, "function poll: 3 blocks\n  case 0: // entry\n    $exceptionState = 2;\n")
	assert.Contains(t, out, "  case 2: // global_catch\n    throw $exception;\n")
}

func TestOutputFormatter_JSON(t *testing.T) {
	out, err := NewOutputFormatter().Format(createTestLowerResponse(), domain.OutputFormatJSON)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))

	functions := decoded["functions"].([]interface{})
	require.Len(t, functions, 2)
	first := functions[0].(map[string]interface{})
	assert.Equal(t, "poll", first["name"])
	assert.EqualValues(t, 2, first["global_catch"])
	assert.NotContains(t, first, "Listing")
	assert.NotContains(t, first, "error")

	second := functions[1].(map[string]interface{})
	assert.EqualValues(t, -1, second["exit"])
	assert.Contains(t, second["error"], "unsupported construct")
}

func TestOutputFormatter_YAML(t *testing.T) {
	out, err := NewOutputFormatter().Format(createTestLowerResponse(), domain.OutputFormatYAML)
	require.NoError(t, err)

	var decoded domain.LowerResponse
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Functions, 2)
	assert.Equal(t, []domain.EdgeInfo{{To: 1, Kind: "state"}, {To: 2, Kind: "exception"}}, decoded.Functions[0].Blocks[0].Edges)
	assert.Equal(t, 3, decoded.Summary.TotalBlocks)
	assert.Empty(t, decoded.Functions[0].Listing)
}

func TestOutputFormatter_DOT(t *testing.T) {
	out, err := NewOutputFormatter().Format(createTestLowerResponse(), domain.OutputFormatDOT)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "digraph coroflat {\n"))
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Contains(t, out, `label="src/poll.js:3 poll";`)
	assert.Contains(t, out, `f0_s0 [label="0: entry\l$exceptionState = 2;\l`)
	assert.Contains(t, out, `$result = sleep(\"a\\\"b\");\l`)
	assert.Contains(t, out, "style=bold")
	assert.Contains(t, out, `f0_s2 [label="2: global_catch\lthrow $exception;\l", style=filled, fillcolor="#f4cccc"];`)
	assert.Contains(t, out, "f0_s0 -> f0_s1;\n")
	assert.Contains(t, out, "f0_s0 -> f0_s2 [style=dashed];\n")
	assert.NotContains(t, out, "cluster_1", "failed functions are left out")
}

func TestOutputFormatter_UnsupportedFormat(t *testing.T) {
	_, err := NewOutputFormatter().Format(createTestLowerResponse(), domain.OutputFormat("html"))
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeUnsupportedFormat, domain.ErrorCode(err))
}

func TestOutputFormatter_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewOutputFormatter().Write(createTestLowerResponse(), domain.OutputFormatJSON, &buf))
	assert.True(t, json.Valid(buf.Bytes()))
}

func TestOutputFormatResolver_Determine(t *testing.T) {
	r := NewOutputFormatResolver()

	tests := []struct {
		name     string
		format   string
		json     bool
		yaml     bool
		dot      bool
		fallback domain.OutputFormat
		want     domain.OutputFormat
		ext      string
		wantErr  bool
	}{
		{name: "default", want: domain.OutputFormatText, ext: "txt"},
		{name: "fallback", fallback: domain.OutputFormatYAML, want: domain.OutputFormatYAML, ext: "yaml"},
		{name: "format flag", format: "dot", fallback: domain.OutputFormatJSON, want: domain.OutputFormatDOT, ext: "dot"},
		{name: "shorthand", json: true, want: domain.OutputFormatJSON, ext: "json"},
		{name: "agreeing flags", format: "json", json: true, want: domain.OutputFormatJSON, ext: "json"},
		{name: "conflicting flags", format: "text", json: true, wantErr: true},
		{name: "two shorthands", json: true, dot: true, wantErr: true},
		{name: "unknown format", format: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ext, err := r.Determine(tt.format, tt.json, tt.yaml, tt.dot, tt.fallback)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func TestFileOutputWriter(t *testing.T) {
	writeHello := func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	}

	t.Run("Writer", func(t *testing.T) {
		var out, status bytes.Buffer
		require.NoError(t, NewFileOutputWriter(&status).Write(&out, "", domain.OutputFormatText, writeHello))
		assert.Equal(t, "hello", out.String())
		assert.Empty(t, status.String())
	})

	t.Run("File", func(t *testing.T) {
		var out, status bytes.Buffer
		path := filepath.Join(t.TempDir(), "reports", "graph.dot")
		require.NoError(t, NewFileOutputWriter(&status).Write(&out, path, domain.OutputFormatDOT, writeHello))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(content))
		assert.Empty(t, out.String())
		assert.Contains(t, status.String(), "DOT report generated: ")
	})

	t.Run("WriteError", func(t *testing.T) {
		err := NewFileOutputWriter(io.Discard).Write(io.Discard, "", domain.OutputFormatText, func(io.Writer) error {
			return errors.New("disk full")
		})
		require.Error(t, err)
		assert.Equal(t, domain.ErrCodeOutputError, domain.ErrorCode(err))
	})
}
