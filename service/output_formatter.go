package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/ludo-technologies/coroflat/domain"
)

// OutputFormatterImpl implements the OutputFormatter interface
type OutputFormatterImpl struct {
	color bool
}

// NewOutputFormatter creates a new output formatter service
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{}
}

// NewColorOutputFormatter creates an output formatter that colors the
// status of functions in text output
func NewColorOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{color: true}
}

// Format formats the response according to the specified format
func (f *OutputFormatterImpl) Format(response *domain.LowerResponse, format domain.OutputFormat) (string, error) {
	switch format {
	case domain.OutputFormatText:
		return f.formatText(response), nil
	case domain.OutputFormatJSON:
		return EncodeJSON(response)
	case domain.OutputFormatYAML:
		return EncodeYAML(response)
	case domain.OutputFormatDOT:
		return f.formatDOT(response), nil
	default:
		return "", domain.NewUnsupportedFormatError(string(format))
	}
}

// Write writes the formatted output to the writer
func (f *OutputFormatterImpl) Write(response *domain.LowerResponse, format domain.OutputFormat, writer io.Writer) error {
	output, err := f.Format(response, format)
	if err != nil {
		return err
	}

	if _, err := io.WriteString(writer, output); err != nil {
		return domain.NewOutputError("failed to write output", err)
	}
	return nil
}

// formatText prints the dispatch listing of every lowered function
func (f *OutputFormatterImpl) formatText(response *domain.LowerResponse) string {
	var builder strings.Builder
	utils := NewFormatUtils(f.color)

	builder.WriteString(utils.FormatMainHeader("Lowering Report"))

	for _, fn := range response.Functions {
		location := fmt.Sprintf("%s:%d", fn.FilePath, fn.StartLine)
		if fn.Failed() {
			builder.WriteString(fmt.Sprintf("%s %s\n", location, utils.Colorize(ColorRed, "FAILED")))
			builder.WriteString(utils.FormatLabelWithIndent(SectionPadding, "function", fn.Name))
			builder.WriteString(utils.FormatLabelWithIndent(SectionPadding, "error", fn.Error))
			builder.WriteString(utils.FormatSectionSeparator())
			continue
		}

		builder.WriteString(location + "\n")
		if fn.Listing != "" {
			builder.WriteString(fn.Listing)
		} else {
			builder.WriteString(listingFromBlocks(fn))
		}
		builder.WriteString(utils.FormatSectionSeparator())
	}

	builder.WriteString(utils.FormatSummaryStats([]Stat{
		{"Files", response.Summary.FilesAnalyzed},
		{"Functions", response.Summary.TotalFunctions},
		{"Lowered", utils.Colorize(ColorGreen, fmt.Sprint(response.Summary.LoweredFunctions))},
		{"Failed", failedCount(utils, response.Summary.FailedFunctions)},
		{"Blocks", response.Summary.TotalBlocks},
		{"Suspension points", response.Summary.SuspendPoints},
	}))

	builder.WriteString(utils.FormatListSection("Warnings", "!", response.Warnings))
	builder.WriteString(utils.FormatListSection("Errors", "x", response.Errors))

	return builder.String()
}

func failedCount(utils *FormatUtils, n int) string {
	if n == 0 {
		return "0"
	}
	return utils.Colorize(ColorRed, fmt.Sprint(n))
}

// listingFromBlocks renders a function from its block list, for responses
// that went through a serialization round trip
func listingFromBlocks(fn domain.FunctionResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("function %s: %d blocks\n", fn.Name, len(fn.Blocks)))
	for _, block := range fn.Blocks {
		b.WriteString(fmt.Sprintf("  case %d: // %s\n", block.ID, block.Label))
		for _, line := range block.Statements {
			b.WriteString("    " + line + "\n")
		}
	}
	return b.String()
}

// formatDOT renders every lowered function as a Graphviz cluster. Exception
// handler edges are dashed and finally path edges dotted.
func (f *OutputFormatterImpl) formatDOT(response *domain.LowerResponse) string {
	var b strings.Builder
	b.WriteString("digraph coroflat {\n")
	b.WriteString("  node [shape=box, fontname=\"monospace\"];\n")

	for i, fn := range response.Functions {
		if fn.Failed() {
			continue
		}
		nodeID := func(state int) string {
			return fmt.Sprintf("f%d_s%d", i, state)
		}

		b.WriteString(fmt.Sprintf("  subgraph cluster_%d {\n", i))
		b.WriteString(fmt.Sprintf("    label=%s;\n", dotQuote(fmt.Sprintf("%s:%d %s", fn.FilePath, fn.StartLine, fn.Name))))
		for _, block := range fn.Blocks {
			label := fmt.Sprintf("%d: %s\n%s", block.ID, block.Label, strings.Join(block.Statements, "\n"))
			attrs := ""
			if block.ID == fn.GlobalCatch {
				attrs = ", style=filled, fillcolor=\"#f4cccc\""
			} else if block.ID == 0 {
				attrs = ", style=bold"
			}
			b.WriteString(fmt.Sprintf("    %s [label=%s%s];\n", nodeID(block.ID), dotLeftAligned(label), attrs))
		}
		for _, block := range fn.Blocks {
			for _, e := range block.Edges {
				style := ""
				switch e.Kind {
				case "exception":
					style = " [style=dashed]"
				case "finally":
					style = " [style=dotted]"
				}
				b.WriteString(fmt.Sprintf("    %s -> %s%s;\n", nodeID(block.ID), nodeID(e.To), style))
			}
		}
		b.WriteString("  }\n")
	}

	b.WriteString("}\n")
	return b.String()
}

func dotEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return r.Replace(s)
}

func dotQuote(s string) string {
	return `"` + dotEscape(s) + `"`
}

// dotLeftAligned quotes a multi-line label with left-justified lines
func dotLeftAligned(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = dotEscape(line)
	}
	return `"` + strings.Join(lines, `\l`) + `\l"`
}
