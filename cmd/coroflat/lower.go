package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ludo-technologies/coroflat/app"
	"github.com/ludo-technologies/coroflat/domain"
	"github.com/ludo-technologies/coroflat/internal/config"
	"github.com/ludo-technologies/coroflat/service"
)

// errLoweringFailed reports that the report was written but some functions
// or files could not be lowered
var errLoweringFailed = errors.New("lowering failed")

// LowerCommand represents the lower command
type LowerCommand struct {
	function      string
	allFunctions  bool
	suspend       []string
	await         bool
	sentinel      string
	stateSlot     string
	resultSlot    string
	format        string
	json          bool
	yaml          bool
	dot           bool
	output        string
	report        bool
	configFile    string
	include       []string
	exclude       []string
	recursive     bool
	maxGoroutines int
	timeout       time.Duration
}

// NewLowerCommand creates a new lower command
func NewLowerCommand() *LowerCommand {
	return &LowerCommand{}
}

// CreateCobraCommand creates the cobra command for lowering
func (c *LowerCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lower [paths...]",
		Short: "Lower suspendable functions into state machines",
		Long: `Lower every function that contains a suspension point into a flat
state machine and print the dispatch cases.

Settings are read from .coroflat.toml, searched from the first path
upwards; flags override them.

Examples:
  coroflat lower --suspend sleep src/
  coroflat lower --suspend 'io.*' --function poll worker.js
  coroflat lower --dot src/queue.js > queue.dot
  coroflat lower --json --report src/`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         c.runLower,
	}

	flags := cmd.Flags()
	flags.StringVarP(&c.function, service.FlagFunction, "f", "", "Only lower functions whose name matches this glob pattern")
	flags.BoolVar(&c.allFunctions, service.FlagAll, false, "Also report functions without suspension points")
	flags.StringSliceVarP(&c.suspend, service.FlagSuspend, "s", nil, "Functions whose calls suspend (names, dotted names or glob patterns)")
	flags.BoolVar(&c.await, service.FlagAwait, true, "Treat await expressions as suspension points")
	flags.StringVar(&c.sentinel, service.FlagSentinel, config.DefaultSentinel, "Value returned by a suspended call; empty returns the call result directly")
	flags.StringVar(&c.stateSlot, service.FlagStateSlot, config.DefaultStateSlot, "Name of the state variable")
	flags.StringVar(&c.resultSlot, service.FlagResultSlot, config.DefaultResultSlot, "Name of the resume value variable")
	flags.StringVar(&c.format, service.FlagFormat, "", "Output format: text, json, yaml or dot")
	flags.BoolVar(&c.json, service.FlagJSON, false, "Output JSON")
	flags.BoolVar(&c.yaml, service.FlagYAML, false, "Output YAML")
	flags.BoolVar(&c.dot, service.FlagDOT, false, "Output a Graphviz DOT graph")
	flags.StringVarP(&c.output, "output", "o", "", "Write the report to this file")
	flags.BoolVar(&c.report, "report", false, "Write a timestamped report into the output directory")
	flags.StringVarP(&c.configFile, "config", "c", "", "Configuration file path")
	flags.StringSliceVar(&c.include, service.FlagInclude, nil, "Glob patterns of files to include")
	flags.StringSliceVar(&c.exclude, service.FlagExclude, nil, "Glob patterns of files to exclude")
	flags.BoolVarP(&c.recursive, service.FlagRecursive, "r", true, "Walk directories recursively")
	flags.IntVar(&c.maxGoroutines, service.FlagMaxGoroutines, config.DefaultMaxGoroutines, "Maximum number of files lowered in parallel")
	flags.DurationVar(&c.timeout, service.FlagTimeout, time.Duration(config.DefaultTimeoutSeconds)*time.Second, "Timeout for the whole run")

	return cmd
}

func (c *LowerCommand) runLower(cmd *cobra.Command, args []string) error {
	format, ext, err := service.NewOutputFormatResolver().Determine(c.format, c.json, c.yaml, c.dot, "")
	if err != nil {
		return err
	}

	outputPath := c.output
	if c.report && outputPath == "" {
		cfg, err := config.LoadConfigWithTarget(c.configFile, getTargetPathFromArgs(args))
		if err != nil {
			return err
		}
		tracker := config.NewFlagTrackerFromFlagSet(cmd.Flags())
		if !tracker.AnySet(service.FlagFormat, service.FlagJSON, service.FlagYAML, service.FlagDOT) {
			format = domain.OutputFormat(cfg.Output.Format)
			ext = service.Extension(format)
		}
		outputPath = generateOutputFilePath(cfg, "lower", ext)
	}

	req := c.buildRequest(cmd.OutOrStdout(), args, format, outputPath)
	useCase, err := c.createUseCase(cmd, getTargetPathFromArgs(args), outputPath == "")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	response, err := useCase.Execute(ctx, req)
	if err != nil {
		printSuggestions(cmd.ErrOrStderr(), err)
		return err
	}
	if response.HasFailures() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d functions failed to lower, %d files could not be read\n",
			response.Summary.FailedFunctions, len(response.Errors))
		return errLoweringFailed
	}
	return nil
}

func (c *LowerCommand) buildRequest(out io.Writer, paths []string, format domain.OutputFormat, outputPath string) domain.LowerRequest {
	return domain.LowerRequest{
		Paths:            paths,
		OutputFormat:     format,
		OutputWriter:     out,
		OutputPath:       outputPath,
		FunctionFilter:   c.function,
		AllFunctions:     c.allFunctions,
		SuspendFunctions: c.suspend,
		AwaitSuspends:    c.await,
		Slots: domain.SlotNames{
			State:    c.stateSlot,
			Result:   c.resultSlot,
			Sentinel: c.sentinel,
		},
		Recursive:       c.recursive,
		IncludePatterns: c.include,
		ExcludePatterns: c.exclude,
		MaxGoroutines:   c.maxGoroutines,
		Timeout:         c.timeout,
		ConfigPath:      c.configFile,
	}
}

func (c *LowerCommand) createUseCase(cmd *cobra.Command, targetPath string, toStdout bool) (*app.LowerUseCase, error) {
	fileReader := service.NewFileReader()

	progress := service.NewProgressManager()
	progress.SetWriter(cmd.ErrOrStderr())

	formatter := service.NewOutputFormatter()
	if toStdout && isTerminal(cmd.OutOrStdout()) {
		formatter = service.NewColorOutputFormatter()
	}

	tracker := config.NewFlagTrackerFromFlagSet(cmd.Flags())

	return app.NewLowerUseCaseBuilder().
		WithService(service.NewLowerServiceWithDependencies(fileReader, progress)).
		WithFileReader(fileReader).
		WithFormatter(formatter).
		WithConfigLoader(service.NewConfigurationLoaderWithFlags(targetPath, tracker)).
		WithReportWriter(service.NewFileOutputWriter(cmd.ErrOrStderr())).
		Build()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printSuggestions prints recovery hints for a failed run
func printSuggestions(w io.Writer, err error) {
	categorizer := service.NewErrorCategorizer()
	categorized := categorizer.Categorize(err)
	if categorized == nil {
		return
	}

	fmt.Fprintf(w, "%s: %s\n", categorized.Category, categorized.Message)
	for _, suggestion := range categorizer.GetRecoverySuggestions(categorized.Category) {
		fmt.Fprintf(w, "  - %s\n", suggestion)
	}
}

// NewLowerCmd creates and returns the lower cobra command
func NewLowerCmd() *cobra.Command {
	return NewLowerCommand().CreateCobraCommand()
}
