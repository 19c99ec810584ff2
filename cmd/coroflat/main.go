package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ludo-technologies/coroflat/internal/lowering"
	"github.com/ludo-technologies/coroflat/internal/version"
	"github.com/ludo-technologies/coroflat/service"
)

var rootCmd = &cobra.Command{
	Use:   "coroflat",
	Short: "Flatten suspendable JavaScript functions into state machines",
	Long: `coroflat lowers JavaScript functions that contain suspension points
into flat state machines: a list of numbered basic blocks driven by a
dispatch loop, with exception and finally routing made explicit.

Suspension points are calls to the functions named with --suspend and,
unless disabled, await expressions.`,
	Version:           version.Short(),
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewLowerCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewVersionCmd())
}

// setupLogging installs a development logger with --verbose
func setupLogging(cmd *cobra.Command, args []string) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil || !verbose {
		return nil
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	lowering.SetLogger(logger)
	service.SetLogger(logger)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
