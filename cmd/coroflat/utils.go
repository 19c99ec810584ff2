package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ludo-technologies/coroflat/internal/config"
)

func generateTimestampedFileName(command, extension string) string {
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", command, timestamp, extension)
}

// resolveOutputDirectory returns output.directory from the configuration,
// or .coroflat/reports under the working directory
func resolveOutputDirectory(cfg *config.Config) string {
	if cfg != nil && cfg.Output.Directory != "" {
		return cfg.Output.Directory
	}

	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".coroflat", "reports")
	}
	return filepath.Join(cwd, ".coroflat", "reports")
}

// generateOutputFilePath returns a timestamped report path in the output
// directory
func generateOutputFilePath(cfg *config.Config, command, extension string) string {
	return filepath.Join(resolveOutputDirectory(cfg), generateTimestampedFileName(command, extension))
}

// getTargetPathFromArgs extracts the first argument as target path, or returns empty string
func getTargetPathFromArgs(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
