package service

import (
	"github.com/ludo-technologies/coroflat/domain"
	"github.com/ludo-technologies/coroflat/internal/config"
)

// Flag names whose values override configuration when set explicitly
const (
	FlagFormat        = "format"
	FlagJSON          = "json"
	FlagYAML          = "yaml"
	FlagDOT           = "dot"
	FlagFunction      = "function"
	FlagAll           = "all"
	FlagSuspend       = "suspend"
	FlagAwait         = "await"
	FlagSentinel      = "sentinel"
	FlagStateSlot     = "state-slot"
	FlagResultSlot    = "result-slot"
	FlagRecursive     = "recursive"
	FlagInclude       = "include"
	FlagExclude       = "exclude"
	FlagMaxGoroutines = "max-goroutines"
	FlagTimeout       = "timeout"
)

// ConfigurationLoaderWithFlags lets only explicitly set flags override
// configuration values, so that false, zero and empty flag values work
type ConfigurationLoaderWithFlags struct {
	loader      *ConfigurationLoaderImpl
	flagTracker *config.FlagTracker
}

// NewConfigurationLoaderWithFlags creates a configuration loader tracking
// explicit flags. targetPath anchors the search for .coroflat.toml.
func NewConfigurationLoaderWithFlags(targetPath string, tracker *config.FlagTracker) *ConfigurationLoaderWithFlags {
	if tracker == nil {
		tracker = config.NewFlagTracker()
	}
	return &ConfigurationLoaderWithFlags{
		loader:      NewConfigurationLoaderForTarget(targetPath),
		flagTracker: tracker,
	}
}

// LoadConfig loads configuration from the specified path
func (c *ConfigurationLoaderWithFlags) LoadConfig(path string) (*domain.LowerRequest, error) {
	return c.loader.LoadConfig(path)
}

// LoadDefaultConfig loads the discovered configuration or the defaults
func (c *ConfigurationLoaderWithFlags) LoadDefaultConfig() *domain.LowerRequest {
	return c.loader.LoadDefaultConfig()
}

// MergeConfig merges explicitly set flags over configuration values
func (c *ConfigurationLoaderWithFlags) MergeConfig(base *domain.LowerRequest, override *domain.LowerRequest) *domain.LowerRequest {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	ft := c.flagTracker
	merged := *base
	mergeRuntimeFields(&merged, override)

	if ft.AnySet(FlagFormat, FlagJSON, FlagYAML, FlagDOT) {
		merged.OutputFormat = override.OutputFormat
	}
	merged.FunctionFilter = ft.MergeString(base.FunctionFilter, override.FunctionFilter, FlagFunction)
	merged.AllFunctions = ft.MergeBool(base.AllFunctions, override.AllFunctions, FlagAll)

	merged.SuspendFunctions = ft.MergeStringSlice(base.SuspendFunctions, override.SuspendFunctions, FlagSuspend)
	merged.AwaitSuspends = ft.MergeBool(base.AwaitSuspends, override.AwaitSuspends, FlagAwait)

	merged.Slots.Sentinel = ft.MergeString(base.Slots.Sentinel, override.Slots.Sentinel, FlagSentinel)
	merged.Slots.State = ft.MergeString(base.Slots.State, override.Slots.State, FlagStateSlot)
	merged.Slots.Result = ft.MergeString(base.Slots.Result, override.Slots.Result, FlagResultSlot)

	merged.Recursive = ft.MergeBool(base.Recursive, override.Recursive, FlagRecursive)
	merged.IncludePatterns = ft.MergeStringSlice(base.IncludePatterns, override.IncludePatterns, FlagInclude)
	merged.ExcludePatterns = ft.MergeStringSlice(base.ExcludePatterns, override.ExcludePatterns, FlagExclude)

	merged.MaxGoroutines = ft.MergeInt(base.MaxGoroutines, override.MaxGoroutines, FlagMaxGoroutines)
	if ft.WasSet(FlagTimeout) {
		merged.Timeout = override.Timeout
	}

	return &merged
}
