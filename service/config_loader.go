package service

import (
	"os"

	"github.com/ludo-technologies/coroflat/domain"
	"github.com/ludo-technologies/coroflat/internal/config"
)

// ConfigurationLoaderImpl implements the ConfigurationLoader interface
type ConfigurationLoaderImpl struct {
	// targetPath anchors the search for .coroflat.toml; empty means the
	// working directory
	targetPath string
}

// NewConfigurationLoader creates a configuration loader searching from the
// working directory
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{}
}

// NewConfigurationLoaderForTarget creates a configuration loader searching
// from the given file or directory
func NewConfigurationLoaderForTarget(targetPath string) *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{targetPath: targetPath}
}

// LoadConfig loads configuration from the specified path
func (c *ConfigurationLoaderImpl) LoadConfig(path string) (*domain.LowerRequest, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration file", err)
	}
	return ConfigToRequest(cfg), nil
}

// LoadDefaultConfig loads the discovered .coroflat.toml, or the defaults
// when there is none or it cannot be loaded
func (c *ConfigurationLoaderImpl) LoadDefaultConfig() *domain.LowerRequest {
	target := c.targetPath
	if target == "" {
		if wd, err := os.Getwd(); err == nil {
			target = wd
		}
	}

	cfg, err := config.LoadConfigWithTarget("", target)
	if err != nil {
		Logger().Sugar().Warnf("ignoring configuration: %v", err)
		cfg = config.DefaultConfig()
	}
	return ConfigToRequest(cfg)
}

// MergeConfig merges a request over configuration values. Without flag
// information only non-zero request values override.
func (c *ConfigurationLoaderImpl) MergeConfig(base *domain.LowerRequest, override *domain.LowerRequest) *domain.LowerRequest {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	mergeRuntimeFields(&merged, override)

	if override.OutputFormat != "" {
		merged.OutputFormat = override.OutputFormat
	}
	if override.FunctionFilter != "" {
		merged.FunctionFilter = override.FunctionFilter
	}
	if override.AllFunctions {
		merged.AllFunctions = true
	}
	if len(override.SuspendFunctions) > 0 {
		merged.SuspendFunctions = override.SuspendFunctions
	}
	if len(override.IncludePatterns) > 0 {
		merged.IncludePatterns = override.IncludePatterns
	}
	if len(override.ExcludePatterns) > 0 {
		merged.ExcludePatterns = override.ExcludePatterns
	}
	if override.MaxGoroutines > 0 {
		merged.MaxGoroutines = override.MaxGoroutines
	}
	if override.Timeout > 0 {
		merged.Timeout = override.Timeout
	}
	mergeSlotNames(&merged.Slots, override.Slots)

	return &merged
}

// mergeRuntimeFields copies the values that never come from configuration
func mergeRuntimeFields(merged, override *domain.LowerRequest) {
	if len(override.Paths) > 0 {
		merged.Paths = override.Paths
	}
	if override.OutputWriter != nil {
		merged.OutputWriter = override.OutputWriter
	}
	if override.OutputPath != "" {
		merged.OutputPath = override.OutputPath
	}
	merged.ConfigPath = override.ConfigPath
}

func mergeSlotNames(dst *domain.SlotNames, src domain.SlotNames) {
	set := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	set(&dst.State, src.State)
	set(&dst.ExceptionState, src.ExceptionState)
	set(&dst.FinallyPath, src.FinallyPath)
	set(&dst.FinallyStack, src.FinallyStack)
	set(&dst.Result, src.Result)
	set(&dst.Exception, src.Exception)
	set(&dst.ReturnValue, src.ReturnValue)
	set(&dst.Sentinel, src.Sentinel)
}

// ConfigToRequest converts a configuration into request defaults
func ConfigToRequest(cfg *config.Config) *domain.LowerRequest {
	return &domain.LowerRequest{
		OutputFormat:     domain.OutputFormat(cfg.Output.Format),
		AllFunctions:     cfg.Lowering.AllFunctions,
		SuspendFunctions: cfg.Suspend.Functions,
		AwaitSuspends:    cfg.Suspend.Await,
		Slots: domain.SlotNames{
			State:          cfg.Lowering.StateSlot,
			ExceptionState: cfg.Lowering.ExceptionStateSlot,
			FinallyPath:    cfg.Lowering.FinallyPathSlot,
			FinallyStack:   cfg.Lowering.FinallyStackSlot,
			Result:         cfg.Lowering.ResultSlot,
			Exception:      cfg.Lowering.ExceptionSlot,
			ReturnValue:    cfg.Lowering.ReturnSlot,
			Sentinel:       cfg.Lowering.Sentinel,
		},
		Recursive:       cfg.Input.Recursive,
		IncludePatterns: cfg.Input.IncludePatterns,
		ExcludePatterns: cfg.Input.ExcludePatterns,
		MaxGoroutines:   cfg.Performance.MaxGoroutines,
		Timeout:         cfg.Performance.Timeout(),
	}
}
