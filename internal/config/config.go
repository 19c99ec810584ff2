package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
)

// ConfigFileName is the dedicated configuration file searched for from the
// target path upwards
const ConfigFileName = ".coroflat.toml"

// Default slot names of the generated dispatch code
const (
	DefaultStateSlot          = "$state"
	DefaultExceptionStateSlot = "$exceptionState"
	DefaultFinallyPathSlot    = "$finallyPath"
	DefaultFinallyStackSlot   = "$finallyStack"
	DefaultResultSlot         = "$result"
	DefaultExceptionSlot      = "$exception"
	DefaultReturnSlot         = "$returnValue"
	DefaultSentinel           = "SUSPENDED"
)

// Default execution settings
const (
	DefaultOutputFormat   = "text"
	DefaultMaxGoroutines  = 4
	DefaultTimeoutSeconds = 300
)

// Config represents the main configuration structure
type Config struct {
	// Suspend selects the suspension points
	Suspend SuspendConfig `mapstructure:"suspend" yaml:"suspend"`

	// Lowering holds the names used by the generated code
	Lowering LoweringConfig `mapstructure:"lowering" yaml:"lowering"`

	// Output holds output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output"`

	// Input holds file selection configuration
	Input InputConfig `mapstructure:"input" yaml:"input"`

	// Performance holds execution limits
	Performance PerformanceConfig `mapstructure:"performance" yaml:"performance"`
}

// SuspendConfig selects which calls are suspension points
type SuspendConfig struct {
	// Functions are callee patterns: bare names match any receiver, dotted
	// names match exactly, and glob patterns are allowed
	Functions []string `mapstructure:"functions" yaml:"functions"`

	// Await makes every await expression a suspension point
	Await bool `mapstructure:"await" yaml:"await"`
}

// LoweringConfig holds the slot names of the generated dispatch code
type LoweringConfig struct {
	StateSlot          string `mapstructure:"state_slot" yaml:"state_slot"`
	ExceptionStateSlot string `mapstructure:"exception_state_slot" yaml:"exception_state_slot"`
	FinallyPathSlot    string `mapstructure:"finally_path_slot" yaml:"finally_path_slot"`
	FinallyStackSlot   string `mapstructure:"finally_stack_slot" yaml:"finally_stack_slot"`
	ResultSlot         string `mapstructure:"result_slot" yaml:"result_slot"`
	ExceptionSlot      string `mapstructure:"exception_slot" yaml:"exception_slot"`
	ReturnSlot         string `mapstructure:"return_slot" yaml:"return_slot"`

	// Sentinel is the value suspended calls return; empty returns suspend
	// calls directly
	Sentinel string `mapstructure:"sentinel" yaml:"sentinel"`

	// AllFunctions also reports functions without suspension points
	AllFunctions bool `mapstructure:"all_functions" yaml:"all_functions"`
}

// OutputConfig holds configuration for output
type OutputConfig struct {
	// Format specifies the output format: text, json, yaml, dot
	Format string `mapstructure:"format" yaml:"format"`

	// Directory receives generated report files
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// InputConfig holds file selection configuration
type InputConfig struct {
	IncludePatterns []string `mapstructure:"include_patterns" yaml:"include_patterns"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive"`
}

// PerformanceConfig holds execution limits
type PerformanceConfig struct {
	MaxGoroutines  int `mapstructure:"max_goroutines" yaml:"max_goroutines"`
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout returns the overall timeout, zero meaning none
func (p PerformanceConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Suspend: SuspendConfig{
			Functions: []string{},
			Await:     true,
		},
		Lowering: LoweringConfig{
			StateSlot:          DefaultStateSlot,
			ExceptionStateSlot: DefaultExceptionStateSlot,
			FinallyPathSlot:    DefaultFinallyPathSlot,
			FinallyStackSlot:   DefaultFinallyStackSlot,
			ResultSlot:         DefaultResultSlot,
			ExceptionSlot:      DefaultExceptionSlot,
			ReturnSlot:         DefaultReturnSlot,
			Sentinel:           DefaultSentinel,
		},
		Output: OutputConfig{
			Format: DefaultOutputFormat,
		},
		Input: InputConfig{
			IncludePatterns: []string{"**/*.js", "**/*.mjs", "**/*.cjs"},
			ExcludePatterns: []string{"**/node_modules/**", "**/*.min.js"},
			Recursive:       true,
		},
		Performance: PerformanceConfig{
			MaxGoroutines:  DefaultMaxGoroutines,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
	}
}

// LoadConfig loads configuration from a file. TOML files are read with the
// same rules as .coroflat.toml; YAML and JSON files go through viper. An
// empty path returns the defaults.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	var (
		cfg *Config
		err error
	)
	if strings.EqualFold(filepath.Ext(configPath), ".toml") {
		cfg, err = NewTomlConfigLoader().LoadFile(configPath)
	} else {
		cfg, err = loadWithViper(configPath)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithTarget loads the explicit configuration file if given,
// otherwise the .coroflat.toml found from targetPath upwards, otherwise the
// defaults
func LoadConfigWithTarget(configPath, targetPath string) (*Config, error) {
	if configPath != "" {
		return LoadConfig(configPath)
	}

	startDir := targetPath
	if startDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return DefaultConfig(), nil
		}
		startDir = wd
	}
	if info, err := os.Stat(startDir); err == nil && !info.IsDir() {
		startDir = filepath.Dir(startDir)
	}

	found, err := FindConfigFile(startDir)
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(found)
}

// loadWithViper reads a YAML or JSON configuration over the defaults
func loadWithViper(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	switch c.Output.Format {
	case "text", "json", "yaml", "dot":
	default:
		return fmt.Errorf("output.format must be one of text, json, yaml, dot; got %q", c.Output.Format)
	}

	if c.Performance.MaxGoroutines < 0 {
		return fmt.Errorf("performance.max_goroutines must be >= 0, got %d", c.Performance.MaxGoroutines)
	}
	if c.Performance.TimeoutSeconds < 0 {
		return fmt.Errorf("performance.timeout_seconds must be >= 0, got %d", c.Performance.TimeoutSeconds)
	}

	for _, pattern := range c.Suspend.Functions {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("suspend.functions contains an empty pattern")
		}
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("suspend.functions: invalid pattern %q", pattern)
		}
	}
	for _, pattern := range append(append([]string{}, c.Input.IncludePatterns...), c.Input.ExcludePatterns...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("input: invalid pattern %q", pattern)
		}
	}

	slots := map[string]string{
		"lowering.state_slot":           c.Lowering.StateSlot,
		"lowering.exception_state_slot": c.Lowering.ExceptionStateSlot,
		"lowering.finally_path_slot":    c.Lowering.FinallyPathSlot,
		"lowering.finally_stack_slot":   c.Lowering.FinallyStackSlot,
		"lowering.result_slot":          c.Lowering.ResultSlot,
		"lowering.exception_slot":       c.Lowering.ExceptionSlot,
		"lowering.return_slot":          c.Lowering.ReturnSlot,
	}
	seen := make(map[string]string, len(slots))
	for key, name := range slots {
		if name == "" {
			continue
		}
		if strings.ContainsAny(name, " \t\n;") {
			return fmt.Errorf("%s: %q is not an identifier", key, name)
		}
		if other, ok := seen[name]; ok {
			return fmt.Errorf("%s and %s both use %q", other, key, name)
		}
		seen[name] = key
	}

	return nil
}
