package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// CoroflatTomlConfig represents the structure of .coroflat.toml. Scalars are
// pointers so unset keys keep their defaults.
type CoroflatTomlConfig struct {
	Suspend     TomlSuspendConfig     `toml:"suspend"`
	Lowering    TomlLoweringConfig    `toml:"lowering"`
	Output      TomlOutputConfig      `toml:"output"`
	Input       TomlInputConfig       `toml:"input"`
	Performance TomlPerformanceConfig `toml:"performance"`
}

type TomlSuspendConfig struct {
	Functions []string `toml:"functions"`
	Await     *bool    `toml:"await"`
}

type TomlLoweringConfig struct {
	StateSlot          *string `toml:"state_slot"`
	ExceptionStateSlot *string `toml:"exception_state_slot"`
	FinallyPathSlot    *string `toml:"finally_path_slot"`
	FinallyStackSlot   *string `toml:"finally_stack_slot"`
	ResultSlot         *string `toml:"result_slot"`
	ExceptionSlot      *string `toml:"exception_slot"`
	ReturnSlot         *string `toml:"return_slot"`
	Sentinel           *string `toml:"sentinel"`
	AllFunctions       *bool   `toml:"all_functions"`
}

type TomlOutputConfig struct {
	Format    string `toml:"format"`
	Directory string `toml:"directory"`
}

type TomlInputConfig struct {
	IncludePatterns []string `toml:"include_patterns"`
	ExcludePatterns []string `toml:"exclude_patterns"`
	Recursive       *bool    `toml:"recursive"`
}

type TomlPerformanceConfig struct {
	MaxGoroutines  *int `toml:"max_goroutines"`
	TimeoutSeconds *int `toml:"timeout_seconds"`
}

// TomlConfigLoader loads .coroflat.toml files
type TomlConfigLoader struct{}

// NewTomlConfigLoader creates a new TOML configuration loader
func NewTomlConfigLoader() *TomlConfigLoader {
	return &TomlConfigLoader{}
}

// LoadConfig loads the .coroflat.toml found from startDir upwards, or the
// defaults when there is none
func (l *TomlConfigLoader) LoadConfig(startDir string) (*Config, error) {
	configPath, err := FindConfigFile(startDir)
	if err != nil {
		return DefaultConfig(), nil
	}
	return l.LoadFile(configPath)
}

// LoadFile loads a TOML configuration file over the defaults
func (l *TomlConfigLoader) LoadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var tomlCfg CoroflatTomlConfig
	if err := toml.Unmarshal(data, &tomlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	l.merge(cfg, &tomlCfg)
	return cfg, nil
}

// FindConfigFile walks up the directory tree from startDir to find
// .coroflat.toml
func FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// merge applies the keys present in the file to cfg
func (l *TomlConfigLoader) merge(cfg *Config, t *CoroflatTomlConfig) {
	if t.Suspend.Functions != nil {
		cfg.Suspend.Functions = t.Suspend.Functions
	}
	setBool(&cfg.Suspend.Await, t.Suspend.Await)

	setString(&cfg.Lowering.StateSlot, t.Lowering.StateSlot)
	setString(&cfg.Lowering.ExceptionStateSlot, t.Lowering.ExceptionStateSlot)
	setString(&cfg.Lowering.FinallyPathSlot, t.Lowering.FinallyPathSlot)
	setString(&cfg.Lowering.FinallyStackSlot, t.Lowering.FinallyStackSlot)
	setString(&cfg.Lowering.ResultSlot, t.Lowering.ResultSlot)
	setString(&cfg.Lowering.ExceptionSlot, t.Lowering.ExceptionSlot)
	setString(&cfg.Lowering.ReturnSlot, t.Lowering.ReturnSlot)
	// an explicit empty sentinel is meaningful
	setString(&cfg.Lowering.Sentinel, t.Lowering.Sentinel)
	setBool(&cfg.Lowering.AllFunctions, t.Lowering.AllFunctions)

	if t.Output.Format != "" {
		cfg.Output.Format = t.Output.Format
	}
	if t.Output.Directory != "" {
		cfg.Output.Directory = t.Output.Directory
	}

	if t.Input.IncludePatterns != nil {
		cfg.Input.IncludePatterns = t.Input.IncludePatterns
	}
	if t.Input.ExcludePatterns != nil {
		cfg.Input.ExcludePatterns = t.Input.ExcludePatterns
	}
	setBool(&cfg.Input.Recursive, t.Input.Recursive)

	if t.Performance.MaxGoroutines != nil {
		cfg.Performance.MaxGoroutines = *t.Performance.MaxGoroutines
	}
	if t.Performance.TimeoutSeconds != nil {
		cfg.Performance.TimeoutSeconds = *t.Performance.TimeoutSeconds
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
