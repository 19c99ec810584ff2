package service

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/coroflat/domain"
	"github.com/ludo-technologies/coroflat/internal/config"
)

const testConfigTOML = `
[suspend]
functions = ["sleep", "io.*"]
await = false

[lowering]
state_slot = "$s"
sentinel = ""

[output]
format = "json"

[performance]
max_goroutines = 2
timeout_seconds = 30
`

func TestConfigurationLoader_LoadDefaultConfig(t *testing.T) {
	loader := NewConfigurationLoaderForTarget(t.TempDir())

	req := loader.LoadDefaultConfig()
	require.NotNil(t, req)

	assert.Equal(t, domain.OutputFormatText, req.OutputFormat)
	assert.True(t, req.AwaitSuspends)
	assert.True(t, req.Recursive)
	assert.Equal(t, config.DefaultSentinel, req.Slots.Sentinel)
	assert.Equal(t, config.DefaultStateSlot, req.Slots.State)
	assert.Equal(t, config.DefaultMaxGoroutines, req.MaxGoroutines)
	assert.Equal(t, time.Duration(config.DefaultTimeoutSeconds)*time.Second, req.Timeout)
	assert.Contains(t, req.ExcludePatterns, "**/node_modules/**")
}

func TestConfigurationLoader_DiscoversConfig(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, config.ConfigFileName, testConfigTOML)
	sub := filepath.Join(dir, "src", "lib")
	require.NoError(t, os.MkdirAll(sub, 0755))

	req := NewConfigurationLoaderForTarget(sub).LoadDefaultConfig()

	assert.Equal(t, domain.OutputFormatJSON, req.OutputFormat)
	assert.Equal(t, []string{"sleep", "io.*"}, req.SuspendFunctions)
	assert.False(t, req.AwaitSuspends)
	assert.Equal(t, "$s", req.Slots.State)
	assert.Empty(t, req.Slots.Sentinel)
	assert.Equal(t, 2, req.MaxGoroutines)
	assert.Equal(t, 30*time.Second, req.Timeout)
}

func TestConfigurationLoader_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := createTestFile(t, dir, "custom.toml", testConfigTOML)

	req, err := NewConfigurationLoader().LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, domain.OutputFormatJSON, req.OutputFormat)

	bad := createTestFile(t, dir, "bad.toml", "[lowering]\nstate_slot = \"$result\"\n")
	_, err = NewConfigurationLoader().LoadConfig(bad)
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeConfigError, domain.ErrorCode(err))
}

func TestConfigurationLoader_MergeConfig(t *testing.T) {
	loader := NewConfigurationLoader()
	base := ConfigToRequest(config.DefaultConfig())

	var out bytes.Buffer
	override := &domain.LowerRequest{
		Paths:            []string{"a.js"},
		OutputWriter:     &out,
		OutputFormat:     domain.OutputFormatDOT,
		SuspendFunctions: []string{"wait"},
		Slots:            domain.SlotNames{Result: "$r"},
		ConfigPath:       "x.toml",
	}

	merged := loader.MergeConfig(base, override)
	assert.Equal(t, []string{"a.js"}, merged.Paths)
	assert.Same(t, &out, merged.OutputWriter)
	assert.Equal(t, domain.OutputFormatDOT, merged.OutputFormat)
	assert.Equal(t, []string{"wait"}, merged.SuspendFunctions)
	assert.Equal(t, "$r", merged.Slots.Result)
	assert.Equal(t, config.DefaultStateSlot, merged.Slots.State)
	assert.Equal(t, config.DefaultSentinel, merged.Slots.Sentinel)
	assert.True(t, merged.AwaitSuspends, "zero values do not override")
	assert.Equal(t, "x.toml", merged.ConfigPath)

	assert.Same(t, base, loader.MergeConfig(base, nil))
	assert.Same(t, override, loader.MergeConfig(nil, override))
}

func TestConfigurationLoaderWithFlags_MergeConfig(t *testing.T) {
	base := ConfigToRequest(config.DefaultConfig())
	base.SuspendFunctions = []string{"sleep"}

	override := &domain.LowerRequest{
		Paths:            []string{"src"},
		OutputFormat:     domain.OutputFormatYAML,
		AwaitSuspends:    false,
		Recursive:        false,
		SuspendFunctions: []string{"io.*"},
		MaxGoroutines:    0,
		Slots:            domain.SlotNames{Sentinel: "", State: "$st"},
	}

	t.Run("OnlySetFlagsOverride", func(t *testing.T) {
		tracker := config.NewFlagTrackerWithFlags(map[string]bool{
			FlagYAML:     true,
			FlagAwait:    true,
			FlagSentinel: true,
		})
		merged := NewConfigurationLoaderWithFlags(t.TempDir(), tracker).MergeConfig(base, override)

		assert.Equal(t, []string{"src"}, merged.Paths)
		assert.Equal(t, domain.OutputFormatYAML, merged.OutputFormat)
		assert.False(t, merged.AwaitSuspends)
		assert.Empty(t, merged.Slots.Sentinel, "an explicit empty sentinel disables it")
		assert.True(t, merged.Recursive)
		assert.Equal(t, []string{"sleep"}, merged.SuspendFunctions)
		assert.Equal(t, config.DefaultStateSlot, merged.Slots.State)
		assert.Equal(t, config.DefaultMaxGoroutines, merged.MaxGoroutines)
	})

	t.Run("NoFlags", func(t *testing.T) {
		merged := NewConfigurationLoaderWithFlags(t.TempDir(), nil).MergeConfig(base, override)

		assert.Equal(t, domain.OutputFormatText, merged.OutputFormat)
		assert.True(t, merged.AwaitSuspends)
		assert.Equal(t, config.DefaultSentinel, merged.Slots.Sentinel)
	})

	t.Run("SliceAndNumbers", func(t *testing.T) {
		tracker := config.NewFlagTrackerWithFlags(map[string]bool{
			FlagSuspend:       true,
			FlagStateSlot:     true,
			FlagMaxGoroutines: true,
			FlagTimeout:       true,
		})
		merged := NewConfigurationLoaderWithFlags(t.TempDir(), tracker).MergeConfig(base, override)

		assert.Equal(t, []string{"io.*"}, merged.SuspendFunctions)
		assert.Equal(t, "$st", merged.Slots.State)
		assert.Equal(t, 0, merged.MaxGoroutines)
		assert.Zero(t, merged.Timeout)
	})
}
