package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

// defaultConfigTmpl contains the embedded default configuration template
//
//go:embed default_config.toml.tmpl
var defaultConfigTmpl string

// DefaultConfigValues holds the values rendered into the default
// configuration file
type DefaultConfigValues struct {
	Await bool

	StateSlot          string
	ExceptionStateSlot string
	FinallyPathSlot    string
	FinallyStackSlot   string
	ResultSlot         string
	ExceptionSlot      string
	ReturnSlot         string
	Sentinel           string

	Format string

	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	MaxGoroutines  int
	TimeoutSeconds int
}

func newDefaultConfigValues() DefaultConfigValues {
	d := DefaultConfig()
	return DefaultConfigValues{
		Await:              d.Suspend.Await,
		StateSlot:          d.Lowering.StateSlot,
		ExceptionStateSlot: d.Lowering.ExceptionStateSlot,
		FinallyPathSlot:    d.Lowering.FinallyPathSlot,
		FinallyStackSlot:   d.Lowering.FinallyStackSlot,
		ResultSlot:         d.Lowering.ResultSlot,
		ExceptionSlot:      d.Lowering.ExceptionSlot,
		ReturnSlot:         d.Lowering.ReturnSlot,
		Sentinel:           d.Lowering.Sentinel,
		Format:             d.Output.Format,
		Recursive:          d.Input.Recursive,
		IncludePatterns:    d.Input.IncludePatterns,
		ExcludePatterns:    d.Input.ExcludePatterns,
		MaxGoroutines:      d.Performance.MaxGoroutines,
		TimeoutSeconds:     d.Performance.TimeoutSeconds,
	}
}

// GenerateDefaultConfigTOML renders the default configuration file
func GenerateDefaultConfigTOML() (string, error) {
	tmpl, err := template.New("default_config").Parse(defaultConfigTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse default config template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newDefaultConfigValues()); err != nil {
		return "", fmt.Errorf("failed to render default config template: %w", err)
	}
	return buf.String(), nil
}
