package mcp

import (
	"github.com/ludo-technologies/coroflat/domain"
	"github.com/ludo-technologies/coroflat/internal/config"
)

func NewTestDependencies(fr domain.FileReader, cfg *config.Config, path string) *Dependencies {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Dependencies{
		fileReader: fr,
		config:     cfg,
		configPath: path,
	}
}
