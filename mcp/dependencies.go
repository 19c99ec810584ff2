package mcp

import (
	"github.com/ludo-technologies/coroflat/app"
	"github.com/ludo-technologies/coroflat/domain"
	"github.com/ludo-technologies/coroflat/internal/config"
	"github.com/ludo-technologies/coroflat/service"
)

// Dependencies aggregates the shared services required by MCP handlers.
type Dependencies struct {
	fileReader domain.FileReader
	config     *config.Config
	configPath string
}

// NewDependencies constructs the dependency set with sane defaults.
func NewDependencies(cfg *config.Config, configPath string) *Dependencies {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	return &Dependencies{
		fileReader: service.NewFileReader(),
		config:     cfg,
		configPath: configPath,
	}
}

// Config exposes the loaded configuration snapshot.
func (d *Dependencies) Config() *config.Config {
	return d.config
}

// ConfigPath returns the configured config file path (may be empty to trigger discovery).
func (d *Dependencies) ConfigPath() string {
	return d.configPath
}

// BaseRequest returns a request carrying the configured settings
func (d *Dependencies) BaseRequest() domain.LowerRequest {
	return *service.ConfigToRequest(d.config)
}

// BuildLowerService creates a lowering service without progress output.
func (d *Dependencies) BuildLowerService() domain.LowerService {
	return service.NewLowerServiceWithDependencies(d.fileReader, nil)
}

// BuildLowerUseCase assembles a fresh LowerUseCase. Configuration is applied
// through BaseRequest, so the use case loads none.
func (d *Dependencies) BuildLowerUseCase() (*app.LowerUseCase, error) {
	return app.NewLowerUseCaseBuilder().
		WithService(d.BuildLowerService()).
		WithFileReader(d.fileReader).
		WithFormatter(service.NewOutputFormatter()).
		Build()
}
