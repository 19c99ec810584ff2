package main

import (
	"flag"
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ludo-technologies/coroflat/internal/config"
	"github.com/ludo-technologies/coroflat/internal/lowering"
	"github.com/ludo-technologies/coroflat/internal/version"
	"github.com/ludo-technologies/coroflat/mcp"
	"github.com/ludo-technologies/coroflat/service"
)

const serverName = "coroflat"

func main() {
	configPath := flag.String("config", "", "Configuration file path (default: discover .coroflat.toml)")
	flag.Parse()

	// MCP uses stdout for JSON-RPC; the production logger writes to stderr
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	service.SetLogger(logger)
	lowering.SetLogger(logger)

	cfg, err := config.LoadConfigWithTarget(*configPath, "")
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	server := mcpserver.NewMCPServer(
		serverName,
		version.Short(),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
	)

	mcp.RegisterTools(server, mcp.NewHandlerSet(mcp.NewDependencies(cfg, *configPath)))

	logger.Info("starting MCP server",
		zap.String("name", serverName),
		zap.String("version", version.Short()),
		zap.Strings("tools", []string{"lower_source", "lower_file"}))

	if err := mcpserver.ServeStdio(server); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}
