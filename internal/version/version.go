// Package version holds the build metadata of the coroflat binaries.
//
// Release builds of cmd/coroflat and cmd/coroflat-mcp set the variables
// with the linker:
//
//	go build -ldflags "-X github.com/ludo-technologies/coroflat/internal/version.Version=v0.3.0 \
//	  -X github.com/ludo-technologies/coroflat/internal/version.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/ludo-technologies/coroflat/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	  ./cmd/coroflat
//
// Local builds report "dev". The MCP server announces Short() as its
// server version, and JSON/YAML reports record it next to the results.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag, "dev" for local builds
	Version = "dev"

	// Commit is the abbreviated git commit of the build
	Commit = "unknown"

	// Date is the UTC build time in RFC 3339
	Date = "unknown"
)

// Info returns the multi-line text printed by "coroflat version"
func Info() string {
	return fmt.Sprintf(
		"coroflat %s\nCommit: %s\nBuilt: %s\nGo: %s\nOS/Arch: %s/%s",
		Version,
		Commit,
		Date,
		runtime.Version(),
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// Short returns the release tag alone, as printed by "coroflat version --short"
func Short() string {
	return Version
}
