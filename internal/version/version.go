// Package version holds build metadata injected through -ldflags.
package version

// Set with -ldflags "-X github.com/aristath/frontier/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)
