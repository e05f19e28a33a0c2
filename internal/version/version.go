// Package version holds build metadata for the askdoc binary, reported
// in the startup log line.
package version

// Overridden at build time:
//
//	go build -ldflags "-X .../internal/version.Version=v1.2.3 \
//	    -X .../internal/version.Commit=$(git rev-parse --short HEAD) \
//	    -X .../internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
