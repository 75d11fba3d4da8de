// Package version holds build metadata injected via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time:
//
//	go build -ldflags "-X shipping/internal/version.Version=v1.2.3 -X shipping/internal/version.Commit=$(git rev-parse --short HEAD) -X shipping/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a one-line description of the build.
func Info() string {
	return fmt.Sprintf("shipping %s (commit %s, built %s, %s)", Version, Commit, Date, runtime.Version())
}
