// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using -ldflags
var (
	Version   = "0.3.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version for log lines and -version output.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
