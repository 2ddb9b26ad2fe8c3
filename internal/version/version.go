// Package version carries build metadata injected at link time via -ldflags.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a single-line description suitable for -version output and
// the health endpoint.
func String() string {
	return fmt.Sprintf("trackframe %s (%s, built %s)", Version, GitSHA, BuildTime)
}
