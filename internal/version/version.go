// Package version provides version information for the binary.
package version

import "fmt"

// Version is the current version of the application. It is also reported as
// serverInfo.version. Set at build time using -ldflags.
var Version = "0.1.0"

// BuildTime is when the binary was built.
// This is set at build time using -ldflags.
var BuildTime = "unknown"

// String returns the formatted version information.
func String() string {
	return fmt.Sprintf("tron-mcp version %s (built %s)", Version, BuildTime)
}
