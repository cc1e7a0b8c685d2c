package buildinfo

import (
	"fmt"

	"github.com/rolefirst/guardrail/core/infra/logging"
)

// Set at link time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns a single-line build summary.
func Info() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", Version, Commit, Date)
}

// Log writes the build summary with the service name.
func Log(service string) {
	logging.Info(service, "build info", "version", Version, "commit", Commit, "date", Date)
}
