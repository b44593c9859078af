package version

import (
	_ "embed"
	"runtime"
	"strings"
)

//go:embed VERSION
var versionFile string

// Build-time variables set via ldflags
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// planFormat is bumped whenever the JSON plan layout changes incompatibly.
const planFormat = "1.0.0"

// Version returns the current version of sqlschema
func Version() string {
	return strings.TrimSpace(versionFile)
}

// App returns the application name and version, e.g. "sqlschema 0.1.0".
func App() string {
	return "sqlschema " + Version()
}

// PlanFormat returns the version of the JSON plan format.
func PlanFormat() string {
	return planFormat
}

// GetGitCommit returns the git commit hash
func GetGitCommit() string {
	return GitCommit
}

// GetBuildDate returns the git commit date
func GetBuildDate() string {
	return BuildDate
}

// Platform returns the OS/architecture combination
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}
