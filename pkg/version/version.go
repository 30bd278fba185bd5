package version

import (
	"fmt"
	"runtime"
)

// Version information - using semantic versioning
const (
	Major      = 1
	Minor      = 0
	Patch      = 0
	PreRelease = "" // e.g., "alpha", "beta", "rc1"
)

// Set at link time with -ldflags "-X .../pkg/version.GitCommit=...".
var (
	GitCommit = ""
	BuildDate = ""
)

// Version returns the semantic version string
func Version() string {
	v := fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
	if PreRelease != "" {
		v += "-" + PreRelease
	}
	return v
}

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Name      string `json:"name"`
}

// GetBuildInfo returns complete build information
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   Version(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Name:      "staking-rewards",
	}
}

// String returns "<version> (<short commit>)" when the commit is known.
func String() string {
	if len(GitCommit) >= 7 {
		return fmt.Sprintf("%s (%s)", Version(), GitCommit[:7])
	}
	return Version()
}
