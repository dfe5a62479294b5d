// Package version carries build metadata injected with -ldflags.
package version

import "fmt"

// Set at build time, e.g.
//
//	-ldflags "-X github.com/emergent-company/kevinbacon/internal/version.Version=1.2.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo is the JSON shape served by /health and printed by `baconctl version`.
type BuildInfo struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"gitCommit" yaml:"gitCommit"`
	BuildTime string `json:"buildTime" yaml:"buildTime"`
}

func Info() BuildInfo {
	return BuildInfo{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime}
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (%s, built %s)", b.Version, b.GitCommit, b.BuildTime)
}
