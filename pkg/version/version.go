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

	// Name is the client name reported in build info and User-Agent headers
	Name = "artmint"
)

// Set at build time with -ldflags "-X github.com/tech-monarch/ArtMintNFT/pkg/version.GitCommit=..."
var (
	GitCommit = ""
	BuildDate = ""
)

// Version returns the semantic version string
func Version() string {
	version := fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
	if PreRelease != "" {
		version += "-" + PreRelease
	}
	return version
}

// BuildInfo contains comprehensive build information
type BuildInfo struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	PreRelease string `json:"pre_release,omitempty"`
	GitCommit  string `json:"git_commit,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// GetBuildInfo returns complete build information
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Name:       Name,
		Version:    Version(),
		PreRelease: PreRelease,
		GitCommit:  GitCommit,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// GetVersionString returns a formatted version string
func GetVersionString() string {
	if len(GitCommit) >= 7 {
		return fmt.Sprintf("%s (%s)", Version(), GitCommit[:7])
	}
	return Version()
}

// UserAgent is sent with every outbound storage request
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s)", Name, Version(), runtime.GOOS)
}

// IsPreRelease returns true if this is a pre-release version
func IsPreRelease() bool {
	return PreRelease != ""
}
