// Package buildinfo exposes build-time version information.
//
// Version, Commit, and BuildTime are injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/clubmesh-go/internal/infra/buildinfo.Version=v1.0.0"
package buildinfo

import "runtime"

var (
	// Version is the semantic version, "dev" for local builds.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// Info is the build description, JSON-renderable for the CLI.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the build description of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String renders "version (commit) built at time".
func String() string {
	return Version + " (" + Commit + ") built at " + BuildTime
}
