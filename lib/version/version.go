// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// engineModules are the modules whose versions decide engine
// behavior. They are reported by Build.
var engineModules = []string{
	"zombiezen.com/go/sqlite",
	"modernc.org/sqlite",
}

// Build describes the running binary.
type Build struct {
	Version   string            `json:"version"`
	Commit    string            `json:"commit"`
	Dirty     bool              `json:"dirty"`
	BuildTime string            `json:"build_time"`
	Go        string            `json:"go"`
	Platform  string            `json:"platform"`
	Modules   map[string]string `json:"modules,omitempty"`

	// Engine is the version string reported by the database engine.
	// It is filled in by callers that have a connection.
	Engine string `json:"engine,omitempty"`
}

// Current returns the build information of the running binary.
func Current() Build {
	build := Build{
		Version:   Version,
		Commit:    GitCommit,
		Dirty:     GitDirty == "true",
		BuildTime: BuildTime,
		Go:        runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		build.Modules = moduleVersions(info, engineModules)
	}
	return build
}

func moduleVersions(info *debug.BuildInfo, paths []string) map[string]string {
	versions := make(map[string]string)
	for _, dependency := range info.Deps {
		for _, path := range paths {
			if dependency.Path != path {
				continue
			}
			if dependency.Replace != nil {
				dependency = dependency.Replace
			}
			versions[path] = dependency.Version
		}
	}
	return versions
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, GitCommit, dirty, BuildTime)
}

// Short returns just the version number.
func Short() string {
	return Version
}
